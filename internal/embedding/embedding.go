// Package embedding adapts hosted and local embedding models to the
// terms.Embedder interface.
package embedding

import (
	"fmt"

	"github.com/valpere/noveltran/internal/keyring"
	"github.com/valpere/noveltran/internal/terms"
)

// Config selects and parameterises an embedding provider.
type Config struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
	Model    string `mapstructure:"model" yaml:"model"`
	BaseURL  string `mapstructure:"base_url" yaml:"base_url"`
}

const openRouterURL = "https://openrouter.ai/api/v1"

// New builds the Embedder named by cfg.Provider. Keys are drawn from keys
// under keyring.CategoryEmbed.
func New(cfg Config, keys *keyring.Rotator) (terms.Embedder, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIEmbedder(cfg.Model, cfg.BaseURL, keys), nil
	case "openrouter":
		if cfg.BaseURL == "" {
			cfg.BaseURL = openRouterURL
		}
		return NewOpenAIEmbedder(cfg.Model, cfg.BaseURL, keys), nil
	case "gemini":
		return NewGeminiEmbedder(cfg.Model, cfg.BaseURL, keys), nil
	case "ollama":
		return NewOllamaEmbedder(cfg.Model, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
}

func emptyVector(provider, text string) error {
	return fmt.Errorf("%w: %s returned no vector for %q", terms.ErrEmbeddingFailure, provider, text)
}
