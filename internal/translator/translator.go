// Package translator turns one source line, together with its surrounding
// context and known terminology, into a translated line plus any newly
// discovered terms.
package translator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valpere/noveltran/internal"
	"github.com/valpere/noveltran/internal/keyring"
	"github.com/valpere/noveltran/internal/validator"
	"github.com/valpere/noveltran/internal/window"
)

var (
	// ErrMalformedResponse marks a model reply that is empty, not a JSON
	// object, or missing required fields.
	ErrMalformedResponse = errors.New("malformed translation response")
	// ErrWrongLanguage marks a reply whose translated line was detected in a
	// language other than the requested target.
	ErrWrongLanguage = errors.New("translation not in target language")
)

// Request is everything the model sees for one line.
type Request struct {
	SourceLang    string
	TargetLang    string
	ExistingTerms []internal.TermPair
	Context       []window.Entry
	Line          string
	Lookahead     []string
}

// Result is a successfully decoded translation. NewTerms is never nil.
type Result struct {
	TranslatedLine string
	NewTerms       []internal.TermPair
}

// LineTranslator translates a single line. Implementations have no side
// effects when they return an error, so callers may retry freely.
type LineTranslator interface {
	Translate(ctx context.Context, req Request) (*Result, error)
}

// Backend sends a system and user prompt to a chat model and returns the raw
// text of its reply.
type Backend interface {
	Name() string
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config selects and parameterises the translation provider.
type Config struct {
	Provider         string        `mapstructure:"provider" yaml:"provider"`
	Model            string        `mapstructure:"model" yaml:"model"`
	BaseURL          string        `mapstructure:"base_url" yaml:"base_url"`
	Temperature      float32       `mapstructure:"temperature" yaml:"temperature"`
	ResponseFormat   string        `mapstructure:"response_format" yaml:"response_format"`
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Credentials      string        `mapstructure:"credentials" yaml:"credentials,omitempty"`
	ValidateLanguage bool          `mapstructure:"validate_language" yaml:"validate_language"`
}

// Providers lists the accepted values of Config.Provider.
var Providers = []interface{}{"openai", "openrouter", "gemini", "ollama", "google"}

// New builds the LineTranslator for cfg. sourceLang and targetLang are only
// used to narrow the optional language validator.
func New(ctx context.Context, cfg Config, keys *keyring.Rotator, sourceLang, targetLang string) (LineTranslator, error) {
	var backend Backend
	switch cfg.Provider {
	case "openai":
		backend = NewOpenAIBackend(cfg, keys)
	case "openrouter":
		if cfg.BaseURL == "" {
			cfg.BaseURL = defaultOpenRouterURL
		}
		backend = NewOpenAIBackend(cfg, keys)
	case "gemini":
		backend = NewGeminiBackend(cfg, keys)
	case "ollama":
		backend = NewOllamaBackend(cfg)
	case "google":
		return NewGoogleTranslator(ctx, cfg.Credentials)
	default:
		return nil, fmt.Errorf("unknown translation provider: %q", cfg.Provider)
	}

	t := NewLLMTranslator(backend)
	if cfg.ValidateLanguage {
		t.SetValidator(validator.New(sourceLang, targetLang))
	}
	return t, nil
}
