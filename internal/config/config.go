// Package config loads, validates and writes the noveltran configuration.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"golang.org/x/text/language"

	"github.com/valpere/noveltran/internal/chapter"
	"github.com/valpere/noveltran/internal/embedding"
	"github.com/valpere/noveltran/internal/source"
	"github.com/valpere/noveltran/internal/terms"
	"github.com/valpere/noveltran/internal/translator"
)

// Source types.
const (
	SourceHTTP = "http"
	SourceDir  = "dir"
)

// Config is the full application configuration.
type Config struct {
	// WorkDir holds raw text, checkpoints, finalized chapters and the term
	// database.
	WorkDir     string            `mapstructure:"work_dir" yaml:"work_dir"`
	APIKeys     []string          `mapstructure:"api_keys" yaml:"api_keys"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
	Translation chapter.Config    `mapstructure:"translation" yaml:"translation"`
	Provider    translator.Config `mapstructure:"provider" yaml:"provider"`
	Embedding   EmbeddingConfig   `mapstructure:"embedding" yaml:"embedding"`
	Terms       TermsConfig       `mapstructure:"terms" yaml:"terms"`
	Source      SourceConfig      `mapstructure:"source" yaml:"source"`
}

// Default returns a configuration that translates Korean to English with
// OpenAI, scraping chapters over HTTP.
func Default() *Config {
	tr := chapter.DefaultConfig()
	tr.SourceLang = "ko"
	tr.TargetLang = "en"

	return &Config{
		WorkDir:     "./novel",
		APIKeys:     []string{},
		Log:         LogConfig{Level: "info", Format: "text"},
		Translation: tr,
		Provider: translator.Config{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			Temperature:    0.3,
			ResponseFormat: "json_schema",
			Timeout:        120 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Config:  embedding.Config{Provider: "openai", Model: "text-embedding-3-small"},
			APIKeys: []string{},
		},
		Terms: TermsConfig{Collection: terms.DefaultCollection},
		Source: SourceConfig{
			Type: SourceHTTP,
			HTTP: source.HTTPConfig{
				ListURL:         "https://example.com/novel/toc?page={page}",
				FirstPage:       1,
				LinkSelector:    "ul.chapters a",
				IndexPattern:    `(\d+)`,
				ContentSelector: "#content",
				RemoveSelectors: []string{},
				Delay:           2 * time.Second,
				Timeout:         30 * time.Second,
			},
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.WorkDir, validation.Required),
	); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := validateTranslation(&c.Translation); err != nil {
		return fmt.Errorf("translation: %w", err)
	}
	if err := validation.ValidateStruct(&c.Provider,
		validation.Field(&c.Provider.Provider, validation.Required, validation.In(translator.Providers...)),
		validation.Field(&c.Provider.ResponseFormat, validation.In("json_schema", "json_object", "text", "none")),
		validation.Field(&c.Provider.BaseURL, is.URL),
	); err != nil {
		return fmt.Errorf("provider: %w", err)
	}
	if err := c.Embedding.Validate(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	return nil
}

func validateTranslation(t *chapter.Config) error {
	return validation.ValidateStruct(t,
		validation.Field(&t.SourceLang, validation.Required, validation.By(languageTag)),
		validation.Field(&t.TargetLang, validation.Required, validation.By(languageTag)),
		validation.Field(&t.WindowSize, validation.Required, validation.Min(1)),
		validation.Field(&t.TermLimit, validation.Required, validation.Min(1)),
		validation.Field(&t.MaxAttempts, validation.Required, validation.Min(1)),
		validation.Field(&t.FailureThreshold, validation.Required, validation.Min(1)),
		validation.Field(&t.RetryDelay, validation.Min(time.Duration(0))),
		validation.Field(&t.LineDelay, validation.Min(time.Duration(0))),
	)
}

func languageTag(value interface{}) error {
	s, _ := value.(string)
	if _, err := language.Parse(s); err != nil {
		return fmt.Errorf("not a BCP 47 language tag: %q", s)
	}
	return nil
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Validate validates the log configuration.
func (c *LogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.Format, validation.In("text", "json")),
	)
}

// NewLogger builds a logger writing to w.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// EmbeddingConfig selects the embedding provider. APIKeys overrides the
// shared key list when the embedding provider differs from the translator.
type EmbeddingConfig struct {
	embedding.Config `mapstructure:",squash" yaml:",inline"`
	APIKeys          []string `mapstructure:"api_keys" yaml:"api_keys"`
}

// Validate validates the embedding configuration.
func (c *EmbeddingConfig) Validate() error {
	return validation.ValidateStruct(&c.Config,
		validation.Field(&c.Config.Provider, validation.Required, validation.In("openai", "openrouter", "gemini", "ollama")),
		validation.Field(&c.Config.BaseURL, is.URL),
	)
}

// TermsConfig locates the term database.
type TermsConfig struct {
	// DBPath defaults to terms.db inside the work directory.
	DBPath     string `mapstructure:"db_path" yaml:"db_path,omitempty"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// SourceConfig selects where chapters come from.
type SourceConfig struct {
	Type string            `mapstructure:"type" yaml:"type"`
	Dir  string            `mapstructure:"dir" yaml:"dir,omitempty"`
	HTTP source.HTTPConfig `mapstructure:"http" yaml:"http"`
}

// Validate validates the source configuration.
func (c *SourceConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Type, validation.Required, validation.In(SourceHTTP, SourceDir)),
		validation.Field(&c.Dir, validation.When(c.Type == SourceDir, validation.Required)),
	); err != nil {
		return err
	}
	if c.Type != SourceHTTP {
		return nil
	}
	return validation.ValidateStruct(&c.HTTP,
		validation.Field(&c.HTTP.ListURL, validation.Required),
		validation.Field(&c.HTTP.LinkSelector, validation.Required),
		validation.Field(&c.HTTP.ContentSelector, validation.Required),
		validation.Field(&c.HTTP.Delay, validation.Min(time.Duration(0))),
	)
}

// TermsDBPath returns the effective term database path.
func (c *Config) TermsDBPath() string {
	if c.Terms.DBPath != "" {
		return c.Terms.DBPath
	}
	return filepath.Join(c.WorkDir, "terms.db")
}

// providerKeyEnv names the conventional environment variable per provider.
var providerKeyEnv = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
	"gemini":     "GEMINI_API_KEY",
}

// TranslateKeys returns the keys for the translation provider: api_keys,
// or the provider's conventional environment variable (comma-separated).
func (c *Config) TranslateKeys() []string {
	return keysOr(c.APIKeys, c.Provider.Provider)
}

// EmbedKeys returns embedding.api_keys, falling back to TranslateKeys when
// both use the same provider family.
func (c *Config) EmbedKeys() []string {
	if len(c.Embedding.APIKeys) > 0 {
		return c.Embedding.APIKeys
	}
	if c.Embedding.Provider == c.Provider.Provider && len(c.APIKeys) > 0 {
		return c.APIKeys
	}
	return keysOr(nil, c.Embedding.Provider)
}

func keysOr(keys []string, provider string) []string {
	if len(keys) > 0 {
		return keys
	}
	env, ok := providerKeyEnv[provider]
	if !ok {
		return nil
	}
	if v := os.Getenv(env); v != "" {
		return strings.Split(v, ",")
	}
	return nil
}
