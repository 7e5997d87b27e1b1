package config

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty work dir", func(c *Config) { c.WorkDir = "" }, "cannot be blank"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log"},
		{"bad source language", func(c *Config) { c.Translation.SourceLang = "not a tag!" }, "translation"},
		{"zero window", func(c *Config) { c.Translation.WindowSize = 0 }, "translation"},
		{"zero attempts", func(c *Config) { c.Translation.MaxAttempts = 0 }, "translation"},
		{"negative delay", func(c *Config) { c.Translation.LineDelay = -time.Second }, "translation"},
		{"unknown provider", func(c *Config) { c.Provider.Provider = "babelfish" }, "provider"},
		{"bad base url", func(c *Config) { c.Provider.BaseURL = "::not a url" }, "provider"},
		{"unknown embedding provider", func(c *Config) { c.Embedding.Provider = "google" }, "embedding"},
		{"unknown source type", func(c *Config) { c.Source.Type = "ftp" }, "source"},
		{"dir source without dir", func(c *Config) { c.Source.Type = SourceDir }, "source"},
		{"http source without list url", func(c *Config) { c.Source.HTTP.ListURL = "" }, "source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestValidate_DirSource(t *testing.T) {
	cfg := Default()
	cfg.Source = SourceConfig{Type: SourceDir, Dir: "./raw-chapters"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("dir source should not need http settings: %v", err)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	t.Setenv("NOVELTRAN_PROVIDER_MODEL", "gpt-env")

	v := viper.New()
	v.SetConfigType("yaml")
	BindEnv(v)
	yamlDoc := `
work_dir: /tmp/novel
translation:
  source_lang: ja
  target_lang: uk
  window_size: 3
  retry_delay: 5s
provider:
  provider: ollama
  model: from-file
`
	if err := v.ReadConfig(bytes.NewBufferString(yamlDoc)); err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.WorkDir != "/tmp/novel" || cfg.Translation.SourceLang != "ja" || cfg.Translation.WindowSize != 3 {
		t.Errorf("file values not applied: %+v", cfg.Translation)
	}
	if cfg.Translation.RetryDelay != 5*time.Second {
		t.Errorf("RetryDelay = %v", cfg.Translation.RetryDelay)
	}
	if cfg.Translation.MaxAttempts != 3 || cfg.Translation.FailureThreshold != 5 {
		t.Errorf("defaults not applied: %+v", cfg.Translation)
	}
	if cfg.Provider.Provider != "ollama" || cfg.Provider.Model != "gpt-env" {
		t.Errorf("env override not applied: %+v", cfg.Provider)
	}
	if cfg.Embedding.Provider != "openai" {
		t.Errorf("squashed embedding default missing: %+v", cfg.Embedding)
	}
}

func TestLoad_Invalid(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewBufferString("translation:\n  window_size: 0\n")); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(v); err == nil {
		t.Error("expected validation error")
	}
}

func TestWriteDefault_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noveltran.yaml")
	if err := WriteDefault(path, false); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	if err := WriteDefault(path, false); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if err := WriteDefault(path, true); err != nil {
		t.Fatalf("forced WriteDefault: %v", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig: %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Translation.LineDelay != Default().Translation.LineDelay {
		t.Errorf("LineDelay = %v", cfg.Translation.LineDelay)
	}
}

func TestKeys(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-a,env-b")
	t.Setenv("GEMINI_API_KEY", "gem")

	cfg := Default()
	if got := cfg.TranslateKeys(); len(got) != 2 || got[0] != "env-a" {
		t.Errorf("TranslateKeys() = %v", got)
	}

	cfg.APIKeys = []string{"cfg"}
	if got := cfg.TranslateKeys(); len(got) != 1 || got[0] != "cfg" {
		t.Errorf("TranslateKeys() = %v", got)
	}
	if got := cfg.EmbedKeys(); len(got) != 1 || got[0] != "cfg" {
		t.Errorf("EmbedKeys() should share keys with the same provider, got %v", got)
	}

	cfg.Embedding.Provider = "gemini"
	if got := cfg.EmbedKeys(); len(got) != 1 || got[0] != "gem" {
		t.Errorf("EmbedKeys() = %v", got)
	}

	cfg.Embedding.APIKeys = []string{"override"}
	if got := cfg.EmbedKeys(); got[0] != "override" {
		t.Errorf("EmbedKeys() = %v", got)
	}
}

func TestTermsDBPath(t *testing.T) {
	cfg := Default()
	cfg.WorkDir = "/data"
	if got := cfg.TermsDBPath(); got != filepath.Join("/data", "terms.db") {
		t.Errorf("TermsDBPath() = %q", got)
	}
	cfg.Terms.DBPath = "/elsewhere.db"
	if got := cfg.TermsDBPath(); got != "/elsewhere.db" {
		t.Errorf("TermsDBPath() = %q", got)
	}
}
