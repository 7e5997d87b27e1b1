/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/valpere/noveltran/internal/config"
	"github.com/valpere/noveltran/internal/embedding"
	"github.com/valpere/noveltran/internal/keyring"
	"github.com/valpere/noveltran/internal/source"
	"github.com/valpere/noveltran/internal/storage"
	"github.com/valpere/noveltran/internal/terms"
	"github.com/valpere/noveltran/internal/translator"
)

// openWorkspace creates the work directory tree. Failure here is fatal.
func openWorkspace(cfg *config.Config) (*storage.Layout, error) {
	files := storage.New(cfg.WorkDir)
	if err := files.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("failed to prepare work directory %s: %w", cfg.WorkDir, err)
	}
	return files, nil
}

// openTerms opens the term store with the configured embedder. The snapshot
// lives next to the chapter files.
func openTerms(cfg *config.Config, files *storage.Layout, logger *slog.Logger) (*terms.Store, error) {
	embedder, err := embedding.New(cfg.Embedding.Config, keyring.New(cfg.EmbedKeys()...))
	if err != nil {
		return nil, err
	}

	store, err := terms.New(cfg.TermsDBPath(), embedder, terms.Options{
		Collection:   cfg.Terms.Collection,
		SnapshotPath: files.SnapshotPath(),
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open term store: %w", err)
	}
	return store, nil
}

// buildTranslator constructs the line translator. The returned close
// function releases provider clients that hold connections.
func buildTranslator(ctx context.Context, cfg *config.Config, logger *slog.Logger) (translator.LineTranslator, func(), error) {
	keys := keyring.New(cfg.TranslateKeys()...)
	if keys.Len() == 0 && needsKey(cfg.Provider.Provider) {
		logger.Warn("no API key configured for provider", "provider", cfg.Provider.Provider)
	}

	tr, err := translator.New(ctx, cfg.Provider, keys, cfg.Translation.SourceLang, cfg.Translation.TargetLang)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create translator: %w", err)
	}

	closeFn := func() {}
	if c, ok := tr.(io.Closer); ok {
		closeFn = func() {
			if err := c.Close(); err != nil {
				logger.Warn("failed to close translator", "error", err)
			}
		}
	}
	return tr, closeFn, nil
}

func needsKey(provider string) bool {
	switch provider {
	case "openai", "openrouter", "gemini":
		return true
	}
	return false
}

// buildSource returns the configured chapter source.
func buildSource(cfg *config.Config, logger *slog.Logger) (source.Source, error) {
	switch cfg.Source.Type {
	case config.SourceDir:
		return source.NewDirSource(cfg.Source.Dir), nil
	case config.SourceHTTP:
		src, err := source.NewHTTPSource(cfg.Source.HTTP, logger)
		if err != nil {
			return nil, fmt.Errorf("invalid http source: %w", err)
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown source type: %q", cfg.Source.Type)
	}
}
