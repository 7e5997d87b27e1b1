package translator

import (
	"context"
	"fmt"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"

	"github.com/valpere/noveltran/internal"
)

// GoogleTranslator is plain machine translation through Cloud Translation.
// It sees only the current line and never proposes new terms.
type GoogleTranslator struct {
	client *translate.Client
}

// NewGoogleTranslator creates a client. An empty credentialsFile uses
// Application Default Credentials. Extra options are appended after the
// credentials option.
func NewGoogleTranslator(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*GoogleTranslator, error) {
	var all []option.ClientOption
	if credentialsFile != "" {
		all = append(all, option.WithCredentialsFile(credentialsFile))
	}
	all = append(all, opts...)

	client, err := translate.NewClient(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &GoogleTranslator{client: client}, nil
}

func (g *GoogleTranslator) Name() string {
	return "google"
}

func (g *GoogleTranslator) Close() error {
	return g.client.Close()
}

func (g *GoogleTranslator) Translate(ctx context.Context, req Request) (*Result, error) {
	target, err := language.Parse(req.TargetLang)
	if err != nil {
		return nil, fmt.Errorf("invalid target language: %w", err)
	}

	opts := &translate.Options{Format: translate.Text}
	if req.SourceLang != "" && req.SourceLang != "auto" {
		source, err := language.Parse(req.SourceLang)
		if err != nil {
			return nil, fmt.Errorf("invalid source language: %w", err)
		}
		opts.Source = source
	}

	translations, err := g.client.Translate(ctx, []string{req.Line}, target, opts)
	if err != nil {
		return nil, fmt.Errorf("google: translation failed: %w", err)
	}
	if len(translations) == 0 || translations[0].Text == "" {
		return nil, fmt.Errorf("google: %w: no translation returned", ErrMalformedResponse)
	}

	return &Result{TranslatedLine: translations[0].Text, NewTerms: []internal.TermPair{}}, nil
}
