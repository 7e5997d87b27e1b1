package translator

import (
	"context"
	"fmt"
)

// LanguageChecker reports whether text is written in lang.
type LanguageChecker interface {
	IsValid(text, lang string) (bool, error)
}

// LLMTranslator drives a chat model Backend with the structured request
// document and decodes its reply.
type LLMTranslator struct {
	backend   Backend
	validator LanguageChecker
}

func NewLLMTranslator(backend Backend) *LLMTranslator {
	return &LLMTranslator{backend: backend}
}

// SetValidator enables the target-language check. A nil checker disables it.
func (t *LLMTranslator) SetValidator(v LanguageChecker) {
	t.validator = v
}

func (t *LLMTranslator) Name() string {
	return t.backend.Name()
}

func (t *LLMTranslator) Translate(ctx context.Context, req Request) (*Result, error) {
	doc, err := BuildRequestDocument(req)
	if err != nil {
		return nil, err
	}

	raw, err := t.backend.Complete(ctx, SystemPrompt(req.SourceLang, req.TargetLang), doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.backend.Name(), err)
	}

	res, err := DecodeResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.backend.Name(), err)
	}

	if t.validator != nil {
		ok, verr := t.validator.IsValid(res.TranslatedLine, req.TargetLang)
		if verr != nil {
			return nil, fmt.Errorf("%s: %w: %v", t.backend.Name(), ErrWrongLanguage, verr)
		}
		if !ok {
			return nil, fmt.Errorf("%s: %w", t.backend.Name(), ErrWrongLanguage)
		}
	}

	return res, nil
}
