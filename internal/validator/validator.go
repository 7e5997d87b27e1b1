// Package validator checks that a translated line is in the expected target language.
package validator

import (
	"fmt"
	"strings"

	"github.com/valpere/noveltran/internal/detector"
)

// minValidationLength is the minimum rune count required to attempt language detection.
// Shorter lines produce unreliable results and are accepted without validation.
const minValidationLength = 20

// Validator checks that a translation is written in the expected target language.
// The underlying language detector is expensive to build; reuse the instance.
type Validator struct {
	det *detector.Detector
}

// New creates a Validator whose detector only distinguishes between the
// given languages (typically the source and target of the run).
func New(isoCodes ...string) *Validator {
	return &Validator{det: detector.New(isoCodes...)}
}

// IsValid returns true when translatedText appears to be written in targetLang.
//
// Short lines (fewer than minValidationLength runes) and lines whose language
// cannot be determined pass without error. When the detected language differs
// from targetLang the returned error names both codes.
func (v *Validator) IsValid(translatedText, targetLang string) (bool, error) {
	if targetLang == "" {
		return true, nil
	}

	text := strings.TrimSpace(translatedText)
	if text == "" {
		return false, fmt.Errorf("translation is empty")
	}

	if len([]rune(text)) < minValidationLength {
		return true, nil
	}

	detected, ok := v.det.DetectISO(text)
	if !ok {
		return true, nil
	}

	want := targetLang
	if i := strings.IndexAny(want, "-_"); i > 0 {
		want = want[:i]
	}
	if !strings.EqualFold(detected, want) {
		return false, fmt.Errorf("expected %s but detected %s", targetLang, detected)
	}

	return true, nil
}
