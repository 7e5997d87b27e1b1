// Package detector wraps lingua-go language identification.
package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector restricted to the given ISO 639-1 codes. Fewer than
// two recognised codes fall back to all languages lingua knows, which is
// slower to build and less accurate on short lines.
func New(isoCodes ...string) *Detector {
	langs := resolve(isoCodes)

	builder := lingua.NewLanguageDetectorBuilder()
	var detector lingua.LanguageDetector
	if len(langs) >= 2 {
		detector = builder.FromLanguages(langs...).Build()
	} else {
		detector = builder.FromAllLanguages().Build()
	}

	return &Detector{detector: detector}
}

func resolve(isoCodes []string) []lingua.Language {
	seen := make(map[lingua.Language]bool)
	var out []lingua.Language
	for _, code := range isoCodes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if i := strings.IndexAny(code, "-_"); i > 0 {
			code = code[:i]
		}
		for _, lang := range lingua.AllLanguages() {
			if lang.IsoCode639_1().String() == code && !seen[lang] {
				seen[lang] = true
				out = append(out, lang)
			}
		}
	}
	return out
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if text == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return lang.IsoCode639_1().String(), true
}
