package translator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/valpere/noveltran/internal"
	"github.com/valpere/noveltran/internal/postprocess"
)

// Pointer fields distinguish a missing key from an empty value.
type wireResponse struct {
	TranslatedLine *string     `json:"translatedLine"`
	NewTerms       *[]wireTerm `json:"newTerms"`
}

type wireTerm struct {
	From *string `json:"from"`
	To   *string `json:"to"`
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// DecodeResponse parses a raw model reply into a Result.
//
// The reply is first stripped of thinking blocks, code fences and any prose
// around the JSON object. Every failure wraps ErrMalformedResponse: empty
// replies, invalid JSON, a missing or blank translatedLine, a missing
// newTerms array, and term items whose from/to are absent or not strings.
// Terms with a blank from or to are dropped. Unknown top-level fields are
// ignored. Line breaks inside translatedLine are folded to spaces so the
// output keeps one line per source line.
func DecodeResponse(raw string) (*Result, error) {
	body := postprocess.CleanJSON(raw)
	if body == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrMalformedResponse)
	}

	var wire wireResponse
	if err := json.Unmarshal([]byte(body), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if wire.TranslatedLine == nil {
		return nil, fmt.Errorf("%w: missing translatedLine", ErrMalformedResponse)
	}
	line := strings.TrimSpace(lineBreaks.Replace(*wire.TranslatedLine))
	if line == "" {
		return nil, fmt.Errorf("%w: blank translatedLine", ErrMalformedResponse)
	}

	if wire.NewTerms == nil {
		return nil, fmt.Errorf("%w: missing newTerms", ErrMalformedResponse)
	}

	terms := make([]internal.TermPair, 0, len(*wire.NewTerms))
	for i, item := range *wire.NewTerms {
		if item.From == nil || item.To == nil {
			return nil, fmt.Errorf("%w: newTerms[%d] lacks from or to", ErrMalformedResponse, i)
		}
		from := strings.TrimSpace(*item.From)
		to := strings.TrimSpace(*item.To)
		if from == "" || to == "" {
			continue
		}
		terms = append(terms, internal.TermPair{From: from, To: to})
	}

	return &Result{TranslatedLine: line, NewTerms: terms}, nil
}
