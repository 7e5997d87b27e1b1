package translator

import (
	"encoding/json"
	"fmt"

	"github.com/valpere/noveltran/internal"
	"github.com/valpere/noveltran/internal/window"
)

// requestDocument is the JSON payload sent as the user message.
type requestDocument struct {
	SourceLanguage string              `json:"sourceLanguage"`
	TargetLanguage string              `json:"targetLanguage"`
	ExistingTerms  []internal.TermPair `json:"existingTerms"`
	ContextWindow  []window.Entry      `json:"contextWindow"`
	CurrentLine    string              `json:"currentLine"`
	LookaheadLines []string            `json:"lookaheadLines"`
}

// BuildRequestDocument renders req as the structured request the model is
// instructed to answer. Nil slices are emitted as empty arrays.
func BuildRequestDocument(req Request) (string, error) {
	doc := requestDocument{
		SourceLanguage: req.SourceLang,
		TargetLanguage: req.TargetLang,
		ExistingTerms:  req.ExistingTerms,
		ContextWindow:  req.Context,
		CurrentLine:    req.Line,
		LookaheadLines: req.Lookahead,
	}
	if doc.ExistingTerms == nil {
		doc.ExistingTerms = []internal.TermPair{}
	}
	if doc.ContextWindow == nil {
		doc.ContextWindow = []window.Entry{}
	}
	if doc.LookaheadLines == nil {
		doc.LookaheadLines = []string{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	return string(data), nil
}

// SystemPrompt describes the task and the reply contract.
func SystemPrompt(sourceLang, targetLang string) string {
	return fmt.Sprintf(`You are a professional literary translator working on a serialized novel, translating from %s to %s.

You receive a JSON document with these fields:
  sourceLanguage, targetLanguage: the language pair.
  existingTerms: established translations of names and recurring terms. Use them exactly.
  contextWindow: the most recent source lines and how they were translated. Keep tone, tense and names consistent with them. Do not retranslate them.
  currentLine: the only line you must translate.
  lookaheadLines: the lines that follow, for disambiguation only. Do not translate them.

Reply with a single JSON object and nothing else:
  {"translatedLine": "<translation of currentLine>", "newTerms": [{"from": "<source term>", "to": "<translation>"}]}

translatedLine must be one line of text in %s.
newTerms lists proper nouns, titles, techniques and other recurring terms from currentLine that are not already in existingTerms. Use an empty array when there are none.`,
		sourceLang, targetLang, targetLang)
}
