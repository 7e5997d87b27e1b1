package translator

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/valpere/noveltran/internal"
	"github.com/valpere/noveltran/internal/window"
)

func TestBuildRequestDocument(t *testing.T) {
	doc, err := BuildRequestDocument(Request{
		SourceLang:    "ko",
		TargetLang:    "en",
		ExistingTerms: []internal.TermPair{{From: "검성", To: "Sword Saint"}},
		Context:       []window.Entry{{Source: "안녕", Target: "Hello"}},
		Line:          "검성이 왔다.",
		Lookahead:     []string{"모두가 놀랐다."},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got map[string]interface{}
	if err := json.Unmarshal([]byte(doc), &got); err != nil {
		t.Fatalf("document is not valid JSON: %v", err)
	}

	for _, key := range []string{"sourceLanguage", "targetLanguage", "existingTerms", "contextWindow", "currentLine", "lookaheadLines"} {
		if _, ok := got[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	if got["currentLine"] != "검성이 왔다." {
		t.Errorf("currentLine = %v", got["currentLine"])
	}
	ctx := got["contextWindow"].([]interface{})[0].(map[string]interface{})
	if ctx["source"] != "안녕" || ctx["target"] != "Hello" {
		t.Errorf("contextWindow entry = %v", ctx)
	}
}

func TestBuildRequestDocument_EmptySlicesAreArrays(t *testing.T) {
	doc, err := BuildRequestDocument(Request{SourceLang: "ko", TargetLang: "en", Line: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(doc, "null") {
		t.Errorf("expected empty arrays, got %s", doc)
	}
}

func TestSystemPrompt_NamesLanguages(t *testing.T) {
	p := SystemPrompt("Korean", "English")
	if !strings.Contains(p, "Korean") || !strings.Contains(p, "English") {
		t.Error("system prompt should name both languages")
	}
	if !strings.Contains(p, "translatedLine") || !strings.Contains(p, "newTerms") {
		t.Error("system prompt should describe the reply fields")
	}
}
