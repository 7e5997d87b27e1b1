package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
)

type mockBackend struct {
	reply      string
	err        error
	calls      atomic.Int32
	lastSystem string
	lastUser   string
}

func (m *mockBackend) Name() string { return "mock" }

func (m *mockBackend) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	m.calls.Add(1)
	m.lastSystem = systemPrompt
	m.lastUser = userPrompt
	return m.reply, m.err
}

type mockChecker struct {
	valid bool
}

func (m mockChecker) IsValid(text, lang string) (bool, error) {
	if m.valid {
		return true, nil
	}
	return false, fmt.Errorf("expected %s", lang)
}

func TestLLMTranslator_Success(t *testing.T) {
	backend := &mockBackend{reply: `{"translatedLine":"Hello.","newTerms":[{"from":"A","to":"B"}]}`}
	tr := NewLLMTranslator(backend)

	res, err := tr.Translate(context.Background(), Request{SourceLang: "ko", TargetLang: "en", Line: "안녕."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TranslatedLine != "Hello." || len(res.NewTerms) != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
	if !strings.Contains(backend.lastUser, `"currentLine": "안녕."`) {
		t.Errorf("user prompt should carry the request document, got %s", backend.lastUser)
	}
	if tr.Name() != "mock" {
		t.Errorf("expected name mock, got %q", tr.Name())
	}
}

func TestLLMTranslator_BackendError(t *testing.T) {
	tr := NewLLMTranslator(&mockBackend{err: errors.New("status 503")})

	if _, err := tr.Translate(context.Background(), Request{Line: "x"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestLLMTranslator_MalformedReply(t *testing.T) {
	tr := NewLLMTranslator(&mockBackend{reply: "not json"})

	_, err := tr.Translate(context.Background(), Request{Line: "x"})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestLLMTranslator_Validator(t *testing.T) {
	reply := `{"translatedLine":"Hello.","newTerms":[]}`

	tr := NewLLMTranslator(&mockBackend{reply: reply})
	tr.SetValidator(mockChecker{valid: false})
	if _, err := tr.Translate(context.Background(), Request{TargetLang: "en", Line: "x"}); !errors.Is(err, ErrWrongLanguage) {
		t.Fatalf("expected ErrWrongLanguage, got %v", err)
	}

	tr.SetValidator(mockChecker{valid: true})
	if _, err := tr.Translate(context.Background(), Request{TargetLang: "en", Line: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	if _, err := New(context.Background(), Config{Provider: "babelfish"}, nil, "ko", "en"); err == nil {
		t.Error("expected error for unknown provider")
	}
}
