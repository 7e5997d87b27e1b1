package detector

import (
	"testing"
)

func TestDetector_DetectISO(t *testing.T) {
	d := New("ko", "en", "uk")

	tests := []struct {
		name     string
		text     string
		wantCode string
		wantOK   bool
	}{
		{
			name:     "empty text",
			text:     "",
			wantCode: "",
			wantOK:   false,
		},
		{
			name:     "english text",
			text:     "The sword master raised his blade toward the sky.",
			wantCode: "EN",
			wantOK:   true,
		},
		{
			name:     "korean text",
			text:     "검성은 하늘을 향해 검을 들어 올렸다.",
			wantCode: "KO",
			wantOK:   true,
		},
		{
			name:     "ukrainian text",
			text:     "Майстер меча підняв клинок до неба.",
			wantCode: "UK",
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := d.DetectISO(tt.text)
			if ok != tt.wantOK {
				t.Errorf("DetectISO(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
				return
			}
			if tt.wantOK && code != tt.wantCode {
				t.Errorf("DetectISO(%q) = %q, want %q", tt.text, code, tt.wantCode)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		codes []string
		want  int
	}{
		{"plain codes", []string{"en", "ko"}, 2},
		{"region subtags stripped", []string{"en-US", "pt_BR"}, 2},
		{"duplicates collapsed", []string{"en", "EN", " en "}, 1},
		{"unknown code ignored", []string{"zz", "en"}, 1},
		{"none", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolve(tt.codes); len(got) != tt.want {
				t.Errorf("resolve(%v) returned %d languages, want %d", tt.codes, len(got), tt.want)
			}
		})
	}
}

func TestNew_FallsBackToAllLanguages(t *testing.T) {
	d := New("en")

	code, ok := d.DetectISO("Hallo, das ist ein längerer Test auf Deutsch.")
	if !ok || code != "DE" {
		t.Errorf("expected DE from the unrestricted detector, got %q (ok=%v)", code, ok)
	}
}
