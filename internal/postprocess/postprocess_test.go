package postprocess

import "testing"

func TestRemoveThinkingBlocks(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "no thinking blocks",
			input:    `{"translatedLine":"Hi"}`,
			expected: `{"translatedLine":"Hi"}`,
		},
		{
			name:     "think block before object",
			input:    `<think>the user wants JSON</think>{"a":1}`,
			expected: `{"a":1}`,
		},
		{
			name:     "reasoning block, case-insensitive",
			input:    `<REASONING>Analyzing</REASONING> {"a":1}`,
			expected: `{"a":1}`,
		},
		{
			name:     "multiple blocks",
			input:    "<thinking>First</thinking>middle<reflection>Second</reflection>",
			expected: "middle",
		},
		{
			name:     "truncated thinking block",
			input:    "<thinking>Translation in progress",
			expected: "",
		},
		{
			name:     "truncated thinking after content",
			input:    `{"a":1}<think>cut off`,
			expected: `{"a":1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := removeThinkingBlocks(tt.input)
			if got != tt.expected {
				t.Errorf("removeThinkingBlocks(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRemoveCodeFence(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"single-line fence", "```{\"a\":1}```", `{"a":1}`},
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"unterminated fence untouched", "```json\n{\"a\":1}", "```json\n{\"a\":1}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := removeCodeFence(tt.input)
			if got != tt.expected {
				t.Errorf("removeCodeFence(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain object",
			input:    `  {"translatedLine":"Hi","newTerms":[]}  `,
			expected: `{"translatedLine":"Hi","newTerms":[]}`,
		},
		{
			name:     "prose around object",
			input:    `Sure! Here is the JSON: {"translatedLine":"Hi"} Hope this helps.`,
			expected: `{"translatedLine":"Hi"}`,
		},
		{
			name:     "thinking plus fence",
			input:    "<think>ok</think>\n```json\n{\"translatedLine\":\"Hi\"}\n```",
			expected: `{"translatedLine":"Hi"}`,
		},
		{
			name:     "nested braces preserved",
			input:    `{"newTerms":[{"from":"a","to":"b"}]}`,
			expected: `{"newTerms":[{"from":"a","to":"b"}]}`,
		},
		{
			name:     "no object at all",
			input:    "I cannot translate this.",
			expected: "I cannot translate this.",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanJSON(tt.input)
			if got != tt.expected {
				t.Errorf("CleanJSON(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
