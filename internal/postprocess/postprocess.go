// Package postprocess strips the wrapping that chat models put around a
// structured reply so the JSON body can be decoded.
package postprocess

import (
	"regexp"
	"strings"
)

// CleanJSON removes model artifacts around a JSON object and returns the
// trimmed candidate document:
//  1. Thinking / reasoning block removal
//  2. Markdown code fence removal
//  3. Cropping to the outermost {...} span
//
// The result is not guaranteed to be valid JSON; the caller decodes it.
func CleanJSON(text string) string {
	text = removeThinkingBlocks(text)
	text = removeCodeFence(text)
	text = cropToObject(text)
	return strings.TrimSpace(text)
}

// thinkingBlockRe matches complete <thinking>…</thinking> style blocks.
// RE2 has no backreferences, so every tag pair is listed.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// truncatedThinkingRe matches an opened thinking tag whose closing tag is
// missing (the model was cut off mid-thought).
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// codeFenceRe matches a reply wrapped in ``` or ```json fences.
var codeFenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n?(.*?)\\n?```$")

func removeCodeFence(text string) string {
	if m := codeFenceRe.FindStringSubmatch(strings.TrimSpace(text)); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// cropToObject drops any prose before the first '{' and after the last '}'.
// Text without a brace pair is returned unchanged.
func cropToObject(text string) string {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return text
	}
	return text[start : end+1]
}
