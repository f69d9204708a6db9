package llm

import (
	"regexp"
	"strings"
)

var (
	// jsonBlockRe matches a JSON object inside a markdown code fence.
	jsonBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	// jsonObjectRe matches any JSON object as a greedy fallback.
	jsonObjectRe = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	// trailingCommaRe matches trailing commas before ] or }.
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON pulls a JSON object out of a model response. Models wrap
// JSON in markdown fences and emit trailing commas; both are stripped so
// the result can go straight to json.Unmarshal.
func ExtractJSON(content string) string {
	raw := ""
	if m := jsonBlockRe.FindStringSubmatch(content); len(m) > 1 {
		raw = m[1]
	} else {
		raw = jsonObjectRe.FindString(content)
	}
	if raw == "" {
		return ""
	}
	return trailingCommaRe.ReplaceAllString(strings.TrimSpace(raw), "$1")
}

// StripCodeFences removes a surrounding markdown code fence from generated
// source code, leaving the code itself untouched.
func StripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return trimmed
	}
	// Drop the opening fence with its optional language tag.
	lines = lines[1:]
	// Drop the closing fence when present.
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
