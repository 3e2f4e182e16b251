package invoker

import (
	"encoding/json"
	"regexp"
	"strings"
)

// fencedJSONPattern matches a fenced code block, optionally tagged ```json,
// and captures its body. Compiled once at package init.
var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// extractJSON tries, in order: a direct parse of the full trimmed text, the
// body of the first fenced code block, and the slice from the first '{' to
// the last '}'; if none parses as an object it reports degraded=true so the
// caller falls back to a raw-text output at reduced confidence. The parser is intentionally forgiving, trying multiple
// extraction strategies before declaring the response unparsable.
func extractJSON(text string) (obj map[string]any, degraded bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, true
	}

	if obj, ok := tryParseObject(trimmed); ok {
		return obj, false
	}

	if match := fencedJSONPattern.FindStringSubmatch(trimmed); match != nil {
		if obj, ok := tryParseObject(strings.TrimSpace(match[1])); ok {
			return obj, false
		}
	}

	if obj, ok := tryParseObject(firstBraceSlice(trimmed)); ok {
		return obj, false
	}

	return nil, true
}

// tryParseObject attempts to unmarshal s as a JSON object (not an array or
// scalar — the output contract is always a map).
func tryParseObject(s string) (map[string]any, bool) {
	if s == "" {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// firstBraceSlice returns the substring from the first '{' to the last '}'
// in s, a last-resort recovery for responses that wrap valid JSON in
// conversational prose without fencing it.
func firstBraceSlice(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}
