package llm

import (
	"regexp"
	"strings"
)

// fencePattern matches a markdown code fence: its info string and body.
var fencePattern = regexp.MustCompile("(?s)```[ \\t]*([A-Za-z0-9_+-]*)[^\\n]*\\n(.*?)```")

// openFencePattern matches an opening fence whose closing fence is missing,
// as happens when a response is cut off at the token limit.
var openFencePattern = regexp.MustCompile("(?s)```[ \\t]*([A-Za-z0-9_+-]*)[^\\n]*\\n(.*)$")

// ExtractFenced returns the body of the first code fence tagged with one
// of langs (case-insensitive), or of the first untagged fence whose body
// starts with '<'. A response that already starts with '<' is returned
// trimmed. The second result is false when nothing matched.
func ExtractFenced(content string, langs ...string) (string, bool) {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "<") {
		return trimmed, true
	}

	if body, ok := pickFence(fencePattern.FindAllStringSubmatch(content, -1), langs); ok {
		return body, true
	}
	if m := openFencePattern.FindStringSubmatch(content); m != nil {
		return pickFence([][]string{m}, langs)
	}
	return "", false
}

func pickFence(matches [][]string, langs []string) (string, bool) {
	for _, m := range matches {
		tag, body := strings.ToLower(m[1]), strings.TrimSpace(m[2])
		if tag == "" {
			if strings.HasPrefix(body, "<") {
				return body, true
			}
			continue
		}
		for _, l := range langs {
			if tag == strings.ToLower(l) {
				return body, true
			}
		}
	}
	return "", false
}

// StripFixed drops exactly prefix leading and suffix trailing runes, the
// way a fence of known length is sliced off. Content shorter than both
// together yields the empty string.
func StripFixed(content string, prefix, suffix int) string {
	r := []rune(content)
	if len(r) <= prefix+suffix {
		return ""
	}
	return string(r[prefix : len(r)-suffix])
}
