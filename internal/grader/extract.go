package grader

import (
	"regexp"
	"strings"
)

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?)```")

// ExtractPayload pulls the most plausible JSON object out of raw model text.
// A fenced ```json block wins over bare text; otherwise the first balanced
// object is taken. When no closing brace balances (truncated output), the
// tail from the first opening brace is returned so the repair chain can work
// on it. ok is false only when the text contains no opening brace at all.
func ExtractPayload(raw string) (candidate string, ok bool) {
	if m := fencedBlockRe.FindStringSubmatch(raw); m != nil {
		candidate = strings.TrimSpace(m[1])
		if inner, found := matchBalanced(candidate); found {
			return inner, true
		}
		return candidate, true
	}

	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}
	if inner, found := matchBalanced(raw[start:]); found {
		return inner, true
	}
	return strings.TrimSpace(raw[start:]), true
}

// matchBalanced returns the prefix of s that forms one balanced JSON object,
// tracking string literals and escapes so braces inside values don't count.
func matchBalanced(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}
