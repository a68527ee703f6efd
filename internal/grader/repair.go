package grader

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/hkdse-ai/reading-grader/internal/domain"
	"github.com/hkdse-ai/reading-grader/pkg/textx"
)

// Strategy is one pure repair attempt. Apply transforms the candidate text;
// the chain accepts the first transformation whose output parses.
type Strategy struct {
	Name  string
	Apply func(string) (string, error)
}

// RepairChain tries strategies in order of increasing aggressiveness.
type RepairChain struct {
	strategies []Strategy
}

// NewRepairChain builds the default chain. Order matters: cheap, targeted
// fixes run before the jsonrepair library rewrites the whole document.
func NewRepairChain() *RepairChain {
	return &RepairChain{strategies: []Strategy{
		{Name: "as-is", Apply: func(s string) (string, error) { return s, nil }},
		{Name: "strip-control", Apply: func(s string) (string, error) { return textx.StripControl(s), nil }},
		{Name: "escape-raw-quotes", Apply: escapeRawQuotes},
		{Name: "strip-trailing-commas", Apply: stripTrailingCommas},
		{Name: "balance-close", Apply: balanceClose},
		{Name: "truncate-balanced", Apply: truncateBalanced},
		{Name: "jsonrepair", Apply: jsonrepair.JSONRepair},
	}}
}

// Run returns the first strategy output that parses as a JSON object, along
// with the strategy name that produced it.
func (c *RepairChain) Run(candidate string) (map[string]any, string, error) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return nil, "", fmt.Errorf("op=repair.Run: empty candidate: %w", domain.ErrSchemaInvalid)
	}
	var lastErr error
	for _, s := range c.strategies {
		fixed, err := s.Apply(candidate)
		if err != nil {
			lastErr = err
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(fixed), &obj); err != nil {
			lastErr = err
			continue
		}
		return obj, s.Name, nil
	}
	return nil, "", fmt.Errorf("op=repair.Run: all strategies failed: %w: %v", domain.ErrSchemaInvalid, lastErr)
}

var trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)

func stripTrailingCommas(s string) (string, error) {
	return trailingCommaRe.ReplaceAllString(s, "$1"), nil
}

// escapeRawQuotes escapes unescaped double quotes that appear inside string
// values, the most common corruption in model-written explanations. A quote
// closes the string only when the next non-space byte could legally follow a
// JSON string; otherwise it is treated as content and escaped.
func escapeRawQuotes(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			b.WriteByte(c)
			escaped = false
			continue
		}
		switch c {
		case '\\':
			b.WriteByte(c)
			if inString {
				escaped = true
			}
		case '"':
			if !inString {
				inString = true
				b.WriteByte(c)
				continue
			}
			if closesString(s, i+1) {
				inString = false
				b.WriteByte(c)
			} else {
				b.WriteString(`\"`)
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// closesString reports whether a quote ending at position i-1 is followed by
// a byte that can legally come after a JSON string value or key.
func closesString(s string, i int) bool {
	for ; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			continue
		case ',', '}', ']', ':':
			return true
		default:
			return false
		}
	}
	return true
}

// balanceClose appends the closing brackets a truncated document is missing,
// closing an unterminated string first.
func balanceClose(s string) (string, error) {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
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
		case '{', '[':
			if !inString {
				stack = append(stack, c)
			}
		case '}', ']':
			if !inString && len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if !inString && len(stack) == 0 {
		return s, nil
	}
	var b strings.Builder
	b.WriteString(strings.TrimRight(s, ", \t\n\r"))
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String(), nil
}

// truncateBalanced drops trailing garbage after the first balanced object;
// when no prefix balances it falls back to cutting at the last closing brace.
func truncateBalanced(s string) (string, error) {
	if inner, ok := matchBalanced(s); ok {
		return inner, nil
	}
	if i := strings.LastIndexByte(s, '}'); i >= 0 {
		return s[:i+1], nil
	}
	return "", fmt.Errorf("no closing brace")
}
