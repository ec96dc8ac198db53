// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import "strings"

const fence = "```"

// CleanJSONBlock removes markdown code fences from a model reply. Prose around
// the payload is left in place; Extract locates the value using the caller's
// expected keys.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if inner, ok := unwrapFences(text); ok {
		return inner
	}
	return text
}

// unwrapFences returns the content of the outermost fenced block, repeatedly, so
// nested fences collapse to their innermost payload.
func unwrapFences(text string) (string, bool) {
	found := false
	for {
		open := strings.Index(text, fence)
		if open < 0 {
			return text, found
		}
		rest := text[open+len(fence):]

		// Skip a language identifier such as "json" on the opening line.
		if idx := strings.Index(rest, "\n"); idx >= 0 {
			firstLine := strings.TrimSpace(rest[:idx])
			if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.ContainsAny(firstLine, "{[") {
				rest = rest[idx+1:]
			}
		}
		if closeIdx := strings.LastIndex(rest, fence); closeIdx >= 0 {
			rest = rest[:closeIdx]
		}

		next := strings.TrimSpace(rest)
		if next == text {
			return text, found
		}
		text = next
		found = true
		if !strings.HasPrefix(text, fence) {
			return text, found
		}
	}
}

// firstJSONSpan returns the first balanced object or array in text.
func firstJSONSpan(text string) string {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			if span := extractJSONObject(text[i:]); span != "" {
				return span
			}
		case '[':
			if span := extractJSONArray(text[i:]); span != "" {
				return span
			}
		}
	}
	return ""
}

// extractJSONObject returns the balanced object at the start of s, or "" when s
// does not start with '{' or never closes.
func extractJSONObject(s string) string {
	return balancedSpan(s, '{', '}')
}

// extractJSONArray returns the balanced array at the start of s, or "".
func extractJSONArray(s string) string {
	return balancedSpan(s, '[', ']')
}

// balancedSpan scans from s[0] counting open/close outside string literals.
func balancedSpan(s string, open, close byte) string {
	if s == "" || s[0] != open {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}
