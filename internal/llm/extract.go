package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Extract turns a free-form model reply into a JSON value. It strips surrounding
// whitespace and fences, locates the smallest object naming one of expectedKeys
// when the reply has leading prose, repairs double-escaped \n and \t sequences,
// and returns the parsed span. It never invents data: failure is a *ParseError.
func Extract(raw string, expectedKeys ...string) (json.RawMessage, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, &ParseError{Message: "empty model output"}
	}
	if inner, ok := unwrapFences(text); ok {
		text = inner
	}

	span := locateSpan(text, expectedKeys)
	if span == "" {
		return nil, &ParseError{Message: "no JSON object or array found", Excerpt: excerpt(raw)}
	}

	var lastErr error
	for _, candidate := range uniqueStrings(unescapeLiterals(span), span) {
		var v any
		if err := json.Unmarshal([]byte(candidate), &v); err != nil {
			lastErr = err
			continue
		}
		return json.RawMessage(candidate), nil
	}
	return nil, &ParseError{Message: "invalid JSON in model output", Excerpt: excerpt(span), Cause: lastErr}
}

// ExtractInto runs Extract and decodes the result into v.
func ExtractInto(raw string, v any, expectedKeys ...string) error {
	data, err := Extract(raw, expectedKeys...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &ParseError{Message: "model output does not match expected shape", Excerpt: excerpt(string(data)), Cause: err}
	}
	return nil
}

func locateSpan(text string, expectedKeys []string) string {
	if strings.HasPrefix(text, "{") {
		if span := extractJSONObject(text); span != "" {
			return span
		}
		return text
	}
	if strings.HasPrefix(text, "[") {
		if span := extractJSONArray(text); span != "" {
			return span
		}
		return text
	}
	if span := smallestObjectWithKey(text, expectedKeys); span != "" {
		return span
	}
	return firstJSONSpan(text)
}

// smallestObjectWithKey finds the shortest balanced {...} span containing one of
// keys as a quoted object key.
func smallestObjectWithKey(text string, keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	patterns := make([]*regexp.Regexp, 0, len(keys))
	for _, k := range keys {
		patterns = append(patterns, regexp.MustCompile(`"`+regexp.QuoteMeta(k)+`"\s*:`))
	}

	best := ""
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		span := extractJSONObject(text[i:])
		if span == "" || (best != "" && len(span) >= len(best)) {
			continue
		}
		for _, p := range patterns {
			if p.MatchString(span) {
				best = span
				break
			}
		}
	}
	return best
}

// unescapeLiterals repairs replies whose escapes were applied twice. Inside
// string literals \\n and \\t become \n and \t; outside them a literal \n, \r
// or \t sequence becomes the whitespace it names.
func unescapeLiterals(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inString {
			if c == '\\' && i+1 < len(s) {
				switch s[i+1] {
				case 'n':
					b.WriteByte('\n')
					i++
					continue
				case 't':
					b.WriteByte('\t')
					i++
					continue
				case 'r':
					b.WriteByte('\r')
					i++
					continue
				}
			}
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}

		if c == '\\' && i+2 < len(s) && s[i+1] == '\\' && (s[i+2] == 'n' || s[i+2] == 't') {
			b.WriteByte('\\')
			b.WriteByte(s[i+2])
			i += 2
			continue
		}
		if c == '\\' && i+1 < len(s) {
			b.WriteByte(c)
			b.WriteByte(s[i+1])
			i++
			continue
		}
		if c == '"' {
			inString = false
		}
		b.WriteByte(c)
	}
	return b.String()
}

func uniqueStrings(values ...string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
