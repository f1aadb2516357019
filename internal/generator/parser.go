package generator

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"unicode"
)

// ErrNoJSON is returned when no JSON value can be recovered from a response.
var ErrNoJSON = errors.New("no JSON found in response")

var fenceRe = regexp.MustCompile("^```(?:json)?\\s*\\n?|\\n?```\\s*$")

// ExtractJSON recovers a JSON value from model output. The unfenced text is
// tried as-is, then with single quotes swapped for double quotes, then with
// control characters removed; each time whole first and then as its first
// balanced object or array.
func ExtractJSON(text string) (any, error) {
	cleaned := stripCodeFences(text)
	if cleaned == "" {
		return nil, ErrNoJSON
	}

	repairs := []func(string) string{
		func(s string) string { return s },
		func(s string) string { return strings.ReplaceAll(s, "'", `"`) },
		stripControlChars,
	}
	for _, repair := range repairs {
		s := repair(cleaned)
		for _, candidate := range []string{s, firstBalanced(s)} {
			if candidate == "" {
				continue
			}
			var v any
			if err := json.Unmarshal([]byte(candidate), &v); err == nil {
				return v, nil
			}
		}
	}
	return nil, ErrNoJSON
}

// stripCodeFences removes markdown fences and per-line indentation.
func stripCodeFences(s string) string {
	s = fenceRe.ReplaceAllString(strings.TrimSpace(s), "")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// firstBalanced returns the first complete {...} or [...] in s, whichever
// opens first. Brackets inside string literals are ignored.
func firstBalanced(s string) string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	opening := s[start]
	closing := byte('}')
	if opening == '[' {
		closing = ']'
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == opening:
			depth++
		case c == closing:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)
}

// StringList returns the non-empty strings stored under key in obj.
func StringList(obj map[string]any, key string) []string {
	raw, _ := obj[key].([]any)
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
