package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.+?)\\s*```")

// ParseModelJSON extracts and parses JSON from model output. Models wrap
// their JSON in markdown fences or surrounding prose often enough that a
// plain json.Unmarshal is not reliable; this tries, in order:
// direct parsing, fenced-block extraction, and a balanced-brace scan.
func ParseModelJSON(input string, target interface{}) error {
	if input == "" {
		return fmt.Errorf("empty input")
	}

	if err := json.Unmarshal([]byte(input), target); err == nil {
		return nil
	}

	if m := fencedJSON.FindStringSubmatch(input); len(m) > 1 {
		candidate := strings.TrimSpace(m[1])
		if strings.HasPrefix(candidate, "{") || strings.HasPrefix(candidate, "[") {
			if err := json.Unmarshal([]byte(candidate), target); err == nil {
				return nil
			}
		}
	}

	for _, open := range []byte{'{', '['} {
		if start := strings.IndexByte(input, open); start >= 0 {
			if candidate := balancedFrom(input[start:]); candidate != "" {
				if err := json.Unmarshal([]byte(candidate), target); err == nil {
					return nil
				}
			}
		}
	}

	return fmt.Errorf("no parseable JSON in model output: %s", Truncate(input, 100))
}

// balancedFrom returns the shortest prefix of input that closes the
// opening brace/bracket at position 0, honoring JSON string escaping.
func balancedFrom(input string) string {
	if len(input) == 0 {
		return ""
	}
	open := input[0]
	var close byte
	switch open {
	case '{':
		close = '}'
	case '[':
		close = ']'
	default:
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(input); i++ {
		c := input[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return input[:i+1]
			}
		}
	}
	return ""
}

// Truncate shortens s to at most n runes for log/error messages.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
