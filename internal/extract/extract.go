// Package extract pulls a JSON payload out of free-form generator output.
//
// Generators are asked for JSON but routinely wrap it in prose or Markdown.
// Decoding tries, in order: the first ```json fenced block, the whole trimmed
// text, and finally every balanced bracket (or brace) region in order of
// appearance, with arrays of objects ahead of other arrays so that prose
// such as "top [2] picks" is passed over. The first candidate that decodes
// into the target wins. Anything else is a
// MalformedResponseError, which callers treat as an empty result.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/lepinkainen/bookmind/internal/errors"
)

var fencedJSON = regexp.MustCompile("(?is)```json[ \\t]*\\r?\\n?(.*?)```")

// Array decodes the first JSON array found in text into v, which must be a
// pointer to a slice.
func Array(text string, v any) error {
	return decode(text, '[', ']', v)
}

// Object decodes the first JSON object found in text into v.
func Object(text string, v any) error {
	return decode(text, '{', '}', v)
}

func decode(text string, open, close byte, v any) error {
	for _, candidate := range candidates(text, open, close) {
		if err := json.Unmarshal([]byte(candidate), v); err == nil {
			return nil
		}
	}
	if strings.TrimSpace(text) == "" {
		return errors.NewMalformedResponseError("empty response")
	}
	return errors.NewMalformedResponseError("no decodable JSON payload")
}

func candidates(text string, open, close byte) []string {
	var out []string
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		out = append(out, strings.TrimSpace(m[1]))
	}
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		out = append(out, trimmed)
	}
	var records, others []string
	for start := 0; start < len(text); start++ {
		if text[start] != open {
			continue
		}
		region, ok := balancedAt(text, start, open, close)
		if !ok {
			continue
		}
		if open == '[' && opensObject(region) {
			records = append(records, region)
		} else {
			others = append(others, region)
		}
	}
	out = append(out, records...)
	return append(out, others...)
}

// opensObject reports whether an array region's first element is an object.
func opensObject(region string) bool {
	rest := strings.TrimLeft(region[1:], " \t\r\n")
	return strings.HasPrefix(rest, "{")
}

// Balanced returns the first region of text that starts with open and ends at
// the matching close, ignoring delimiters inside JSON string literals.
func Balanced(text string, open, close byte) (string, bool) {
	start := strings.IndexByte(text, open)
	if start < 0 {
		return "", false
	}
	return balancedAt(text, start, open, close)
}

func balancedAt(text string, start int, open, close byte) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
