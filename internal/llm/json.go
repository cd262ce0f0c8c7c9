package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoJSONObject indicates the completion contained no brace-delimited block.
var ErrNoJSONObject = errors.New("no JSON object found in completion")

// ExtractJSONObject returns the span from the first '{' to the last '}' in
// raw. Providers sometimes wrap the verdict in commentary or code fences.
func ExtractJSONObject(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", ErrNoJSONObject
	}
	return raw[start : end+1], nil
}

// DecodeObject extracts the JSON block from raw and decodes it into a
// generic map so callers can coerce loosely typed fields themselves.
func DecodeObject(raw string) (map[string]any, error) {
	block, err := ExtractJSONObject(raw)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(block), &obj); err != nil {
		return nil, fmt.Errorf("failed to parse verdict: %w", err)
	}
	return obj, nil
}

// Unit reads a numeric field and clamps it into [0,1]. Numeric strings are
// accepted; anything else reads as 0.
func Unit(obj map[string]any, key string) float64 {
	var v float64
	switch x := obj[key].(type) {
	case float64:
		v = x
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		v = parsed
	default:
		return 0
	}
	return Clamp01(v)
}

// IsTrue reports whether obj[key] is exactly the JSON value true.
func IsTrue(obj map[string]any, key string) bool {
	b, ok := obj[key].(bool)
	return ok && b
}

// String reads a string field, returning "" when absent or mistyped.
func String(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

// Strings reads an array of strings, skipping non-string members.
func Strings(obj map[string]any, key string) []string {
	arr, ok := obj[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// Clamp01 bounds v into [0,1]; NaN reads as 0.
func Clamp01(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// MaxSourceChars bounds how much of each source is quoted in a prompt.
const MaxSourceChars = 3000

// Truncate cuts s to at most n characters, counting runes.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
