// Package structured decodes the JSON objects models return at stage boundaries.
package structured

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var ErrEmpty = errors.New("empty model output")

// StripFence removes a surrounding markdown code fence (``` or ```json).
func StripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		lang := strings.TrimSpace(s[:nl])
		if lang == "" || lang == "json" || lang == "JSON" {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Decode parses exactly one JSON object into T. Prose around the object,
// trailing data and non-object values are rejected rather than repaired.
func Decode[T any](raw string) (T, error) {
	var out T

	body := StripFence(raw)
	if body == "" {
		return out, ErrEmpty
	}
	if !strings.HasPrefix(body, "{") {
		return out, fmt.Errorf("expected a JSON object, got %q", preview(body))
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("decode model output: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return out, fmt.Errorf("trailing data after JSON object")
	}
	return out, nil
}

func preview(s string) string {
	n := 60
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
