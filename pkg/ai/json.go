package ai

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSONFound is matched by every *NoJSONFoundError.
var ErrNoJSONFound = errors.New("no valid JSON object found in model output")

// NoJSONFoundError is returned by ExtractJSONObject when the text contains no
// position at which a JSON object can be decoded. Raw holds the trimmed text
// so callers can log what the model actually produced.
type NoJSONFoundError struct {
	Raw string
}

func (e *NoJSONFoundError) Error() string {
	return ErrNoJSONFound.Error() + ":\n" + e.Raw
}

func (e *NoJSONFoundError) Is(target error) bool {
	return target == ErrNoJSONFound
}

// ExtractJSONObject returns the first JSON object embedded in text.
//
// Model output often wraps the object in prose, markdown fences or a second
// attempt. Every '{' is tried left to right as the start of one strict JSON
// value; bytes after that value are ignored. The first start that decodes
// wins, so of two objects in sequence only the first is returned. Nothing is
// repaired: a malformed object is skipped, not fixed.
func ExtractJSONObject(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)

	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		var obj map[string]any
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		if err := dec.Decode(&obj); err != nil {
			continue
		}
		return obj, nil
	}

	return nil, &NoJSONFoundError{Raw: text}
}
