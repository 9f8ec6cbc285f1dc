package util

import (
	"strings"
	"unicode/utf8"
)

// DecodeText turns raw file bytes into a string, replacing invalid UTF-8
// sequences with U+FFFD and dropping NUL bytes.
func DecodeText(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	s := strings.ToValidUTF8(string(b), string(utf8.RuneError))
	return strings.ReplaceAll(s, "\x00", "")
}

// TruncateRunes returns the first max code points of s. A non-positive max
// returns s unchanged.
func TruncateRunes(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
