package record

import (
	"bytes"
	"errors"
	"unicode/utf8"
)

var ErrInvalidText = errors.New("record: text is not valid utf-8")

// Text converts raw record bytes for display. Trailing NULs are dropped.
func Text(b []byte) (string, error) {
	b = bytes.TrimRight(b, "\x00")
	if !utf8.Valid(b) {
		return "", ErrInvalidText
	}
	return string(b), nil
}
