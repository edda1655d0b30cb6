package irc

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DecodeLine converts raw wire bytes to text.
// IRC has no mandated charset; lines that are not valid UTF-8 are read as Latin-1,
// which maps every byte to a rune and so never fails.
func DecodeLine(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
