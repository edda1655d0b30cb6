// Package text cleans server-supplied text before it reaches the terminal.
package text

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// StripANSI removes ANSI escape codes from a string.
func StripANSI(s string) string {
	var result strings.Builder
	inEscape := false
	for _, r := range s {
		if r == '\x1b' {
			inEscape = true
			continue
		}
		if inEscape {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}

// Sanitize strips escape sequences and control bytes so a peer cannot
// move the cursor or clear the screen. IRC formatting bytes (bold, color)
// are control bytes too and are dropped. Tabs become a single space.
func Sanitize(s string) string {
	s = StripANSI(s)
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\t':
			result.WriteByte(' ')
		case r < 0x20 || r == 0x7f:
		case r >= 0x80 && r < 0xa0:
		default:
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Width returns the display width of s in terminal cells.
func Width(s string) int {
	return runewidth.StringWidth(StripANSI(s))
}

// Wrap splits s into chunks no wider than width cells. s should already
// be sanitized. A width of zero or less disables wrapping.
func Wrap(s string, width int) []string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return []string{s}
	}

	var lines []string
	var b strings.Builder
	w := 0
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if w+rw > width && w > 0 {
			lines = append(lines, b.String())
			b.Reset()
			w = 0
		}
		b.WriteRune(r)
		w += rw
	}
	return append(lines, b.String())
}
