package ui

import (
	"github.com/drake/ircterm/text"
	"github.com/drake/ircterm/ui/style"
)

// Prompt precedes the input line and every echoed line.
const Prompt = "-> "

// lineKind tells the front ends how to present a line.
type lineKind int

const (
	kindServer lineKind = iota
	kindEcho
	kindError
	kindNotice
)

// formatLine renders one logical line as plain text. Styling is applied
// afterwards so wrapping can measure the plain form.
func formatLine(kind lineKind, body, desc string) string {
	body = text.Sanitize(body)
	switch kind {
	case kindEcho:
		return Prompt + body
	case kindError:
		return Prompt + "[" + text.Sanitize(desc) + "] " + body
	case kindNotice:
		return "*** " + body
	default:
		return body
	}
}

// render applies the style for kind to an already formatted line.
func render(s style.Styles, kind lineKind, line string) string {
	switch kind {
	case kindEcho:
		return s.Echo.Render(line)
	case kindError:
		return s.Error.Render(line)
	case kindNotice:
		return s.Notice.Render(line)
	default:
		return line
	}
}
