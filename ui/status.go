package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/drake/ircterm/ui/style"
)

// LinkState is what the status bar shows about the connection.
type LinkState int

const (
	LinkConnected LinkState = iota
	LinkClosing
	LinkClosed
)

// StatusBar displays the server address, link state and scroll mode.
type StatusBar struct {
	addr       string
	link       LinkState
	scrollMode ScrollMode
	newLines   int
	width      int
	styles     style.Styles
}

// NewStatusBar creates a new status bar.
func NewStatusBar(styles style.Styles) StatusBar {
	return StatusBar{styles: styles}
}

// SetWidth updates the status bar width.
func (s *StatusBar) SetWidth(w int) {
	s.width = w
}

// SetAddress sets the server shown on the left.
func (s *StatusBar) SetAddress(addr string) {
	s.addr = addr
}

// SetLink updates the connection indicator.
func (s *StatusBar) SetLink(link LinkState) {
	s.link = link
}

// SetScrollMode updates the scroll mode indicator.
func (s *StatusBar) SetScrollMode(mode ScrollMode, newLines int) {
	s.scrollMode = mode
	s.newLines = newLines
}

// View renders the status bar.
func (s *StatusBar) View() string {
	var left string
	switch s.link {
	case LinkConnected:
		left = s.styles.StatusConnected.Render("● " + s.addr)
	case LinkClosing:
		left = s.styles.StatusClosing.Render("● Closing " + s.addr)
	case LinkClosed:
		left = s.styles.StatusClosed.Render("● Closed")
	}

	var right string
	switch s.scrollMode {
	case ModeLive:
		right = s.styles.StatusLive.Render("LIVE")
	case ModeScrolled:
		if s.newLines > 0 {
			right = s.styles.StatusScrolled.Render(fmt.Sprintf("SCROLLED (%d new)", s.newLines))
		} else {
			right = s.styles.StatusScrolled.Render("SCROLLED")
		}
	}

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}
	return s.styles.StatusBar.Render(left + strings.Repeat(" ", padding) + right)
}
