// Package ui provides the terminal front ends: a plain console and a
// Bubble Tea TUI.
package ui

import "github.com/drake/ircterm/event"

// UI defines the contract for the terminal display layer.
// Its first six methods are what the session drives.
type UI interface {
	Events() <-chan event.Input
	Print(text string)
	Echo(text string)
	EchoError(desc, text string)
	Notice(text string)
	Close()

	// SetAddress names the server for display.
	SetAddress(addr string)
	// Run starts the front end and blocks until it exits.
	Run() error
	Quit()
	Done() <-chan struct{}
}

var (
	_ UI = (*ConsoleUI)(nil)
	_ UI = (*BubbleTeaUI)(nil)
)
