package ui

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/drake/ircterm/event"
	"github.com/drake/ircterm/network"
	"github.com/drake/ircterm/ui/style"
)

// ConsoleUI implements a simple line-oriented UI over any reader and writer.
// Each scanned line is submitted as is. EOF finishes the session and a
// read error terminates it.
type ConsoleUI struct {
	in     io.Reader
	out    io.Writer
	styles style.Styles
	events chan event.Input

	outMu sync.Mutex

	closed    chan struct{} // input disposed
	closeOnce sync.Once
	done      chan struct{}
	doneOnce  sync.Once
}

// NewConsoleUI creates a console UI reading in and writing out.
func NewConsoleUI(in io.Reader, out io.Writer) *ConsoleUI {
	return &ConsoleUI{
		in:     in,
		out:    out,
		styles: style.New(lipgloss.NewRenderer(out)),
		events: make(chan event.Input, 64),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Events returns the channel of user input.
func (c *ConsoleUI) Events() <-chan event.Input {
	return c.events
}

// Print outputs an inbound line.
func (c *ConsoleUI) Print(text string) {
	c.write(kindServer, text, "")
}

// Echo outputs an accepted user line with the prompt prefix.
func (c *ConsoleUI) Echo(text string) {
	c.write(kindEcho, text, "")
}

// EchoError outputs a rejected user line with the reason.
func (c *ConsoleUI) EchoError(desc, text string) {
	c.write(kindError, text, desc)
}

// Notice outputs a client status line.
func (c *ConsoleUI) Notice(text string) {
	c.write(kindNotice, text, "")
}

func (c *ConsoleUI) write(kind lineKind, body, desc string) {
	line := render(c.styles, kind, formatLine(kind, body, desc))
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintln(c.out, line)
}

// SetAddress is a no-op; the console has no status bar.
func (c *ConsoleUI) SetAddress(string) {}

// Run starts reading input and blocks until input ends or Quit.
func (c *ConsoleUI) Run() error {
	scanDone := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(c.in)
		scanner.Buffer(make([]byte, 0, 4096), network.MaxLineLength)
		for scanner.Scan() {
			if !c.emit(event.Line(scanner.Text())) {
				scanDone <- nil
				return
			}
		}
		err := scanner.Err()
		if err != nil {
			c.emit(event.Input{Kind: event.InputTerminated, Text: err.Error()})
		} else {
			c.emit(event.Input{Kind: event.InputFinish})
		}
		scanDone <- err
	}()

	select {
	case <-c.done:
		return nil
	case err := <-scanDone:
		return err
	}
}

// emit delivers in unless the input side was closed.
func (c *ConsoleUI) emit(in event.Input) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case <-c.closed:
		return false
	case c.events <- in:
		return true
	}
}

// Close disposes the input side. Output keeps working.
func (c *ConsoleUI) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}

// Done returns a channel that closes when the UI is done
func (c *ConsoleUI) Done() <-chan struct{} {
	return c.done
}

// Quit requests the console UI to exit.
func (c *ConsoleUI) Quit() {
	c.Close()
	c.doneOnce.Do(func() {
		close(c.done)
	})
}
