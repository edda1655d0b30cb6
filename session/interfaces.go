package session

import (
	"context"

	"github.com/drake/ircterm/event"
	"github.com/drake/ircterm/irc"
	"github.com/drake/ircterm/network"
)

// Driver is the connection driver as seen by the session.
// *network.Client satisfies it.
type Driver interface {
	Queue() *network.Queue
	Messages() <-chan irc.Message
	Err() <-chan error
	Close(ctx context.Context) error
}

// IO is the interactive terminal. Close disposes the input side only;
// output keeps working so drained messages can still be shown.
type IO interface {
	Events() <-chan event.Input
	Print(text string)           // Inbound protocol line
	Echo(text string)            // Accepted user line
	EchoError(desc, text string) // Rejected user line with the reason
	Notice(text string)          // Client status line
	Close()
}

var _ Driver = (*network.Client)(nil)
