package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/drake/ircterm/event"
	"github.com/drake/ircterm/irc"
	"github.com/drake/ircterm/network"
)

// fakeDriver records what was flushed at Close and closes its stream.
type fakeDriver struct {
	queue *network.Queue
	msgs  chan irc.Message
	errs  chan error

	mu       sync.Mutex
	closes   int
	hungUp   bool
	flushed  []irc.Message
	closeErr error
	// onClose runs before the stream is closed, e.g. to deliver late messages.
	onClose func(msgs chan<- irc.Message)
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		queue: network.NewQueue(),
		msgs:  make(chan irc.Message, 256),
		errs:  make(chan error, 1),
	}
}

func (d *fakeDriver) Queue() *network.Queue        { return d.queue }
func (d *fakeDriver) Messages() <-chan irc.Message { return d.msgs }
func (d *fakeDriver) Err() <-chan error            { return d.errs }

func (d *fakeDriver) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes++
	for {
		msg, ok := d.queue.Pop()
		if !ok {
			break
		}
		d.flushed = append(d.flushed, msg)
	}
	if !d.hungUp {
		if d.onClose != nil {
			d.onClose(d.msgs)
		}
		d.hungUp = true
		close(d.msgs)
	}
	return d.closeErr
}

// fail reports err and then ends the inbound stream, as the reader does.
func (d *fakeDriver) fail(err error) {
	d.errs <- err
	d.hangUp()
}

func (d *fakeDriver) hangUp() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.hungUp {
		d.hungUp = true
		close(d.msgs)
	}
}

func (d *fakeDriver) Flushed() []irc.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]irc.Message(nil), d.flushed...)
}

func (d *fakeDriver) Closes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}

// fakeIO records every call in order.
type fakeIO struct {
	events chan event.Input

	mu     sync.Mutex
	calls  []string
	closed int
}

func newFakeIO() *fakeIO {
	return &fakeIO{events: make(chan event.Input, 16)}
}

func (f *fakeIO) Events() <-chan event.Input { return f.events }

func (f *fakeIO) record(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeIO) Print(text string)           { f.record("print %s", text) }
func (f *fakeIO) Echo(text string)            { f.record("echo %s", text) }
func (f *fakeIO) EchoError(desc, text string) { f.record("error [%s] %s", desc, text) }
func (f *fakeIO) Notice(text string)          { f.record("notice %s", text) }

func (f *fakeIO) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	f.calls = append(f.calls, "close")
}

func (f *fakeIO) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeIO) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
