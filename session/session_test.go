package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drake/ircterm/event"
	"github.com/drake/ircterm/irc"
	"github.com/drake/ircterm/network"
)

func mustParse(t *testing.T, line string) irc.Message {
	t.Helper()
	msg, err := irc.Parse(line)
	require.NoError(t, err)
	return msg
}

// run starts the session and returns a channel carrying Run's result.
func run(ctx context.Context, s *Session) <-chan error {
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return done
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
	}
	return nil
}

func commands(msgs []irc.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Command
	}
	return out
}

func TestSubmitLineIsQueuedAndEchoed(t *testing.T) {
	d, io := newFakeDriver(), newFakeIO()
	s := New(d, io, Config{})

	io.events <- event.Line("PRIVMSG #chan :hi")
	io.events <- event.Input{Kind: event.InputQuit}

	require.NoError(t, wait(t, run(context.Background(), s)))

	flushed := d.Flushed()
	require.Len(t, flushed, 2)
	assert.Equal(t, irc.CmdPrivmsg, flushed[0].Command)
	assert.Equal(t, []string{"#chan", "hi"}, flushed[0].Params)
	assert.Equal(t, irc.CmdQuit, flushed[1].Command)

	assert.Equal(t, []string{
		"echo PRIVMSG #chan :hi",
		"echo QUIT :goodbye",
		"close",
	}, io.Calls())
	assert.Equal(t, uint64(2), s.Stats().Queued)
}

func TestQuitSendsFarewellOnce(t *testing.T) {
	for _, kind := range []event.Kind{event.InputQuit, event.InputFinish, event.InputTerminated} {
		t.Run(kind.String(), func(t *testing.T) {
			d, io := newFakeDriver(), newFakeIO()
			s := New(d, io, Config{})

			io.events <- event.Input{Kind: kind}
			// Anything after the first ending input is never consumed.
			io.events <- event.Input{Kind: event.InputQuit}

			require.NoError(t, wait(t, run(context.Background(), s)))

			flushed := d.Flushed()
			require.Len(t, flushed, 1)
			line, err := irc.Serialize(flushed[0])
			require.NoError(t, err)
			assert.Equal(t, "QUIT :goodbye", line)

			assert.Equal(t, State{Phase: Drained, Reason: ReasonUserQuit}, s.State())
			assert.Equal(t, 1, io.Closed())
			assert.Equal(t, 1, d.Closes())
		})
	}
}

func TestOtherInputIsIgnored(t *testing.T) {
	d, io := newFakeDriver(), newFakeIO()
	s := New(d, io, Config{})

	io.events <- event.Input{Kind: event.InputOther}
	io.events <- event.Line("")
	io.events <- event.Input{Kind: event.InputQuit}

	require.NoError(t, wait(t, run(context.Background(), s)))
	assert.Equal(t, []string{irc.CmdQuit}, commands(d.Flushed()))
	assert.Equal(t, []string{"echo QUIT :goodbye", "close"}, io.Calls())
}

func TestInputSourceClosedActsAsTerminated(t *testing.T) {
	d, io := newFakeDriver(), newFakeIO()
	s := New(d, io, Config{})

	close(io.events)

	require.NoError(t, wait(t, run(context.Background(), s)))
	assert.Equal(t, []string{irc.CmdQuit}, commands(d.Flushed()))
}

func TestContextCancelSendsFarewell(t *testing.T) {
	d, io := newFakeDriver(), newFakeIO()
	s := New(d, io, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	done := run(ctx, s)
	cancel()

	require.NoError(t, wait(t, done))
	assert.Equal(t, []string{irc.CmdQuit}, commands(d.Flushed()))
	assert.Equal(t, ReasonUserQuit, s.State().Reason)
}

func TestParseFailureIsIsolated(t *testing.T) {
	d, io := newFakeDriver(), newFakeIO()
	s := New(d, io, Config{})

	done := run(context.Background(), s)
	io.events <- event.Line("PRIVMSG #chan :a\x00b")

	require.Eventually(t, func() bool {
		return len(io.Calls()) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Contains(t, io.Calls()[0], "error [")
	assert.Contains(t, io.Calls()[0], irc.ErrBadChar.Error())
	assert.Equal(t, Connected, s.State().Phase)
	assert.Equal(t, 0, d.Queue().Len())

	io.events <- event.Line("NOTICE #chan :fine")
	io.events <- event.Input{Kind: event.InputQuit}
	require.NoError(t, wait(t, done))

	assert.Equal(t, []string{irc.CmdNotice, irc.CmdQuit}, commands(d.Flushed()))
}

func TestPeerErrorClosesWithoutFarewell(t *testing.T) {
	d, io := newFakeDriver(), newFakeIO()
	s := New(d, io, Config{})

	d.msgs <- mustParse(t, ":irc.example.net NOTICE * :hello")
	d.msgs <- mustParse(t, "ERROR :Closing Link: banned")

	require.NoError(t, wait(t, run(context.Background(), s)))

	assert.Empty(t, d.Flushed())
	assert.True(t, s.PeerError())
	assert.Equal(t, State{Phase: Drained, Reason: ReasonPeerError}, s.State())
	assert.Equal(t, []string{
		"print :irc.example.net NOTICE * hello",
		"print ERROR :Closing Link: banned",
		"close",
	}, io.Calls())
}

func TestDriverFailureIsReturned(t *testing.T) {
	d, io := newFakeDriver(), newFakeIO()
	s := New(d, io, Config{})

	d.fail(network.ErrConnectionClosed)

	err := wait(t, run(context.Background(), s))
	assert.ErrorIs(t, err, network.ErrConnectionClosed)
	assert.Empty(t, d.Flushed(), "no farewell after a driver failure")
	assert.Equal(t, State{Phase: Drained, Reason: ReasonDriverError}, s.State())
	assert.Contains(t, io.Calls()[0], "notice connection error")
}

func TestPeerErrorDuringDrainIsRecorded(t *testing.T) {
	d, io := newFakeDriver(), newFakeIO()
	s := New(d, io, Config{})

	d.onClose = func(msgs chan<- irc.Message) {
		msgs <- mustParse(t, "ERROR :Closing Link: quit")
	}
	io.events <- event.Input{Kind: event.InputQuit}

	require.NoError(t, wait(t, run(context.Background(), s)))
	assert.True(t, s.PeerError())
	// The reason stays with the first cause.
	assert.Equal(t, ReasonUserQuit, s.State().Reason)
}

func TestFailureWaitsForInboundInFlight(t *testing.T) {
	d, io := newFakeDriver(), newFakeIO()
	s := New(d, io, Config{})

	// The failure is visible before the data decoded ahead of it.
	d.errs <- errors.New("read: connection reset by peer")
	done := run(context.Background(), s)

	time.Sleep(20 * time.Millisecond)
	io.events <- event.Input{Kind: event.InputQuit}
	d.msgs <- mustParse(t, "ERROR :Closing Link: ping timeout")
	d.hangUp()

	require.NoError(t, wait(t, done))
	assert.True(t, s.PeerError())
	assert.Equal(t, State{Phase: Drained, Reason: ReasonPeerError}, s.State())
	assert.Empty(t, d.Flushed(), "input is not read while a failure is held")
	assert.Equal(t, []string{
		"print ERROR :Closing Link: ping timeout",
		"close",
	}, io.Calls())
}

func TestHeldFailureAppliesWhenStreamEnds(t *testing.T) {
	d, io := newFakeDriver(), newFakeIO()
	s := New(d, io, Config{})

	d.errs <- network.ErrConnectionClosed
	done := run(context.Background(), s)

	time.Sleep(20 * time.Millisecond)
	d.msgs <- mustParse(t, "NOTICE * :last words")
	d.hangUp()

	err := wait(t, done)
	assert.ErrorIs(t, err, network.ErrConnectionClosed)
	assert.Equal(t, ReasonDriverError, s.State().Reason)
	calls := io.Calls()
	require.GreaterOrEqual(t, len(calls), 2)
	assert.Equal(t, "print NOTICE * :last words", calls[0])
	assert.Contains(t, calls[1], "notice connection error")
}

func TestInboundHasPriorityOverInput(t *testing.T) {
	d, io := newFakeDriver(), newFakeIO()
	s := New(d, io, Config{})

	for i := 0; i < 5; i++ {
		d.msgs <- mustParse(t, fmt.Sprintf("NOTICE * :%d", i))
	}
	io.events <- event.Input{Kind: event.InputQuit}

	require.NoError(t, wait(t, run(context.Background(), s)))

	calls := io.Calls()
	require.Len(t, calls, 7)
	for i := 0; i < 5; i++ {
		assert.Equal(t, fmt.Sprintf("print NOTICE * %d", i), calls[i])
	}
	assert.Equal(t, "echo QUIT :goodbye", calls[5])
}

func TestDriverFailureHasPriorityOverInput(t *testing.T) {
	d, io := newFakeDriver(), newFakeIO()
	s := New(d, io, Config{})

	d.fail(network.ErrConnectionClosed)
	io.events <- event.Input{Kind: event.InputQuit}

	err := wait(t, run(context.Background(), s))
	assert.ErrorIs(t, err, network.ErrConnectionClosed)
	assert.Empty(t, d.Flushed())
}

func TestNoLossOnShutdown(t *testing.T) {
	d, io := newFakeDriver(), newFakeIO()
	s := New(d, io, Config{})

	const late = 50
	d.onClose = func(msgs chan<- irc.Message) {
		for i := 0; i < late; i++ {
			msgs <- mustParse(t, fmt.Sprintf("PRIVMSG #chan :late %d", i))
		}
	}

	// Queued before the quit, so it must be flushed before release.
	io.events <- event.Line("PRIVMSG #chan :before")
	io.events <- event.Input{Kind: event.InputQuit}

	require.NoError(t, wait(t, run(context.Background(), s)))

	assert.Equal(t, []string{irc.CmdPrivmsg, irc.CmdQuit}, commands(d.Flushed()))

	calls := io.Calls()
	var printed []string
	for _, c := range calls {
		if len(c) > 6 && c[:6] == "print " {
			printed = append(printed, c)
		}
	}
	require.Len(t, printed, late)
	assert.Equal(t, "print PRIVMSG #chan :late 0", printed[0])
	assert.Equal(t, fmt.Sprintf("print PRIVMSG #chan :late %d", late-1), printed[late-1])
	assert.Equal(t, uint64(late), s.Stats().Received)
}

func TestCloseFailureIsNotPropagated(t *testing.T) {
	d, io := newFakeDriver(), newFakeIO()
	d.closeErr = fmt.Errorf("waiting for peer to close: %w", context.DeadlineExceeded)
	s := New(d, io, Config{DrainTimeout: 50 * time.Millisecond})

	io.events <- event.Input{Kind: event.InputQuit}

	require.NoError(t, wait(t, run(context.Background(), s)))
	calls := io.Calls()
	assert.Contains(t, calls[len(calls)-1], "notice connection closed uncleanly")
}
