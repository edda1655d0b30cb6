// Package session runs the client lifecycle: it multiplexes inbound
// messages, driver failures and user input, and shuts down without losing
// anything already received.
//
// Lifecycle: Connected -> Closing(reason) -> Drained.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/drake/ircterm/event"
	"github.com/drake/ircterm/internal/logger"
	"github.com/drake/ircterm/irc"
)

// DefaultDrainTimeout bounds how long Closing waits for the driver.
const DefaultDrainTimeout = 5 * time.Second

// Config holds session configuration
type Config struct {
	DrainTimeout time.Duration
	Logger       *logger.Logger
}

// Stats is a snapshot for the debug monitor.
type Stats struct {
	State    State
	Received uint64
	Queued   uint64
}

// Session coordinates one connection with one terminal.
type Session struct {
	driver Driver
	io     IO
	log    *logger.Logger

	drainTimeout time.Duration

	// Written only by the Run goroutine; the mutex serves readers elsewhere.
	mu        sync.Mutex
	state     State
	peerError bool
	driverErr error

	received atomic.Uint64
	queued   atomic.Uint64
}

// New creates a Session. It is passive: nothing runs until Run.
func New(driver Driver, io IO, cfg Config) *Session {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	return &Session{
		driver:       driver,
		io:           io,
		log:          log.Component("session"),
		drainTimeout: cfg.DrainTimeout,
	}
}

// Run drives the session to completion and returns the process outcome.
// A peer ERROR at any point yields nil. Otherwise a captured driver
// failure is returned, and nil means the user quit cleanly.
// Cancelling ctx counts as the input source terminating.
func (s *Session) Run(ctx context.Context) error {
	msgs := s.driver.Messages()

	s.runConnected(ctx, msgs)
	s.runClosing()
	s.runDrained(msgs)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.peerError {
		return nil
	}
	return s.driverErr
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PeerError reports whether the peer sent ERROR.
func (s *Session) PeerError() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerError
}

// Stats returns counters for monitoring.
func (s *Session) Stats() Stats {
	return Stats{
		State:    s.State(),
		Received: s.received.Load(),
		Queued:   s.queued.Load(),
	}
}

// runConnected multiplexes the three sources until a transition to Closing.
// Each pass prefers inbound messages, then driver failures, then input.
//
// A failure can overtake inbound data the driver decoded before it. Such a
// failure is held until the inbound stream closes, and input is not read
// meanwhile, so nothing already received is reported after the failure.
func (s *Session) runConnected(ctx context.Context, msgs <-chan irc.Message) {
	inbound := msgs
	failures := s.driver.Err()
	input := s.io.Events()
	done := ctx.Done()

	var pending error
	onInbound := func(msg irc.Message, ok bool) {
		if ok {
			s.handleInbound(msg)
			return
		}
		inbound = nil
		if pending != nil {
			s.handleFailure(pending)
			pending = nil
		}
	}
	onFailure := func(err error) {
		failures = nil
		if inbound == nil {
			s.handleFailure(err)
			return
		}
		pending = err
		input, done = nil, nil
	}

	for s.State().Phase == Connected {
		select {
		case msg, ok := <-inbound:
			onInbound(msg, ok)
			continue
		default:
		}

		select {
		case err := <-failures:
			onFailure(err)
			continue
		default:
		}

		select {
		case msg, ok := <-inbound:
			onInbound(msg, ok)
		case err := <-failures:
			onFailure(err)
		case in, ok := <-input:
			if !ok {
				input = nil
				in = event.Input{Kind: event.InputTerminated}
			}
			s.handleInput(in)
		case <-done:
			done = nil
			s.log.Info().Err(ctx.Err()).Msg("context done, leaving")
			s.handleInput(event.Input{Kind: event.InputTerminated})
		}
	}

	if pending != nil {
		s.log.Debug().Err(pending).Msg("failure superseded by peer ERROR")
	}
}

// runClosing disposes the input source and releases the driver once it
// has flushed what is queued. The wait is bounded by the drain timeout.
func (s *Session) runClosing() {
	s.io.Close()

	ctx, cancel := context.WithTimeout(context.Background(), s.drainTimeout)
	defer cancel()

	start := time.Now()
	if err := s.driver.Close(ctx); err != nil {
		s.log.Warn().Err(err).Msg("connection release was not clean")
		s.io.Notice(fmt.Sprintf("connection closed uncleanly: %v", err))
	}
	s.log.Debug().Dur("took", time.Since(start)).Msg("driver released")

	s.mu.Lock()
	s.state.advance(State{Phase: Drained, Reason: s.state.Reason})
	s.mu.Unlock()
}

// runDrained forwards whatever the driver decoded before it went away.
func (s *Session) runDrained(msgs <-chan irc.Message) {
	n := 0
	for msg := range msgs {
		s.handleInbound(msg)
		n++
	}
	s.log.Debug().Int("messages", n).Msg("inbound stream drained")
}

func (s *Session) handleInbound(msg irc.Message) {
	s.received.Inc()
	s.io.Print(irc.Format(msg))

	if !irc.IsTerminalError(msg) {
		return
	}

	s.mu.Lock()
	s.peerError = true
	changed := s.state.advance(State{Phase: Closing, Reason: ReasonPeerError})
	s.mu.Unlock()

	if changed {
		s.log.Info().Strs("params", msg.Params).Msg("peer sent ERROR")
	}
}

func (s *Session) handleFailure(err error) {
	s.log.Error().Err(err).Msg("driver failed")
	s.io.Notice(fmt.Sprintf("connection error: %v", err))

	s.mu.Lock()
	s.driverErr = err
	s.state.advance(State{Phase: Closing, Reason: ReasonDriverError})
	s.mu.Unlock()
}

func (s *Session) handleInput(in event.Input) {
	switch {
	case in.EndsSession():
		farewell := irc.NewFarewell()
		s.driver.Queue().Push(farewell)
		s.queued.Inc()
		s.io.Echo(irc.Format(farewell))
		s.log.Info().Stringer("input", in.Kind).Msg("user leaving")

		s.mu.Lock()
		s.state.advance(State{Phase: Closing, Reason: ReasonUserQuit})
		s.mu.Unlock()

	case in.Kind == event.InputLine:
		if in.Text == "" {
			return
		}
		msg, err := irc.Parse(in.Text)
		if err != nil {
			s.io.EchoError(err.Error(), in.Text)
			return
		}
		s.driver.Queue().Push(msg)
		s.queued.Inc()
		s.io.Echo(in.Text)
	}
}
