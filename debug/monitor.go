// Package debug provides runtime monitoring and diagnostics.
package debug

import (
	"context"
	"runtime"
	"time"

	"github.com/drake/ircterm/internal/logger"
	"github.com/drake/ircterm/network"
	"github.com/drake/ircterm/session"
)

// DefaultInterval is how often stats are logged.
const DefaultInterval = 5 * time.Second

// SessionSource exposes session counters.
type SessionSource interface {
	Stats() session.Stats
}

// DriverSource exposes driver counters.
type DriverSource interface {
	Stats() network.Stats
}

// Monitor periodically logs session and driver statistics.
type Monitor struct {
	session  SessionSource
	driver   DriverSource
	interval time.Duration
	ctx      context.Context
	log      *logger.Logger
}

// NewMonitor creates a monitor for the given session and driver.
// If enabled is false, returns nil. A nil Monitor is safe to Start.
func NewMonitor(ctx context.Context, enabled bool, log *logger.Logger, s SessionSource, d DriverSource) *Monitor {
	if !enabled {
		return nil
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Monitor{
		session:  s,
		driver:   d,
		interval: DefaultInterval,
		ctx:      ctx,
		log:      log.Component("monitor"),
	}
}

// Start begins the monitoring loop in a goroutine.
func (m *Monitor) Start() {
	if m == nil {
		return
	}
	go m.run()
}

func (m *Monitor) run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.log.Debug().Dur("interval", m.interval).Msg("monitor started")

	for {
		select {
		case <-m.ctx.Done():
			m.log.Debug().Msg("monitor stopped")
			return
		case <-ticker.C:
			m.logStats()
		}
	}
}

func (m *Monitor) logStats() {
	s := m.session.Stats()
	n := m.driver.Stats()

	// Time since last network read
	lastRead := "never"
	if !n.LastReadTime.IsZero() {
		lastRead = time.Since(n.LastReadTime).Round(time.Second).String() + " ago"
	}

	m.log.Info().
		Stringer("state", s.State).
		Uint64("received", s.Received).
		Uint64("queued", s.Queued).
		Int("goroutines", runtime.NumGoroutine()).
		Uint64("bytes_read", n.BytesRead).
		Uint64("bytes_written", n.BytesWritten).
		Uint64("lines_read", n.LinesRead).
		Uint64("lines_written", n.LinesWritten).
		Uint64("malformed", n.Malformed).
		Int("queue", n.QueueLen).
		Str("last_read", lastRead).
		Msg("stats")
}
