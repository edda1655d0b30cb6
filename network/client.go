package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"github.com/drake/ircterm/internal/buffer"
	"github.com/drake/ircterm/internal/logger"
	"github.com/drake/ircterm/irc"
)

// Stats holds driver statistics for monitoring.
type Stats struct {
	BytesRead    uint64
	BytesWritten uint64
	LinesRead    uint64
	LinesWritten uint64
	Malformed    uint64
	LastReadTime time.Time
	QueueLen     int
}

// Options configures a Client.
type Options struct {
	// AutoPong answers PING with PONG without involving the session.
	AutoPong bool

	// SendRate limits outbound lines per second. Zero disables the limit.
	SendRate float64
	// SendBurst is the number of lines that may be sent back to back.
	SendBurst int

	// Traffic receives every raw line, prefixed with "<<" or ">>".
	Traffic io.Writer

	Logger *logger.Logger
}

// Client is the connection driver. It owns the transport, writes the
// outbound Queue in order and decodes inbound lines onto Messages().
//
// The inbound stream outlives the transport: messages decoded before Close
// stay readable until the stream is exhausted.
type Client struct {
	conn    LineConn
	queue   *Queue
	opts    Options
	log     *logger.Logger
	limiter *rate.Limiter

	inbound  chan<- irc.Message
	messages <-chan irc.Message

	errCh    chan error
	failOnce sync.Once
	done     chan struct{} // closed on first failure

	closing   chan struct{} // closed when Close is requested
	closeOnce sync.Once
	startOnce sync.Once
	readDone  chan struct{}
	writeDone chan struct{}

	// Cancels rate limiter waits when Close gives up.
	ctx    context.Context
	cancel context.CancelFunc

	trafficMu sync.Mutex

	flushErr     atomic.Error
	bytesRead    atomic.Uint64
	bytesWritten atomic.Uint64
	linesRead    atomic.Uint64
	linesWritten atomic.Uint64
	malformed    atomic.Uint64
	lastReadTime atomic.Time
}

// NewClient creates a driver for an established connection.
// Nothing runs until Start.
func NewClient(conn LineConn, queue *Queue, opts Options) *Client {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	limit, burst := rate.Inf, 1
	if opts.SendRate > 0 {
		limit = rate.Limit(opts.SendRate)
		burst = opts.SendBurst
		if burst <= 0 {
			burst = 1
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		conn:      conn,
		queue:     queue,
		opts:      opts,
		log:       log.Component("driver"),
		limiter:   rate.NewLimiter(limit, burst),
		errCh:     make(chan error, 1),
		done:      make(chan struct{}),
		closing:   make(chan struct{}),
		readDone:  make(chan struct{}),
		writeDone: make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	c.inbound, c.messages = buffer.Unbounded[irc.Message](256, 0, nil)
	return c
}

// Start spawns the read and write loops. Calling it again is a no-op.
func (c *Client) Start() {
	c.startOnce.Do(func() {
		go c.readLoop()
		go c.writeLoop()
	})
}

// Queue returns the outbound queue this driver writes.
func (c *Client) Queue() *Queue {
	return c.queue
}

// Messages returns the inbound stream. It closes once the reader has
// stopped and every decoded message has been received.
func (c *Client) Messages() <-chan irc.Message {
	return c.messages
}

// Err delivers the first transport failure. It never fires after a clean Close.
func (c *Client) Err() <-chan error {
	return c.errCh
}

// Stats returns current driver statistics.
func (c *Client) Stats() Stats {
	return Stats{
		BytesRead:    c.bytesRead.Load(),
		BytesWritten: c.bytesWritten.Load(),
		LinesRead:    c.linesRead.Load(),
		LinesWritten: c.linesWritten.Load(),
		Malformed:    c.malformed.Load(),
		LastReadTime: c.lastReadTime.Load(),
		QueueLen:     c.queue.Len(),
	}
}

// Close releases the connection. It first writes everything still queued,
// then waits for the peer to end the stream, and finally closes the
// transport. ctx bounds the whole wait; when it expires the transport is
// closed regardless. The returned error reports a failed flush or an
// expired wait.
func (c *Client) Close(ctx context.Context) error {
	c.closeOnce.Do(func() { close(c.closing) })
	c.Start()

	var waitErr error
	select {
	case <-c.writeDone:
	case <-ctx.Done():
		waitErr = ctx.Err()
	}
	if waitErr == nil {
		select {
		case <-c.readDone:
		case <-ctx.Done():
			waitErr = ctx.Err()
		}
	}

	c.cancel()
	if err := c.conn.Close(); err != nil {
		c.log.Debug().Err(err).Msg("closing transport")
	}
	<-c.writeDone
	<-c.readDone

	if err := c.flushErr.Load(); err != nil {
		return err
	}
	if waitErr != nil {
		return fmt.Errorf("waiting for peer to close: %w", waitErr)
	}
	return nil
}

// --- Worker Routines ---

// readLoop decodes inbound lines until the transport ends. Closing the
// inbound side lets the buffer deliver what it holds and then close.
func (c *Client) readLoop() {
	defer close(c.readDone)
	defer close(c.inbound)

	for {
		raw, err := c.conn.ReadLine()
		if err != nil {
			c.readFailed(err)
			return
		}

		c.bytesRead.Add(uint64(len(raw)))
		c.lastReadTime.Store(time.Now())

		line := irc.DecodeLine(raw)
		c.traffic("<<", line)
		if strings.TrimSpace(line) == "" {
			continue
		}

		msg, err := irc.Parse(line)
		if err != nil {
			c.malformed.Inc()
			c.log.Warn().Err(err).Str("line", line).Msg("dropping malformed line")
			continue
		}
		c.linesRead.Inc()

		if c.opts.AutoPong && irc.IsPing(msg) {
			c.queue.Push(irc.NewPong(msg.Params...))
		}

		c.inbound <- msg
	}
}

func (c *Client) readFailed(err error) {
	select {
	case <-c.closing:
		c.log.Debug().Err(err).Msg("reader stopped")
		return
	default:
	}

	if errors.Is(err, io.EOF) {
		err = ErrConnectionClosed
	} else {
		err = fmt.Errorf("read: %w", err)
	}
	c.fail(err)
}

// writeLoop drains the queue whenever it is signalled. On Close it
// performs one last flush so nothing queued before Close is skipped.
func (c *Client) writeLoop() {
	defer close(c.writeDone)

	for {
		if err := c.flush(); err != nil {
			c.writeFailed(err)
			return
		}

		select {
		case <-c.queue.Ready():
		case <-c.closing:
			if err := c.flush(); err != nil {
				c.writeFailed(err)
			}
			return
		case <-c.done:
			return
		}
	}
}

func (c *Client) writeFailed(err error) {
	select {
	case <-c.closing:
		c.log.Warn().Err(err).Msg("flush on close failed")
		c.flushErr.Store(err)
		return
	default:
	}
	c.fail(err)
	// Unblock the reader so the inbound stream ends too.
	c.conn.Close()
}

func (c *Client) flush() error {
	for {
		msg, ok := c.queue.Pop()
		if !ok {
			return nil
		}
		if err := c.send(msg); err != nil {
			return err
		}
	}
}

func (c *Client) send(msg irc.Message) error {
	line, err := irc.Serialize(msg)
	if err != nil {
		return fmt.Errorf("serialize %s: %w", msg.Command, err)
	}

	if err := c.limiter.Wait(c.ctx); err != nil {
		return fmt.Errorf("send %s: %w", msg.Command, err)
	}
	if err := c.conn.WriteLine(line); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	c.bytesWritten.Add(uint64(len(line) + 2))
	c.linesWritten.Inc()
	c.traffic(">>", line)
	return nil
}

// fail records the first failure and stops the writer.
func (c *Client) fail(err error) {
	c.failOnce.Do(func() {
		c.log.Error().Err(err).Msg("connection failed")
		c.errCh <- err
		close(c.done)
	})
}

func (c *Client) traffic(dir, line string) {
	if c.opts.Traffic == nil {
		return
	}
	c.trafficMu.Lock()
	defer c.trafficMu.Unlock()
	if _, err := fmt.Fprintf(c.opts.Traffic, "%s %s\n", dir, line); err != nil {
		c.log.Debug().Err(err).Msg("traffic log write failed")
	}
}
