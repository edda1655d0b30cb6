package network

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ergochat/irc-go/ircmsg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drake/ircterm/irc"
)

// fakeServer is the far end of a net.Pipe, speaking CRLF lines.
type fakeServer struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func newPipe(t *testing.T) (LineConn, *fakeServer) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return NewStreamConn(client), &fakeServer{t: t, conn: server, r: bufio.NewReader(server)}
}

func (s *fakeServer) send(line string) {
	s.t.Helper()
	s.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	_, err := s.conn.Write([]byte(line + "\r\n"))
	require.NoError(s.t, err)
}

func (s *fakeServer) expect(line string) {
	s.t.Helper()
	s.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, err := s.r.ReadString('\n')
	require.NoError(s.t, err)
	assert.Equal(s.t, line, strings.TrimRight(got, "\r\n"))
}

func recvMessage(t *testing.T, c *Client) irc.Message {
	t.Helper()
	select {
	case msg, ok := <-c.Messages():
		require.True(t, ok, "inbound stream closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no inbound message")
	}
	return irc.Message{}
}

func waitClosed(t *testing.T, ch <-chan irc.Message) []irc.Message {
	t.Helper()
	var rest []irc.Message
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return rest
			}
			rest = append(rest, msg)
		case <-time.After(2 * time.Second):
			t.Fatal("inbound stream did not close")
		}
	}
}

func TestClientSendsQueueInOrder(t *testing.T) {
	conn, srv := newPipe(t)
	q := NewQueue()
	c := NewClient(conn, q, Options{})
	c.Start()

	q.Edit(func(e *QueueEdit) {
		e.Push(privmsg("one"))
		e.Push(privmsg("two"))
	})
	q.Push(privmsg("three"))

	srv.expect("PRIVMSG #chan one")
	srv.expect("PRIVMSG #chan two")
	srv.expect("PRIVMSG #chan three")

	assert.Equal(t, uint64(3), c.Stats().LinesWritten)
}

func TestClientDecodesInbound(t *testing.T) {
	conn, srv := newPipe(t)
	c := NewClient(conn, NewQueue(), Options{})
	c.Start()

	srv.send(":server 001 me :Welcome")
	srv.send(":nick!u@h PRIVMSG #chan :hello")

	msg := recvMessage(t, c)
	assert.Equal(t, "001", msg.Command)
	msg = recvMessage(t, c)
	assert.Equal(t, irc.CmdPrivmsg, msg.Command)
	assert.Equal(t, []string{"#chan", "hello"}, msg.Params)

	stats := c.Stats()
	assert.Equal(t, uint64(2), stats.LinesRead)
	assert.False(t, stats.LastReadTime.IsZero())
}

func TestClientAutoPong(t *testing.T) {
	conn, srv := newPipe(t)
	c := NewClient(conn, NewQueue(), Options{AutoPong: true})
	c.Start()

	srv.send("PING :irc.example.net")

	msg := recvMessage(t, c)
	assert.True(t, irc.IsPing(msg), "PING is still delivered to the session")
	srv.expect("PONG irc.example.net")
}

func TestClientNoPing(t *testing.T) {
	conn, srv := newPipe(t)
	q := NewQueue()
	c := NewClient(conn, q, Options{AutoPong: false})
	c.Start()

	srv.send("PING :irc.example.net")
	recvMessage(t, c)

	q.Push(privmsg("after"))
	srv.expect("PRIVMSG #chan after")
}

func TestClientDropsMalformedLines(t *testing.T) {
	conn, srv := newPipe(t)
	c := NewClient(conn, NewQueue(), Options{})
	c.Start()

	srv.send("PRIVMSG #chan :bad\x00byte")
	srv.send("")
	srv.send("PRIVMSG #chan :good")

	msg := recvMessage(t, c)
	assert.Equal(t, "good", msg.Params[1])
	assert.Equal(t, uint64(1), c.Stats().Malformed)
}

func TestClientPeerCloseReportsConnectionClosed(t *testing.T) {
	conn, srv := newPipe(t)
	c := NewClient(conn, NewQueue(), Options{})
	c.Start()

	srv.send("NOTICE * :first")
	srv.send("NOTICE * :second")
	srv.conn.Close()

	select {
	case err := <-c.Err():
		assert.ErrorIs(t, err, ErrConnectionClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("no failure reported")
	}

	// Both lines were decoded before EOF and remain readable.
	rest := waitClosed(t, c.Messages())
	require.Len(t, rest, 2)
	assert.Equal(t, "first", rest[0].Params[1])
	assert.Equal(t, "second", rest[1].Params[1])
}

func TestClientCloseFlushesThenWaitsForPeer(t *testing.T) {
	conn, srv := newPipe(t)
	q := NewQueue()
	c := NewClient(conn, q, Options{})
	c.Start()

	q.Push(irc.NewFarewell())

	closed := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		closed <- c.Close(ctx)
	}()

	srv.expect("QUIT :goodbye")
	srv.send("ERROR :Closing Link: me (Quit: goodbye)")
	srv.conn.Close()

	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Close did not return")
	}

	rest := waitClosed(t, c.Messages())
	require.Len(t, rest, 1)
	assert.True(t, irc.IsTerminalError(rest[0]))

	select {
	case err := <-c.Err():
		t.Fatalf("clean close reported failure: %v", err)
	default:
	}
}

func TestClientCloseIsBounded(t *testing.T) {
	conn, srv := newPipe(t)
	q := NewQueue()
	c := NewClient(conn, q, Options{})
	c.Start()

	q.Push(irc.NewFarewell())
	read := make(chan struct{})
	go func() {
		defer close(read)
		srv.expect("QUIT :goodbye")
	}()

	// The peer reads the farewell but never closes its side.
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := c.Close(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 2*time.Second)

	<-read
	waitClosed(t, c.Messages())
}

func TestClientWriteFailureIsReported(t *testing.T) {
	conn, srv := newPipe(t)
	q := NewQueue()
	c := NewClient(conn, q, Options{})
	c.Start()

	srv.conn.Close()
	q.Push(privmsg("into the void"))

	select {
	case err := <-c.Err():
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("no failure reported")
	}
	waitClosed(t, c.Messages())
}

func TestClientUnsendableMessageIsReported(t *testing.T) {
	conn, _ := newPipe(t)
	q := NewQueue()
	c := NewClient(conn, q, Options{})
	c.Start()

	q.Push(irc.Message{Command: irc.CmdPrivmsg, Params: []string{"", "hi"}})

	select {
	case err := <-c.Err():
		assert.ErrorIs(t, err, ircmsg.ErrorBadParam)
		assert.Contains(t, err.Error(), "serialize PRIVMSG")
	case <-time.After(2 * time.Second):
		t.Fatal("dropped message was not reported")
	}
	waitClosed(t, c.Messages())
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestClientTrafficLog(t *testing.T) {
	conn, srv := newPipe(t)
	q := NewQueue()
	traffic := &lockedBuffer{}
	c := NewClient(conn, q, Options{Traffic: traffic})
	c.Start()

	srv.send(":server NOTICE * :hi")
	recvMessage(t, c)
	q.Push(privmsg("yo"))
	srv.expect("PRIVMSG #chan yo")

	assert.Eventually(t, func() bool {
		return strings.Contains(traffic.String(), ">> PRIVMSG #chan yo\n")
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, traffic.String(), "<< :server NOTICE * :hi\n")
}

func TestClientRateLimit(t *testing.T) {
	conn, srv := newPipe(t)
	q := NewQueue()
	c := NewClient(conn, q, Options{SendRate: 20, SendBurst: 1})
	c.Start()

	start := time.Now()
	for i := 0; i < 3; i++ {
		q.Push(privmsg("x"))
	}
	for i := 0; i < 3; i++ {
		srv.expect("PRIVMSG #chan x")
	}
	// Burst of one at 20/s: the 2nd and 3rd lines wait ~50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}
