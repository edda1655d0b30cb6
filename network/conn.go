package network

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net"
	"time"

	"github.com/gorilla/websocket"
)

// MaxLineLength bounds a single inbound line, tags included.
const MaxLineLength = 16 * 1024

// writeTimeout bounds a single line write so a stalled peer surfaces as an error.
const writeTimeout = 5 * time.Second

// LineConn is an established, line-framed transport.
// ReadLine returns one line without its terminator.
type LineConn interface {
	ReadLine() ([]byte, error)
	WriteLine(line string) error
	Close() error
}

// streamConn frames a byte stream (TCP or TLS) on CRLF.
type streamConn struct {
	conn net.Conn
	r    *bufio.Reader
}

// NewStreamConn frames conn as CRLF-terminated lines.
func NewStreamConn(conn net.Conn) LineConn {
	return &streamConn{
		conn: conn,
		r:    bufio.NewReaderSize(conn, MaxLineLength),
	}
}

func (c *streamConn) ReadLine() ([]byte, error) {
	line, err := c.r.ReadSlice('\n')
	switch {
	case errors.Is(err, bufio.ErrBufferFull):
		return nil, ErrLineTooLong
	case errors.Is(err, io.EOF) && len(line) > 0:
		// Unterminated last line; hand it over and report EOF on the next read.
		err = nil
	case err != nil:
		return nil, err
	}
	out := make([]byte, len(line))
	copy(out, line)
	return bytes.TrimRight(out, "\r\n"), nil
}

func (c *streamConn) WriteLine(line string) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := io.WriteString(c.conn, line+"\r\n")
	c.conn.SetWriteDeadline(time.Time{})
	return err
}

func (c *streamConn) Close() error {
	return c.conn.Close()
}

// wsConn carries one IRC line per WebSocket message (IRCv3 WebSocket transport).
type wsConn struct {
	conn *websocket.Conn
}

// NewWebSocketConn wraps an established WebSocket connection.
func NewWebSocketConn(conn *websocket.Conn) LineConn {
	conn.SetReadLimit(MaxLineLength)
	return &wsConn{conn: conn}
}

func (c *wsConn) ReadLine() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, io.EOF
		}
		if errors.Is(err, websocket.ErrReadLimit) {
			return nil, ErrLineTooLong
		}
		return nil, err
	}
	return bytes.TrimRight(data, "\r\n"), nil
}

func (c *wsConn) WriteLine(line string) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := c.conn.WriteMessage(websocket.TextMessage, []byte(line))
	c.conn.SetWriteDeadline(time.Time{})
	return err
}

func (c *wsConn) Close() error {
	// Best effort close frame; the peer may already be gone.
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}
