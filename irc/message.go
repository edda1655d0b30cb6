// Package irc is the line codec for the IRC wire protocol.
// It wraps ircmsg with the handful of commands the client itself builds or inspects.
package irc

import (
	"strings"

	"github.com/ergochat/irc-go/ircmsg"
)

// Commands the client builds or inspects itself.
const (
	CmdPing    = "PING"
	CmdPong    = "PONG"
	CmdQuit    = "QUIT"
	CmdError   = "ERROR"
	CmdPrivmsg = "PRIVMSG"
	CmdNotice  = "NOTICE"
)

// FarewellReason is the QUIT reason sent when the user leaves.
const FarewellReason = "goodbye"

// Message is one decoded protocol line: tags, source, command and params.
type Message = ircmsg.Message

// Parse decodes one line of user or server text.
// Failures come back as *ParseError.
func Parse(line string) (Message, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.ContainsAny(line, "\x00\r\n") {
		return Message{}, &ParseError{Line: line, Err: ErrBadChar}
	}
	msg, err := ircmsg.ParseLine(line)
	if err != nil {
		return Message{}, &ParseError{Line: line, Err: err}
	}
	return msg, nil
}

// Serialize encodes a message without the trailing CRLF.
func Serialize(msg Message) (string, error) {
	line, err := msg.Line()
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Format renders a message for display. Messages that cannot be
// serialized fall back to the bare command and params.
func Format(msg Message) string {
	if line, err := Serialize(msg); err == nil {
		return line
	}
	return strings.TrimSpace(msg.Command + " " + strings.Join(msg.Params, " "))
}

// NewQuit builds a QUIT with reason as the trailing param.
func NewQuit(reason string) Message {
	msg := ircmsg.MakeMessage(nil, "", CmdQuit, reason)
	msg.ForceTrailing()
	return msg
}

// NewFarewell builds the QUIT sent when the user leaves.
func NewFarewell() Message {
	return NewQuit(FarewellReason)
}

// NewPong answers a PING carrying the given params.
func NewPong(params ...string) Message {
	return ircmsg.MakeMessage(nil, "", CmdPong, params...)
}

// IsTerminalError reports whether the peer is closing the link.
func IsTerminalError(msg Message) bool {
	return strings.EqualFold(msg.Command, CmdError)
}

// IsPing reports whether msg is a keepalive check.
func IsPing(msg Message) bool {
	return strings.EqualFold(msg.Command, CmdPing)
}
