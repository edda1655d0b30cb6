package network

import "errors"

var (
	// ErrConnectionClosed is reported when the peer closes the stream
	// before the client asked to close it.
	ErrConnectionClosed = errors.New("connection closed by peer")

	// ErrLineTooLong is reported when an inbound line exceeds MaxLineLength.
	ErrLineTooLong = errors.New("inbound line too long")

	// ErrInvalidAddress is returned by ParseAddress for unusable host or port values.
	ErrInvalidAddress = errors.New("invalid server address")
)
