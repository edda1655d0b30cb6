package irc

import (
	"errors"
	"fmt"
)

// ErrBadChar rejects lines carrying NUL, CR or LF inside the body.
var ErrBadChar = errors.New("line contains NUL, CR or LF")

// ParseError reports a line the codec rejected.
// Error returns the codec's description, which is shown to the user verbatim.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// GoString keeps the offending line visible in logs.
func (e *ParseError) GoString() string {
	return fmt.Sprintf("irc.ParseError{Line: %q, Err: %v}", e.Line, e.Err)
}
