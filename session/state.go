package session

import "fmt"

// Phase is the coarse lifecycle position of a session.
type Phase int

const (
	Connected Phase = iota
	Closing
	Drained
)

func (p Phase) String() string {
	switch p {
	case Connected:
		return "connected"
	case Closing:
		return "closing"
	case Drained:
		return "drained"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Reason records why a session left Connected.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonUserQuit
	ReasonPeerError
	ReasonDriverError
)

func (r Reason) String() string {
	switch r {
	case ReasonUserQuit:
		return "user-quit"
	case ReasonPeerError:
		return "peer-error"
	case ReasonDriverError:
		return "driver-error"
	default:
		return "none"
	}
}

// State is the session lifecycle state. Phases only move forward.
type State struct {
	Phase  Phase
	Reason Reason
}

func (s State) String() string {
	if s.Reason == ReasonNone {
		return s.Phase.String()
	}
	return fmt.Sprintf("%s(%s)", s.Phase, s.Reason)
}

// advance moves to next if it is strictly later. It reports whether the
// state changed.
func (s *State) advance(next State) bool {
	if next.Phase <= s.Phase {
		return false
	}
	*s = next
	return true
}
