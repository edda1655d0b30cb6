// Package event defines what the interactive source hands to the session.
package event

// Kind identifies what the user (or the terminal) did.
type Kind int

const (
	InputOther      Kind = iota // Anything the session does not act on
	InputLine                   // A submitted line, possibly empty
	InputQuit                   // Explicit quit request (Ctrl+C)
	InputFinish                 // End of input (Ctrl+D, stdin EOF)
	InputTerminated             // The input source died underneath us
)

func (k Kind) String() string {
	switch k {
	case InputLine:
		return "line"
	case InputQuit:
		return "quit"
	case InputFinish:
		return "finish"
	case InputTerminated:
		return "terminated"
	default:
		return "other"
	}
}

// Input is one event from the interactive source.
type Input struct {
	Kind Kind
	Text string // For InputLine
}

// Line builds a submitted-line event.
func Line(text string) Input {
	return Input{Kind: InputLine, Text: text}
}

// EndsSession reports whether the event means the user is leaving.
func (in Input) EndsSession() bool {
	switch in.Kind {
	case InputQuit, InputFinish, InputTerminated:
		return true
	}
	return false
}
