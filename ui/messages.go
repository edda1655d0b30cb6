package ui

// lineMsg appends one logical line to the scrollback.
type lineMsg struct {
	kind lineKind
	body string
	desc string // For kindError
	seq  uint64 // Hand-off order, starting at 1
	kept bool   // Also held for the trailer
}

// addressMsg sets the server shown in the status bar.
type addressMsg string

// inputClosedMsg tells the model the session no longer reads input.
type inputClosedMsg struct{}
