package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/atomic"

	"github.com/drake/ircterm/event"
	"github.com/drake/ircterm/ui/style"
)

// BubbleTeaUI is the full-screen front end.
// It bridges the session's calls with Bubble Tea's model/update/view loop.
type BubbleTeaUI struct {
	program *tea.Program
	events  chan event.Input
	styles  style.Styles
	out     io.Writer // Receives the trailer once the program has exited

	// mu orders every hand-off to the program. Messages sent before the
	// event loop runs are queued; lines sent after it exits go to out.
	mu          sync.Mutex
	pendingMsgs []tea.Msg
	started     bool
	exited      bool

	// Rendered lines that arrived after Close. The alternate screen is
	// gone on exit, so they are printed to out then.
	trailer []string

	// Lines handed to the program that the model may not have appended
	// yet. Send drops silently once the program is shutting down.
	unshown []lineMsg
	seq     uint64
	shown   atomic.Uint64

	inputClosed atomic.Bool
	inputDone   chan struct{}
	quitting    atomic.Bool

	done     chan struct{}
	doneOnce sync.Once
}

// NewBubbleTeaUI creates a new Bubble Tea-based UI. opts are passed to
// the program after the defaults.
func NewBubbleTeaUI(opts ...tea.ProgramOption) *BubbleTeaUI {
	b := &BubbleTeaUI{
		events:    make(chan event.Input, 64),
		styles:    style.DefaultStyles(),
		out:       os.Stdout,
		inputDone: make(chan struct{}),
		done:      make(chan struct{}),
	}

	model := NewModel(b.events, b.inputDone, b.styles, NewHistory(DefaultHistoryLimit))
	model.shown = &b.shown
	b.program = tea.NewProgram(model, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)
	return b
}

// sendOrQueue sends a message to the program, queues it if the program
// has not started yet, or prints it if the program is gone.
func (b *BubbleTeaUI) sendOrQueue(msg tea.Msg) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if line, ok := msg.(lineMsg); ok {
		if b.exited {
			fmt.Fprintln(b.out, b.renderLine(line))
			return
		}
		if b.inputClosed.Load() {
			b.trailer = append(b.trailer, b.renderLine(line))
			line.kept = true
		}
		b.seq++
		line.seq = b.seq
		b.unshown = append(pruneShown(b.unshown, b.shown.Load()), line)
		msg = line
	}

	switch {
	case b.exited:
	case !b.started:
		b.pendingMsgs = append(b.pendingMsgs, msg)
	default:
		b.program.Send(msg)
	}
}

// flushPending delivers queued messages. Send blocks until the event
// loop runs, and the lock keeps later messages behind the queued ones.
func (b *BubbleTeaUI) flushPending() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return
	}
	for _, msg := range b.pendingMsgs {
		b.program.Send(msg)
	}
	b.pendingMsgs = nil
	b.started = true
}

// finish runs once the program has exited. Lines the model never
// appended are printed first, then the trailer; later lines go straight
// to out.
func (b *BubbleTeaUI) finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	var lines []string
	for _, line := range pruneShown(b.unshown, b.shown.Load()) {
		if !line.kept {
			lines = append(lines, b.renderLine(line))
		}
	}
	lines = append(lines, b.trailer...)

	b.unshown, b.trailer, b.pendingMsgs = nil, nil, nil
	b.started, b.exited = true, true

	for _, line := range lines {
		fmt.Fprintln(b.out, line)
	}
}

// pruneShown drops the lines the model has already appended.
func pruneShown(lines []lineMsg, shown uint64) []lineMsg {
	i := 0
	for i < len(lines) && lines[i].seq <= shown {
		i++
	}
	return lines[i:]
}

func (b *BubbleTeaUI) renderLine(line lineMsg) string {
	return render(b.styles, line.kind, formatLine(line.kind, line.body, line.desc))
}

// Events returns the channel of user input.
func (b *BubbleTeaUI) Events() <-chan event.Input {
	return b.events
}

// Print appends an inbound line to the scrollback.
func (b *BubbleTeaUI) Print(text string) {
	b.sendOrQueue(lineMsg{kind: kindServer, body: text})
}

// Echo appends an accepted user line.
func (b *BubbleTeaUI) Echo(text string) {
	b.sendOrQueue(lineMsg{kind: kindEcho, body: text})
}

// EchoError appends a rejected user line with the reason.
func (b *BubbleTeaUI) EchoError(desc, text string) {
	b.sendOrQueue(lineMsg{kind: kindError, body: text, desc: desc})
}

// Notice appends a client status line.
func (b *BubbleTeaUI) Notice(text string) {
	b.sendOrQueue(lineMsg{kind: kindNotice, body: text})
}

// SetAddress shows the server in the status bar.
func (b *BubbleTeaUI) SetAddress(addr string) {
	b.sendOrQueue(addressMsg(addr))
}

// Close disposes the input side. The screen keeps updating until Quit.
func (b *BubbleTeaUI) Close() {
	if b.inputClosed.CompareAndSwap(false, true) {
		close(b.inputDone)
		b.sendOrQueue(inputClosedMsg{})
	}
}

// Run starts the TUI and blocks until exit. If the program ends before
// Quit, the session is told its input source terminated.
func (b *BubbleTeaUI) Run() error {
	go b.flushPending()

	_, err := b.program.Run()
	b.finish()

	if !b.quitting.Load() && !b.inputClosed.Load() {
		go func() {
			select {
			case b.events <- event.Input{Kind: event.InputTerminated}:
			case <-b.inputDone:
			}
		}()
	}

	b.doneOnce.Do(func() {
		close(b.done)
	})
	return err
}

// Done returns a channel that closes when the UI exits.
func (b *BubbleTeaUI) Done() <-chan struct{} {
	return b.done
}

// Quit signals the TUI to exit once everything sent before it is shown.
func (b *BubbleTeaUI) Quit() {
	b.quitting.Store(true)
	b.sendOrQueue(tea.Quit())
}
