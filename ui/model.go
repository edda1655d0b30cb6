package ui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/atomic"

	"github.com/drake/ircterm/event"
	"github.com/drake/ircterm/text"
	"github.com/drake/ircterm/ui/style"
)

// Model is the Bubble Tea model: scrollback on top, a status bar, and
// the input line at the bottom.
type Model struct {
	scrollback *ScrollbackBuffer
	viewport   *Viewport
	status     StatusBar
	input      textinput.Model
	styles     style.Styles

	history      *History
	historyIndex int    // -1 = draft, 0..n = position counted from newest
	historyDraft string // Preserved when browsing history

	events chan<- event.Input
	stop   <-chan struct{} // Closed once the session stops reading events
	shown  *atomic.Uint64  // Highest lineMsg seq appended, if tracked

	inputClosed bool
	width       int
	height      int
	initialized bool
}

// NewModel creates a TUI model sending user input to events until stop
// is closed.
func NewModel(events chan<- event.Input, stop <-chan struct{}, styles style.Styles, history *History) Model {
	ti := textinput.New()
	ti.Prompt = Prompt
	ti.PromptStyle = styles.InputPrompt
	ti.TextStyle = styles.InputText
	ti.CharLimit = 0
	ti.Focus()

	scrollback := NewScrollbackBuffer(DefaultScrollback)

	return Model{
		scrollback:   scrollback,
		viewport:     NewViewport(scrollback),
		status:       NewStatusBar(styles),
		input:        ti,
		styles:       styles,
		history:      history,
		historyIndex: -1,
		events:       events,
		stop:         stop,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateDimensions()
		m.initialized = true
		return m, nil

	case lineMsg:
		m.appendLine(msg.kind, msg.body, msg.desc)
		if m.shown != nil && msg.seq > 0 {
			m.shown.Store(msg.seq)
		}
		return m, nil

	case addressMsg:
		m.status.SetAddress(string(msg))
		return m, nil

	case inputClosedMsg:
		m.inputClosed = true
		m.input.Blur()
		m.input.Reset()
		m.status.SetLink(LinkClosing)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updateDimensions() {
	m.input.Width = max(m.width-text.Width(Prompt)-1, 1)
	m.status.SetWidth(m.width)
	// Status bar and input line take one row each.
	m.viewport.SetHeight(max(m.height-2, 0))
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Scrolling works until the program exits.
	switch msg.Type {
	case tea.KeyPgUp:
		m.viewport.PageUp()
		m.syncScrollMode()
		return m, nil
	case tea.KeyPgDown:
		m.viewport.PageDown()
		m.syncScrollMode()
		return m, nil
	}

	if m.inputClosed {
		return m, nil
	}

	switch msg.Type {
	case tea.KeyCtrlC:
		return m, m.emit(event.Input{Kind: event.InputQuit})

	case tea.KeyCtrlD:
		if m.input.Value() == "" {
			return m, m.emit(event.Input{Kind: event.InputFinish})
		}

	case tea.KeyEnter:
		line := m.input.Value()
		m.history.Add(line)
		cmd := m.emit(event.Line(line))
		m.input.Reset()
		m.historyIndex = -1
		m.historyDraft = ""
		m.viewport.GotoBottom()
		m.syncScrollMode()
		return m, cmd

	case tea.KeyUp:
		m.historyUp()
		return m, nil

	case tea.KeyDown:
		m.historyDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// emit hands input to the session without blocking the render loop.
// Input that ends the session is never dropped: when the channel is full
// it is delivered from a command instead.
func (m *Model) emit(in event.Input) tea.Cmd {
	select {
	case m.events <- in:
		return nil
	default:
	}

	if !in.EndsSession() {
		m.appendLine(kindNotice, "input dropped, session lagging", "")
		return nil
	}
	events, stop := m.events, m.stop
	return func() tea.Msg {
		select {
		case events <- in:
		case <-stop:
		}
		return nil
	}
}

func (m *Model) historyUp() {
	entries := m.history.Entries()
	if m.historyIndex+1 >= len(entries) {
		return
	}
	if m.historyIndex == -1 {
		m.historyDraft = m.input.Value()
	}
	m.historyIndex++
	m.input.SetValue(entries[len(entries)-1-m.historyIndex])
	m.input.CursorEnd()
}

func (m *Model) historyDown() {
	if m.historyIndex < 0 {
		return
	}
	m.historyIndex--
	if m.historyIndex == -1 {
		m.input.SetValue(m.historyDraft)
	} else {
		entries := m.history.Entries()
		m.input.SetValue(entries[len(entries)-1-m.historyIndex])
	}
	m.input.CursorEnd()
}

func (m *Model) appendLine(kind lineKind, body, desc string) {
	plain := formatLine(kind, body, desc)
	rows := text.Wrap(plain, m.width)
	for _, row := range rows {
		m.scrollback.Append(render(m.styles, kind, row))
	}
	m.viewport.OnNewLines(len(rows))
	m.syncScrollMode()
}

func (m *Model) syncScrollMode() {
	m.status.SetScrollMode(m.viewport.Mode(), m.viewport.NewLineCount())
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.initialized {
		return ""
	}
	input := m.input.View()
	if m.inputClosed {
		input = m.styles.Muted.Render("closing...")
	}
	return m.viewport.View() + "\n" + m.status.View() + "\n" + input
}
