package ui

import (
	"strings"
)

// ScrollMode indicates whether the viewport is live or scrolled back.
type ScrollMode int

const (
	// ModeLive means the viewport is pinned to the bottom, showing newest rows.
	ModeLive ScrollMode = iota
	// ModeScrolled means the user has scrolled up and the view is locked.
	ModeScrolled
)

// Viewport renders a window into the scrollback buffer.
// Only visible rows are processed.
type Viewport struct {
	buffer   *ScrollbackBuffer
	offset   int // Rows from bottom (0 = showing newest)
	height   int
	mode     ScrollMode
	newLines int // Rows appended since scrolling back
}

// NewViewport creates a viewport for the given buffer.
func NewViewport(buffer *ScrollbackBuffer) *Viewport {
	return &Viewport{buffer: buffer, mode: ModeLive}
}

// SetHeight updates the number of visible rows.
func (v *Viewport) SetHeight(height int) {
	v.height = height
}

// OnNewLines is called after rows are appended. In live mode the view
// follows; in scrolled mode the offset grows to keep the reading position.
func (v *Viewport) OnNewLines(count int) {
	if v.mode == ModeScrolled {
		v.offset += count
		v.newLines += count
		if limit := v.maxOffset(); v.offset > limit {
			v.offset = limit
		}
	}
}

func (v *Viewport) maxOffset() int {
	if m := v.buffer.Count() - v.height; m > 0 {
		return m
	}
	return 0
}

// ScrollUp moves the view towards older rows.
func (v *Viewport) ScrollUp(rows int) {
	v.offset += rows
	if limit := v.maxOffset(); v.offset > limit {
		v.offset = limit
	}
	if v.offset > 0 {
		v.mode = ModeScrolled
	}
}

// ScrollDown moves the view towards newer rows.
func (v *Viewport) ScrollDown(rows int) {
	v.offset -= rows
	if v.offset <= 0 {
		v.GotoBottom()
	}
}

// PageUp scrolls up by one page.
func (v *Viewport) PageUp() {
	v.ScrollUp(max(v.height-1, 1))
}

// PageDown scrolls down by one page.
func (v *Viewport) PageDown() {
	v.ScrollDown(max(v.height-1, 1))
}

// GotoBottom returns to live mode.
func (v *Viewport) GotoBottom() {
	v.offset = 0
	v.mode = ModeLive
	v.newLines = 0
}

// GotoTop scrolls to the oldest row.
func (v *Viewport) GotoTop() {
	v.ScrollUp(v.maxOffset())
}

// Mode returns the current scroll mode.
func (v *Viewport) Mode() ScrollMode {
	return v.mode
}

// NewLineCount returns the number of rows appended since the user scrolled back.
func (v *Viewport) NewLineCount() int {
	return v.newLines
}

// View renders exactly height rows, padding at the top so content sits
// at the bottom.
func (v *Viewport) View() string {
	if v.height <= 0 {
		return ""
	}

	end := v.buffer.Count() - v.offset
	start := max(end-v.height, 0)

	rows := make([]string, 0, v.height)
	for i := end - start; i < v.height; i++ {
		rows = append(rows, "")
	}
	for i := start; i < end; i++ {
		rows = append(rows, v.buffer.Get(i))
	}
	return strings.Join(rows, "\n")
}
