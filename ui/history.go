package ui

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultHistoryLimit bounds the input history.
const DefaultHistoryLimit = 1000

// History keeps submitted lines, most recent last. Re-submitting a line
// moves it to the end instead of duplicating it, and the oldest line is
// evicted once the limit is reached.
type History struct {
	lines *lru.Cache[string, struct{}]
}

// NewHistory creates a history with the given limit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	cache, err := lru.New[string, struct{}](limit)
	if err != nil {
		panic(err) // only for a non-positive size
	}
	return &History{lines: cache}
}

// Add records a submitted line. Empty lines are ignored.
func (h *History) Add(line string) {
	if line == "" {
		return
	}
	h.lines.Add(line, struct{}{})
}

// Entries returns the lines from oldest to newest.
func (h *History) Entries() []string {
	return h.lines.Keys()
}

// Len returns the number of lines kept.
func (h *History) Len() int {
	return h.lines.Len()
}
