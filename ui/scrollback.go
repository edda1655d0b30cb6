package ui

// DefaultScrollback is the number of rendered rows kept by the TUI.
const DefaultScrollback = 10000

// ScrollbackBuffer is a ring buffer of rendered rows.
// It provides O(1) append, O(1) eviction when full, and O(1) random access.
type ScrollbackBuffer struct {
	lines    []string // Fixed-size ring buffer
	head     int      // Index of oldest row
	tail     int      // Index where next row will be written
	count    int
	capacity int
}

// NewScrollbackBuffer creates a ring buffer with the given capacity.
func NewScrollbackBuffer(capacity int) *ScrollbackBuffer {
	if capacity <= 0 {
		capacity = DefaultScrollback
	}
	return &ScrollbackBuffer{
		lines:    make([]string, capacity),
		capacity: capacity,
	}
}

// Append adds a row. If full, the oldest row is evicted.
func (sb *ScrollbackBuffer) Append(line string) {
	sb.lines[sb.tail] = line
	sb.tail = (sb.tail + 1) % sb.capacity

	if sb.count < sb.capacity {
		sb.count++
	} else {
		sb.head = (sb.head + 1) % sb.capacity
	}
}

// Count returns the number of rows currently in the buffer.
func (sb *ScrollbackBuffer) Count() int {
	return sb.count
}

// Get retrieves a row by logical index (0 = oldest, Count()-1 = newest).
// Returns empty string if index is out of bounds.
func (sb *ScrollbackBuffer) Get(index int) string {
	if index < 0 || index >= sb.count {
		return ""
	}
	return sb.lines[(sb.head+index)%sb.capacity]
}
