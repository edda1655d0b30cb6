package network

import (
	"sync"

	"github.com/drake/ircterm/irc"
)

// Queue is the ordered list of messages waiting to be written.
// Producers append through Edit; the Client write loop takes from the head.
// Nothing is reordered, deduplicated or capped here.
type Queue struct {
	mu    sync.Mutex
	items []irc.Message

	// One-slot wakeup for the writer. A pending signal covers any number of pushes.
	ready chan struct{}
}

// QueueEdit is the view handed to Edit callbacks. It is only valid inside
// the callback, while the queue lock is held.
type QueueEdit struct {
	q      *Queue
	pushed int
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Edit runs fn with exclusive access to the tail of the queue.
// Messages pushed within one edit are contiguous in the queue.
func (q *Queue) Edit(fn func(e *QueueEdit)) {
	q.mu.Lock()
	e := &QueueEdit{q: q}
	fn(e)
	e.q = nil
	q.mu.Unlock()

	if e.pushed > 0 {
		q.signal()
	}
}

// Push appends msg to the tail. It never blocks on I/O.
func (q *Queue) Push(msg irc.Message) {
	q.Edit(func(e *QueueEdit) { e.Push(msg) })
}

// Push appends msg to the tail of the queue being edited.
func (e *QueueEdit) Push(msg irc.Message) {
	if e.q == nil {
		panic("network: QueueEdit used outside Edit")
	}
	e.q.items = append(e.q.items, msg)
	e.pushed++
}

// Len returns the number of queued messages, as seen by the edit.
func (e *QueueEdit) Len() int {
	return len(e.q.items)
}

// Pop removes and returns the head of the queue.
func (q *Queue) Pop() (irc.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return irc.Message{}, false
	}
	msg := q.items[0]
	q.items[0] = irc.Message{}
	q.items = q.items[1:]
	return msg, true
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Ready fires after an edit that added messages.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
