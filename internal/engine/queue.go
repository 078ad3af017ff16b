package engine

import (
	"sync"

	"github.com/cardlang/cgml/internal/cgml"
)

// Event is one unit of dispatch: a player command, a phase or state
// notification, or a rule-emitted event. Consumed and discarded by the
// dispatch loop after every matching rule has run.
type Event struct {
	// Name is the dotted event name, e.g. "action.play_card",
	// "on.phase.draw", "on.state.enter.GameOver".
	Name string

	// Actor is the seat the event acts for, or -1 for engine-originated
	// events. Paths like "player.current" resolve against it.
	Actor int

	// Payload carries named values, e.g. the played card's view.
	Payload cgml.Map

	// External marks events posted from outside the loop (player
	// commands). Replay re-injects exactly these; everything else is
	// regenerated by the engine itself.
	External bool

	// Seq is stamped from the logical clock when the event is dispatched.
	Seq int64
}

// eventQueue is a thread-safe FIFO queue of pending events.
//
// Unbounded, so cascading rule firings can enqueue freely without
// blocking the loop that is draining the queue. External producers (the
// CLI, an input boundary) enqueue from their own goroutines; only the
// single-writer Run loop dequeues.
//
// A buffered signal channel lets the Run loop wait for work with a
// select, so context cancellation can interrupt the wait.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Thread-safe; returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.events = append(q.events, e)

	// Non-blocking: the buffer of 1 coalesces repeated signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front event without blocking.
// Returns (Event{}, false) if the queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}
	e := q.events[0]

	// Nil the slot so the payload map is collectable while the backing
	// array lives on.
	q.events[0] = Event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns a channel that signals when events may be available.
// Closed when the queue closes, which wakes all waiters.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close marks the queue closed and wakes any waiters. Further Enqueue
// calls return false.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
