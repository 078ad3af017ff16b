package engine

import "sync/atomic"

// Clock is the monotonic logical clock stamping every event and delta.
//
// All ordering in the engine comes from this counter, never from wall
// time: two runs with the same document, seed, and inputs stamp the same
// sequence numbers, which is what makes traces replayable.
//
// Thread-safety: Clock is safe for concurrent use, though the engine's
// single-writer loop is normally the only caller of Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
// Used by replay to resume from the last recorded position.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and advances the clock.
// Each call returns a unique, strictly increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
