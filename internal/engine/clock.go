package engine

import "sync/atomic"

// Clock is the logical clock of one migration run.
//
// Every recorded outcome and feature first-use is stamped with a strictly
// increasing sequence number, so the persisted order of a run never
// depends on wall-clock time.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}
