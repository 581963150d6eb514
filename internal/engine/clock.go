package engine

// Clock is a monotonic logical clock for event ordering.
//
// Every event pushed onto the queue is stamped with a strictly increasing
// seq number. Events with equal timestamps pop in seq order, which makes
// the merge deterministic regardless of heap internals.
//
// Clock is owned by a single computation and is not safe for concurrent use.
type Clock struct {
	seq int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq
}
