// Package idgen provides the one piece of process-wide mutable state the
// pipeline allows outside the logger: a monotonic, atomically incremented
// polygon-id counter (spec §5), seeded from a persisted value so ids stay
// unique across a process restart.
package idgen

import "sync/atomic"

// Counter is an atomically incremented id source. The zero value is
// ready to use and starts at 0; use New to seed it from a persisted
// value before any Next calls in a resumed run.
type Counter struct {
	n atomic.Int64
}

// New returns a Counter starting at start (exclusive -- the first Next
// call returns start+1).
func New(start int64) *Counter {
	c := &Counter{}
	c.n.Store(start)
	return c
}

// Next returns the next id in the sequence. Safe for concurrent use by
// every tile-processing goroutine.
func (c *Counter) Next() int64 {
	return c.n.Add(1)
}

// Current returns the most recently issued id without allocating a new
// one, for checkpointing to persistent storage between tiles.
func (c *Counter) Current() int64 {
	return c.n.Load()
}
