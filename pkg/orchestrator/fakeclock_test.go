package orchestrator

import (
	"sync"
	"time"
)

// fakeClock is an injectable Clock whose Now() advances by a fixed step on
// every call, giving deterministic, monotonically increasing timestamps
// without sleeping real wall-clock time.
type fakeClock struct {
	mu   sync.Mutex
	cur  time.Time
	step time.Duration
}

func newFakeClock(start time.Time, step time.Duration) *fakeClock {
	return &fakeClock{cur: start, step: step}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.cur
	c.cur = c.cur.Add(c.step)
	return now
}
