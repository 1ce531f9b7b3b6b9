package history

import (
	"sync"
	"time"
)

// Clock hands out strictly increasing wall-clock timestamps.
//
// When the underlying time source returns a value that is not after the last
// one issued (coarse timers, clock steps), the last value plus one nanosecond
// is returned instead.
type Clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// NewClock creates a clock reading from time.Now.
func NewClock() *Clock {
	return NewClockFunc(time.Now)
}

// NewClockFunc creates a clock reading from now.
func NewClockFunc(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Next returns the next timestamp.
func (c *Clock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now()
	if !t.After(c.last) {
		t = c.last.Add(time.Nanosecond)
	}
	c.last = t
	return t
}

// Observe advances the clock to at least t. Used when replaying a journal so
// new entries sort after the replayed ones.
func (c *Clock) Observe(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.last) {
		c.last = t
	}
}
