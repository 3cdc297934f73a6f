// Package rigtest provides helpers for testing code that drives the rig.
package rigtest

import (
	"sync"
	"time"

	"github.com/juju/clock"
)

// compile time check for protocol compatibility
var _ clock.Clock = (*Clock)(nil)

// Clock is a clock.Clock whose time only moves when something waits on it.
// Every wait advances the clock by exactly the requested duration and returns
// immediately, which makes blocking timing loops deterministic.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d > 0 {
		c.now = c.now.Add(d)
	}
}

func (c *Clock) After(d time.Duration) <-chan time.Time {
	c.Advance(d)

	ch := make(chan time.Time, 1)
	ch <- c.Now()

	return ch
}

func (c *Clock) AfterFunc(d time.Duration, f func()) clock.Timer {
	c.Advance(d)
	f()

	return &timer{ch: make(chan time.Time)}
}

func (c *Clock) NewTimer(d time.Duration) clock.Timer {
	return &timer{clock: c, ch: c.After(d)}
}

type timer struct {
	clock *Clock
	ch    <-chan time.Time
}

func (t *timer) Chan() <-chan time.Time {
	return t.ch
}

func (t *timer) Reset(d time.Duration) bool {
	if t.clock != nil {
		t.ch = t.clock.After(d)
	}
	return false
}

func (t *timer) Stop() bool {
	return false
}
