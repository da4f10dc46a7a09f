// Package testutil provides testing utilities.
package testutil

import (
	"sync"
	"time"

	"streaktodo/internal/streak"
)

// Clock is a manually advanced time source.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

// NewClock returns a Clock set to noon UTC on date (YYYY-MM-DD).
// It panics on a malformed date.
func NewClock(date string) *Clock {
	t, err := time.Parse(streak.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return &Clock{t: t.Add(12 * time.Hour)}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// AdvanceDays moves the clock forward by n calendar days.
func (c *Clock) AdvanceDays(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.AddDate(0, 0, n)
}

// Today returns the clock's current date string.
func (c *Clock) Today() string {
	return c.Now().Format(streak.DateLayout)
}
