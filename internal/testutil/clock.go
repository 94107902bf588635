// Package testutil provides test doubles shared across packages.
package testutil

import (
	"sync"
	"time"
)

// FakeClock is a manually driven clock for deterministic timeout tests.
// It implements exec.Clock.
//
// Every Now() call advances the clock by Step before returning, so a
// test can make the execution budget elapse after a known number of
// step-boundary checks without sleeping.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type FakeClock struct {
	mu   sync.Mutex
	now  time.Time
	Step time.Duration // advance applied on every Now() call
}

// NewFakeClock creates a clock frozen at a fixed, arbitrary epoch.
func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Now returns the current fake time, then advances by Step.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.Step)
	return t
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
