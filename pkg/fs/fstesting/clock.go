// Package fstesting provides a reusable conformance test suite for
// fs.Backend implementations, plus test clocks for deterministic
// lock-timeout behavior.
package fstesting

import "sync"

// ManualClock is a Clock that only moves when told to. Backends constructed
// with it observe deterministic lock claim ages, which makes timeout and
// takeover behavior testable without sleeping.
type ManualClock struct {
	mu     sync.Mutex
	millis int64
}

// NewManualClock returns a clock frozen at start milliseconds.
func NewManualClock(start int64) *ManualClock {
	return &ManualClock{millis: start}
}

// NowMillis returns the current manual time.
func (c *ManualClock) NowMillis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.millis
}

// AdvanceMillis moves the clock forward by d milliseconds.
func (c *ManualClock) AdvanceMillis(d int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.millis += d
}
