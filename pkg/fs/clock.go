package fs

import "time"

// Clock supplies the current time for lock-staleness arithmetic.
//
// Backends record lock claim timestamps in milliseconds; the caller's clock
// produces "now" in the same unit so that TryLockWithTimeout can compare the
// two. Injecting the clock keeps timeout behavior deterministic under test.
type Clock interface {
	// NowMillis returns the current time in milliseconds since the epoch.
	NowMillis() int64
}

// SystemClock is the wall-clock Clock used outside of tests.
type SystemClock struct{}

// NowMillis implements Clock.
func (SystemClock) NowMillis() int64 { return time.Now().UnixMilli() }
