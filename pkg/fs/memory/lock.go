package memory

import (
	"fmt"

	"github.com/driftfs/driftfs/pkg/fs"
)

// Lock implementation.
//
// Claim timestamps come from the backend's injected clock, which is what
// makes staleness deterministic under test: a manual clock can move "now"
// past any timeout without sleeping. Check-and-claim happens under the
// store mutex, so exactly one of several racing callers observes true.

// TryLock atomically claims the named lock.
func (s *MemoryBackend) TryLock(name string) fs.BoolOrError {
	name = normalize(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, held := s.locks[name]; held {
		return fs.Bool(false)
	}
	s.locks[name] = s.clock.NowMillis()
	return fs.Bool(true)
}

// TryLockWithTimeout claims the named lock, breaking it if the current
// claim is older than timeoutMillis according to the caller's clock.
func (s *MemoryBackend) TryLockWithTimeout(name string, timeoutMillis int64, clock fs.Clock) fs.BoolOrError {
	name = normalize(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	claim, held := s.locks[name]
	if held && clock.NowMillis()-claim <= timeoutMillis {
		return fs.Bool(false)
	}
	s.locks[name] = s.clock.NowMillis()
	return fs.Bool(true)
}

// BumpLockTimeout refreshes the claim timestamp of the named lock.
func (s *MemoryBackend) BumpLockTimeout(name string) error {
	name = normalize(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, held := s.locks[name]; !held {
		return fmt.Errorf("bump lock %s: %w", name, fs.ErrNotFound)
	}
	s.locks[name] = s.clock.NowMillis()
	return nil
}

// Unlock releases the named lock.
func (s *MemoryBackend) Unlock(name string) error {
	name = normalize(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.locks, name)
	return nil
}
