package disk

import (
	"errors"
	iofs "io/fs"
	"os"
	"time"

	"github.com/driftfs/driftfs/pkg/fs"
)

// Lock implementation.
//
// A lock is an exclusively created file; the kernel arbitrates racing
// creators, so exactly one of several concurrent callers (threads or
// processes) wins. The file's mtime doubles as the claim timestamp, which
// is what TryLockWithTimeout compares against the caller's clock and what
// BumpLockTimeout refreshes.

// TryLock atomically claims the named lock with an O_EXCL create.
func (s *DiskBackend) TryLock(name string) fs.BoolOrError {
	f, err := os.OpenFile(s.resolve(name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0666)
	switch {
	case err == nil:
		_ = f.Close()
		return fs.Bool(true)
	case errors.Is(err, iofs.ErrExist):
		return fs.Bool(false)
	default:
		return fs.ErrorResult()
	}
}

// TryLockWithTimeout claims the named lock, removing and re-claiming it if
// the current claim's mtime is older than timeoutMillis by the caller's
// clock. The remove-then-create window means a racing breaker can slip in
// between; the loser simply observes false, which is the advisory behavior
// this variant promises.
func (s *DiskBackend) TryLockWithTimeout(name string, timeoutMillis int64, clock fs.Clock) fs.BoolOrError {
	fi, err := os.Stat(s.resolve(name))
	switch {
	case errors.Is(err, iofs.ErrNotExist):
		return s.TryLock(name)
	case err != nil:
		return fs.ErrorResult()
	}

	if clock.NowMillis()-fi.ModTime().UnixMilli() <= timeoutMillis {
		return fs.Bool(false)
	}

	// Stale: break it and race for the claim.
	_ = os.Remove(s.resolve(name))
	return s.TryLock(name)
}

// BumpLockTimeout refreshes the claim timestamp of the named lock.
func (s *DiskBackend) BumpLockTimeout(name string) error {
	now := time.Now()
	if err := os.Chtimes(s.resolve(name), now, now); err != nil {
		return wrapErr("bump lock", name, err)
	}
	return nil
}

// Unlock releases the named lock by removing its file. Releasing a lock
// nobody holds succeeds, matching the other backends.
func (s *DiskBackend) Unlock(name string) error {
	if err := os.Remove(s.resolve(name)); err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return wrapErr("unlock", name, err)
	}
	return nil
}
