package fs

// Lock protocol.
//
// A lock is identified by a name that is itself a storage path not otherwise
// used for content, in an extant directory. There is no in-process lock
// object and no client-side cache: every call observes the backend afresh,
// which is what keeps locks valid across process restarts and across holders
// that share nothing but the name. "Ownership" of a held lock is an
// out-of-band fact known only to whichever caller last succeeded and has not
// yet unlocked.
//
// Acquisition is never retried internally; contention handling is the
// caller's business.

// TryLock attempts to atomically claim the named lock. True means claimed
// (you must eventually call Unlock), false means somebody else holds it,
// error means the attempt could not be evaluated, for example a permission
// failure distinct from contention.
func (f *FS) TryLock(name string) BoolOrError {
	result := f.b.TryLock(name)
	if result.IsError() {
		f.h.Error("failed to evaluate lock attempt on %s", name)
	}
	return result
}

// TryLockWithTimeout is TryLock with best-effort staleness recovery: if the
// lock is held but was claimed or last bumped more than timeoutMillis ago
// (by clock's reckoning), the caller may break it and take over.
//
// Breaking a lock gives no guarantee the previous holder has stopped
// working. A lock obtained through this method is advisory, not exclusive.
//
// A backend without the LockBreaker capability simply behaves like TryLock,
// ignoring the timeout.
func (f *FS) TryLockWithTimeout(name string, timeoutMillis int64, clock Clock) BoolOrError {
	if lb, ok := f.b.(LockBreaker); ok {
		result := lb.TryLockWithTimeout(name, timeoutMillis, clock)
		if result.IsError() {
			f.h.Error("failed to evaluate timed lock attempt on %s", name)
		}
		return result
	}
	return f.TryLock(name)
}

// BumpLockTimeout refreshes the claim timestamp of a lock the caller
// currently holds, so a long-running holder is not pre-empted by a
// timeout-based breaker. Bump often enough that the staleness window never
// elapses while you are still working.
//
// On a backend without the LockBreaker capability this does nothing and
// succeeds, matching its TryLockWithTimeout fallback.
func (f *FS) BumpLockTimeout(name string) error {
	lb, ok := f.b.(LockBreaker)
	if !ok {
		return nil
	}
	if err := lb.BumpLockTimeout(name); err != nil {
		f.h.Error("failed to bump lock %s: %v", name, err)
		return err
	}
	return nil
}

// Unlock releases a lock previously obtained through TryLock or
// TryLockWithTimeout. An error means the release did not take effect (for
// example somebody write-protected the lock file); the caller may retry or
// move to a different lock name. Calling Unlock without holding the lock is
// undefined and is not defended against.
func (f *FS) Unlock(name string) error {
	if err := f.b.Unlock(name); err != nil {
		f.h.Error("failed to release lock %s: %v", name, err)
		return err
	}
	return nil
}
