// Package fs defines a portable filesystem abstraction: one contract that
// every storage backend (local disk, in-memory, embedded key-value store,
// object storage) satisfies, so callers can read, write, enumerate and lock
// files without knowing which backend is underneath.
//
// The package splits responsibility in two:
//
//   - Backend is the primitive contract a concrete backend supplies: raw
//     open/remove/rename/mkdir/stat/list plus an atomic exclusive-create
//     lock primitive.
//
//   - FS layers the cross-cutting guarantees on top of any Backend: size
//     capped bulk reads, atomic publication of writes via temp-file-then
//     rename, automatic creation of parent directories before every output
//     open and rename, recursive directory aggregation, and the best-effort
//     stale-lock takeover protocol.
//
// All operations are blocking and run to completion or failure; only the
// lock protocol has a notion of elapsed time.
package fs

import (
	"fmt"
	"path"
	"strings"
)

// UnlimitedSize disables the size cap on bulk reads.
//
// This is documented as -1 in user-facing documentation, so don't change it.
// Reading without a cap is dangerous: a file that is much larger than
// expected can exhaust memory. Pass a real limit unless you control the
// producer of the file.
const UnlimitedSize int64 = -1

// DefaultMaxPathLength is returned by MaxPathLength for backends that do not
// report their own limit. Deliberately conservative.
const DefaultMaxPathLength = 8192

// Backend is the primitive contract a concrete storage backend supplies.
//
// Paths are slash-separated and must not end in a separator. Backends do not
// create parent directories, cap read sizes, or break stale locks; those
// cross-cutting concerns live in FS. Backends report their own low-level
// failures to their diagnostics handler at the point of failure and return
// errors wrapping the sentinels in errors.go where a category applies.
//
// Thread Safety:
// Backends must be safe for concurrent use by multiple goroutines. TryLock
// in particular must be atomic at the storage level (an exclusive-create
// primitive, not check-then-create): when callers race for an un-held name,
// exactly one may observe true.
type Backend interface {
	// OpenInput opens the named file for reading.
	OpenInput(filename string) (InputFile, error)

	// OpenOutput opens the named file for writing, truncating unless append
	// is set. The parent directory must already exist; FS creates it.
	OpenOutput(filename string, append bool) (OutputFile, error)

	// OpenTemp creates and opens a uniquely named file starting with
	// prefix. The chosen name is available via the handle's Filename.
	OpenTemp(prefix string) (OutputFile, error)

	// Remove deletes the named file, like POSIX rm.
	Remove(filename string) error

	// Rename moves oldName onto newName, like POSIX mv. For local
	// backends this is the durable rename WriteFileAtomic relies on;
	// backends that cannot rename atomically must document it.
	Rename(oldName, newName string) error

	// MakeDir creates a single directory, like POSIX mkdir. Fails if the
	// parent is missing or the path already exists.
	MakeDir(dir string) error

	// RemoveDir removes an empty directory, like POSIX rmdir.
	RemoveDir(dir string) error

	// Exists answers whether the path exists at all, like test -e.
	Exists(p string) BoolOrError

	// IsDir answers whether the path exists and is a directory, like
	// test -d.
	IsDir(p string) BoolOrError

	// ListContents returns the full paths of the direct entries of dir,
	// omitting "." and "..". An existing empty directory yields a nil
	// slice and no error; a missing directory is an error.
	ListContents(dir string) ([]string, error)

	// Atime returns the last access time of the path in seconds since
	// the epoch.
	Atime(p string) (int64, error)

	// Mtime returns the last content modification time of the path in
	// seconds since the epoch.
	Mtime(p string) (int64, error)

	// Size returns the size of the named file in bytes. Behavior for
	// directories is backend-specific.
	Size(p string) (int64, error)

	// TryLock atomically claims the named lock. True means claimed, false
	// means somebody else holds it, error means the attempt itself could
	// not be evaluated. The name is a storage path not otherwise used for
	// content.
	TryLock(name string) BoolOrError

	// Unlock releases a held lock. Calling it without holding the lock is
	// undefined; that discipline is the caller's responsibility.
	Unlock(name string) error
}

// LockBreaker is the optional backend capability for timeout-based lock
// staleness recovery. The two methods are deliberately coupled in one
// interface: an implementation that breaks stale locks must also let holders
// refresh their claim, otherwise the staleness window is meaningless.
type LockBreaker interface {
	// TryLockWithTimeout behaves like Backend.TryLock, except that a lock
	// whose claim is older than timeoutMillis (by clock's reckoning) may
	// be broken and taken over.
	TryLockWithTimeout(name string, timeoutMillis int64, clock Clock) BoolOrError

	// BumpLockTimeout refreshes the claim timestamp of a lock the caller
	// holds so long-running work is not pre-empted by a breaker.
	BumpLockTimeout(name string) error
}

// PathLimiter is the optional backend capability to report path length
// limits. Backends without it get DefaultMaxPathLength.
type PathLimiter interface {
	MaxPathLength(base string) int
}

// HealthChecker is implemented by backends with external dependencies
// (embedded databases, object stores) to verify they can serve requests.
type HealthChecker interface {
	Healthcheck() error
}

// ============================================================================
// FS
// ============================================================================

// FS is the filesystem abstraction callers use. It delegates primitives to
// the configured Backend and itself supplies only orchestration: auto-mkdir
// before output opens and renames, temp-write-then-rename atomic
// publication, traversal aggregation, and the lock-timeout fallback.
//
// FS holds no per-file or per-lock state. Lock state in particular lives
// entirely in the backend and is observed fresh on every call, so locks stay
// valid across process restarts and across holders that share nothing but
// the lock name.
type FS struct {
	b Backend
	h MessageHandler
}

// New wraps a backend in the high-level abstraction. A nil handler defaults
// to LogHandler.
func New(backend Backend, handler MessageHandler) *FS {
	if handler == nil {
		handler = LogHandler{}
	}
	return &FS{b: backend, h: handler}
}

// Backend returns the wrapped backend, mainly so tests and tools can probe
// optional capabilities.
func (f *FS) Backend() Backend { return f.b }

// OpenInputFile opens the named file for reading.
func (f *FS) OpenInputFile(filename string) (InputFile, error) {
	in, err := f.b.OpenInput(filename)
	if err != nil {
		f.h.Error("failed to open %s for input: %v", filename, err)
		return nil, err
	}
	return in, nil
}

// OpenOutputFile opens the named file for writing, truncating existing
// content. Parent directories are created automatically.
func (f *FS) OpenOutputFile(filename string) (OutputFile, error) {
	f.setupFileDir(filename)
	out, err := f.b.OpenOutput(filename, false)
	if err != nil {
		f.h.Error("failed to open %s for output: %v", filename, err)
		return nil, err
	}
	return out, nil
}

// OpenOutputFileForAppend opens the named file for appending. Parent
// directories are created automatically.
func (f *FS) OpenOutputFileForAppend(filename string) (OutputFile, error) {
	f.setupFileDir(filename)
	out, err := f.b.OpenOutput(filename, true)
	if err != nil {
		f.h.Error("failed to open %s for append: %v", filename, err)
		return nil, err
	}
	return out, nil
}

// OpenTempFile creates and opens a uniquely named file with the given
// prefix. The final name is available from the handle's Filename. Parent
// directories of the prefix are created automatically.
func (f *FS) OpenTempFile(prefix string) (OutputFile, error) {
	f.setupFileDir(prefix)
	out, err := f.b.OpenTemp(prefix)
	if err != nil {
		f.h.Error("failed to open temp file with prefix %s: %v", prefix, err)
		return nil, err
	}
	return out, nil
}

// Close releases the handle and its underlying resource. Ownership of the
// handle transfers to this call; the handle must not be used afterwards.
func (f *FS) Close(file File) error {
	if err := file.Close(); err != nil {
		f.h.Error("failed to close %s: %v", file.Filename(), err)
		return err
	}
	return nil
}

// RemoveFile deletes the named file.
func (f *FS) RemoveFile(filename string) error {
	if err := f.b.Remove(filename); err != nil {
		f.h.Error("failed to remove %s: %v", filename, err)
		return err
	}
	return nil
}

// RenameFile moves oldName onto newName, creating newName's parent
// directories automatically.
func (f *FS) RenameFile(oldName, newName string) error {
	f.setupFileDir(newName)
	if err := f.b.Rename(oldName, newName); err != nil {
		f.h.Error("failed to rename %s to %s: %v", oldName, newName, err)
		return err
	}
	return nil
}

// MakeDir creates a single directory; the parent must exist.
func (f *FS) MakeDir(dir string) error {
	if err := f.b.MakeDir(dir); err != nil {
		f.h.Error("failed to create directory %s: %v", dir, err)
		return err
	}
	return nil
}

// RemoveDir removes an empty directory.
func (f *FS) RemoveDir(dir string) error {
	if err := f.b.RemoveDir(dir); err != nil {
		f.h.Error("failed to remove directory %s: %v", dir, err)
		return err
	}
	return nil
}

// Exists answers whether the path exists.
func (f *FS) Exists(p string) BoolOrError { return f.b.Exists(p) }

// IsDir answers whether the path exists and is a directory.
func (f *FS) IsDir(p string) BoolOrError { return f.b.IsDir(p) }

// ListContents returns the full paths of the direct entries of dir. Success
// with an empty result means the directory exists and is empty; a missing
// directory is an error. The listing is not protected against concurrent
// mutation of dir; serialize externally when that matters.
func (f *FS) ListContents(dir string) ([]string, error) {
	entries, err := f.b.ListContents(dir)
	if err != nil {
		f.h.Error("failed to list %s: %v", dir, err)
		return nil, err
	}
	return entries, nil
}

// Atime returns the last access time of the path in seconds since the epoch.
func (f *FS) Atime(p string) (int64, error) {
	sec, err := f.b.Atime(p)
	if err != nil {
		f.h.Error("failed to stat atime of %s: %v", p, err)
		return 0, err
	}
	return sec, nil
}

// Mtime returns the last modification time of the path in seconds since the
// epoch.
func (f *FS) Mtime(p string) (int64, error) {
	sec, err := f.b.Mtime(p)
	if err != nil {
		f.h.Error("failed to stat mtime of %s: %v", p, err)
		return 0, err
	}
	return sec, nil
}

// Size returns the size of the named file in bytes.
func (f *FS) Size(p string) (int64, error) {
	size, err := f.b.Size(p)
	if err != nil {
		f.h.Error("failed to stat size of %s: %v", p, err)
		return 0, err
	}
	return size, nil
}

// MaxPathLength returns the maximum path length under base. Note that this
// is a total; individual components may be constrained further.
func (f *FS) MaxPathLength(base string) int {
	if pl, ok := f.b.(PathLimiter); ok {
		return pl.MaxPathLength(base)
	}
	return DefaultMaxPathLength
}

// RecursivelyMakeDir makes all directories up to dir, like mkdir -p. Fails
// if any directory in the chain cannot be created.
func (f *FS) RecursivelyMakeDir(dir string) error {
	dir = strings.TrimSuffix(dir, "/")
	if dir == "" || dir == "." || dir == "/" {
		return nil
	}

	if is := f.b.IsDir(dir); is.IsTrue() {
		return nil
	}

	if parent := path.Dir(dir); parent != dir {
		if err := f.RecursivelyMakeDir(parent); err != nil {
			return err
		}
	}

	if err := f.b.MakeDir(dir); err != nil {
		// Somebody may have created it between the check and the mkdir.
		if is := f.b.IsDir(dir); is.IsTrue() {
			return nil
		}
		f.h.Error("failed to create directory %s: %v", dir, err)
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// setupFileDir recursively creates the parent directory of filename. Every
// output open and the destination side of every rename funnel through here,
// so callers never pre-create directories themselves. Failures are reported
// but not returned; the subsequent open fails on its own if the directory
// is genuinely unusable.
func (f *FS) setupFileDir(filename string) {
	dir := path.Dir(strings.TrimSuffix(filename, "/"))
	if dir == "" || dir == "." || dir == "/" {
		return
	}
	if err := f.RecursivelyMakeDir(dir); err != nil {
		f.h.Warning("failed to set up directory for %s: %v", filename, err)
	}
}
