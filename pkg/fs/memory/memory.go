// Package memory implements the fs.Backend contract with in-memory storage.
package memory

import (
	"bytes"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/driftfs/driftfs/pkg/fs"
)

// MemoryBackend implements fs.Backend using in-memory data structures.
//
// This implementation is the reference backend for the abstraction. It is
// designed for:
//   - Deterministic tests, especially timing-sensitive lock behavior
//     (the clock is injected, so staleness can be driven manually)
//   - Ephemeral filesystems where persistence is not required
//   - Development without touching the real disk
//
// Characteristics:
//   - Fast: all operations are memory-speed
//   - Volatile: everything is lost when the process exits
//   - Thread-safe: protected by a single RWMutex; input handles read from a
//     snapshot taken at open time, so each open observes a consistent
//     instant even while writers mutate the entry
//
// Lock state lives in the same store as file entries, keyed by lock name,
// with the claim timestamp in milliseconds as observed by the injected
// clock. TryLock is atomic because claim-checking and claiming happen under
// one mutex acquisition.
type MemoryBackend struct {
	// mu protects entries and locks.
	mu sync.RWMutex

	// entries maps normalized paths to files and directories.
	entries map[string]*entry

	// locks maps lock names to their last claim or bump, in milliseconds.
	locks map[string]int64

	// clock supplies timestamps for atime, mtime and lock claims.
	clock fs.Clock
}

// entry is one file or directory.
type entry struct {
	isDir         bool
	data          []byte
	atimeSec      int64
	mtimeSec      int64
	worldReadable bool
}

// NewMemoryBackend creates an empty in-memory backend. A nil clock defaults
// to the system clock.
func NewMemoryBackend(clock fs.Clock) *MemoryBackend {
	if clock == nil {
		clock = fs.SystemClock{}
	}
	return &MemoryBackend{
		entries: make(map[string]*entry),
		locks:   make(map[string]int64),
		clock:   clock,
	}
}

// normalize cleans a path without resolving anything outside the store. The
// leading slash is stripped so "/a" and "a" name the same entry.
func normalize(p string) string {
	p = strings.TrimPrefix(path.Clean(p), "/")
	if p == "." {
		return ""
	}
	return p
}

// isRoot reports whether the path denotes the implicit root directory,
// which always exists. "." is what path.Dir returns for top-level names.
func isRoot(p string) bool {
	return p == "" || p == "."
}

func (s *MemoryBackend) nowSec() int64 { return s.clock.NowMillis() / 1000 }

// dirExistsLocked reports whether p is an existing directory. Caller holds mu.
func (s *MemoryBackend) dirExistsLocked(p string) bool {
	if isRoot(p) {
		return true
	}
	e, ok := s.entries[p]
	return ok && e.isDir
}

// ============================================================================
// Open Operations
// ============================================================================

// OpenInput opens the named file for reading. The handle reads from a copy
// of the content taken now, so later writes do not tear this read.
func (s *MemoryBackend) OpenInput(filename string) (fs.InputFile, error) {
	filename = normalize(filename)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[filename]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", filename, fs.ErrNotFound)
	}
	if e.isDir {
		return nil, fmt.Errorf("open %s: %w", filename, fs.ErrIsDirectory)
	}

	e.atimeSec = s.nowSec()
	snapshot := make([]byte, len(e.data))
	copy(snapshot, e.data)

	return &inputFile{name: filename, r: bytes.NewReader(snapshot)}, nil
}

// OpenOutput opens the named file for writing. Writes land in the store
// immediately, so a concurrent reader opening mid-write can observe a
// partial file; that is the documented non-atomic write behavior.
func (s *MemoryBackend) OpenOutput(filename string, append bool) (fs.OutputFile, error) {
	filename = normalize(filename)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirExistsLocked(path.Dir(filename)) {
		return nil, fmt.Errorf("open %s: parent: %w", filename, fs.ErrNotFound)
	}

	e, ok := s.entries[filename]
	if ok && e.isDir {
		return nil, fmt.Errorf("open %s: %w", filename, fs.ErrIsDirectory)
	}
	if !ok || !append {
		now := s.nowSec()
		s.entries[filename] = &entry{atimeSec: now, mtimeSec: now}
	}

	return &outputFile{store: s, name: filename}, nil
}

// OpenTemp creates and opens a uniquely named file starting with prefix.
func (s *MemoryBackend) OpenTemp(prefix string) (fs.OutputFile, error) {
	prefix = normalize(prefix)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirExistsLocked(path.Dir(prefix)) {
		return nil, fmt.Errorf("open temp %s: parent: %w", prefix, fs.ErrNotFound)
	}

	var filename string
	for {
		filename = prefix + "." + uuid.NewString()
		if _, taken := s.entries[filename]; !taken {
			break
		}
	}

	now := s.nowSec()
	s.entries[filename] = &entry{atimeSec: now, mtimeSec: now}

	return &outputFile{store: s, name: filename}, nil
}

// appendData appends p to the named file, making the partial state visible.
func (s *MemoryBackend) appendData(filename string, p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[filename]
	if !ok || e.isDir {
		return 0, fmt.Errorf("write %s: %w", filename, fs.ErrNotFound)
	}
	e.data = append(e.data, p...)
	e.mtimeSec = s.nowSec()
	return len(p), nil
}

func (s *MemoryBackend) setWorldReadable(filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[filename]
	if !ok || e.isDir {
		return fmt.Errorf("chmod %s: %w", filename, fs.ErrNotFound)
	}
	e.worldReadable = true
	return nil
}

// ============================================================================
// File and Directory Operations
// ============================================================================

// Remove deletes the named file.
func (s *MemoryBackend) Remove(filename string) error {
	filename = normalize(filename)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[filename]
	if !ok {
		return fmt.Errorf("remove %s: %w", filename, fs.ErrNotFound)
	}
	if e.isDir {
		return fmt.Errorf("remove %s: %w", filename, fs.ErrIsDirectory)
	}
	delete(s.entries, filename)
	return nil
}

// Rename moves oldName onto newName, replacing an existing file at the
// destination. Directories move together with everything under them.
func (s *MemoryBackend) Rename(oldName, newName string) error {
	oldName = normalize(oldName)
	newName = normalize(newName)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[oldName]
	if !ok {
		return fmt.Errorf("rename %s: %w", oldName, fs.ErrNotFound)
	}
	if !s.dirExistsLocked(path.Dir(newName)) {
		return fmt.Errorf("rename to %s: parent: %w", newName, fs.ErrNotFound)
	}
	if dst, exists := s.entries[newName]; exists && dst.isDir {
		return fmt.Errorf("rename to %s: %w", newName, fs.ErrIsDirectory)
	}

	s.entries[newName] = e
	delete(s.entries, oldName)

	if e.isDir {
		oldPrefix := oldName + "/"
		for p, child := range s.entries {
			if strings.HasPrefix(p, oldPrefix) {
				s.entries[newName+"/"+strings.TrimPrefix(p, oldPrefix)] = child
				delete(s.entries, p)
			}
		}
	}
	return nil
}

// MakeDir creates a single directory; the parent must already exist.
func (s *MemoryBackend) MakeDir(dir string) error {
	dir = normalize(dir)

	s.mu.Lock()
	defer s.mu.Unlock()

	if isRoot(dir) {
		return fmt.Errorf("mkdir %s: %w", dir, fs.ErrAlreadyExists)
	}
	if _, exists := s.entries[dir]; exists {
		return fmt.Errorf("mkdir %s: %w", dir, fs.ErrAlreadyExists)
	}
	if !s.dirExistsLocked(path.Dir(dir)) {
		return fmt.Errorf("mkdir %s: parent: %w", dir, fs.ErrNotFound)
	}

	now := s.nowSec()
	s.entries[dir] = &entry{isDir: true, atimeSec: now, mtimeSec: now}
	return nil
}

// RemoveDir removes the named directory if it is empty.
func (s *MemoryBackend) RemoveDir(dir string) error {
	dir = normalize(dir)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[dir]
	if !ok {
		return fmt.Errorf("rmdir %s: %w", dir, fs.ErrNotFound)
	}
	if !e.isDir {
		return fmt.Errorf("rmdir %s: %w", dir, fs.ErrNotDirectory)
	}

	prefix := dir + "/"
	for p := range s.entries {
		if strings.HasPrefix(p, prefix) {
			return fmt.Errorf("rmdir %s: %w", dir, fs.ErrNotEmpty)
		}
	}
	delete(s.entries, dir)
	return nil
}

// Exists answers whether the path exists.
func (s *MemoryBackend) Exists(p string) fs.BoolOrError {
	p = normalize(p)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if isRoot(p) {
		return fs.Bool(true)
	}
	_, ok := s.entries[p]
	return fs.Bool(ok)
}

// IsDir answers whether the path exists and is a directory.
func (s *MemoryBackend) IsDir(p string) fs.BoolOrError {
	p = normalize(p)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if isRoot(p) {
		return fs.Bool(true)
	}
	e, ok := s.entries[p]
	return fs.Bool(ok && e.isDir)
}

// ListContents returns the full paths of the direct entries of dir.
func (s *MemoryBackend) ListContents(dir string) ([]string, error) {
	dir = normalize(dir)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.dirExistsLocked(dir) {
		if _, ok := s.entries[dir]; ok {
			return nil, fmt.Errorf("list %s: %w", dir, fs.ErrNotDirectory)
		}
		return nil, fmt.Errorf("list %s: %w", dir, fs.ErrNotFound)
	}

	var contents []string
	for p := range s.entries {
		parent := path.Dir(p)
		if parent == "." {
			parent = ""
		}
		if parent == dir || (isRoot(dir) && isRoot(parent)) {
			contents = append(contents, p)
		}
	}
	sort.Strings(contents)
	return contents, nil
}

// ============================================================================
// Stat Operations
// ============================================================================

func (s *MemoryBackend) stat(p string) (*entry, error) {
	e, ok := s.entries[normalize(p)]
	if !ok {
		return nil, fmt.Errorf("stat %s: %w", p, fs.ErrNotFound)
	}
	return e, nil
}

// Atime returns the last access time of the path in seconds since the epoch.
func (s *MemoryBackend) Atime(p string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.stat(p)
	if err != nil {
		return 0, err
	}
	return e.atimeSec, nil
}

// Mtime returns the last modification time of the path in seconds since the
// epoch.
func (s *MemoryBackend) Mtime(p string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.stat(p)
	if err != nil {
		return 0, err
	}
	return e.mtimeSec, nil
}

// Size returns the size of the named file in bytes.
func (s *MemoryBackend) Size(p string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.stat(p)
	if err != nil {
		return 0, err
	}
	return int64(len(e.data)), nil
}

// ============================================================================
// Handles
// ============================================================================

type inputFile struct {
	name string
	r    *bytes.Reader
}

func (f *inputFile) Filename() string { return f.name }

func (f *inputFile) Read(p []byte) (int, error) { return f.r.Read(p) }

func (f *inputFile) Close() error { return nil }

type outputFile struct {
	store *MemoryBackend
	name  string
}

func (f *outputFile) Filename() string { return f.name }

func (f *outputFile) Write(p []byte) (int, error) { return f.store.appendData(f.name, p) }

// Flush is a no-op: writes are published as they happen.
func (f *outputFile) Flush() error { return nil }

func (f *outputFile) SetWorldReadable() error { return f.store.setWorldReadable(f.name) }

func (f *outputFile) Close() error { return nil }
