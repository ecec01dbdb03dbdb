// Package disk implements the fs.Backend contract on the local filesystem.
package disk

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/driftfs/driftfs/pkg/fs"
)

// DiskBackend implements fs.Backend using the operating system's filesystem.
//
// An optional root confines all paths to a subtree: contract paths are
// joined under it, and handle names are reported back in contract space.
// With an empty root, contract paths are used as OS paths directly.
//
// Thread Safety:
// Individual operations are as thread-safe as the underlying OS calls.
// TryLock is atomic because it maps to an O_EXCL exclusive create, which the
// kernel arbitrates. Rename maps to rename(2), the durable rename the
// atomic-write orchestration relies on.
type DiskBackend struct {
	root string
}

// NewDiskBackend creates a disk backend rooted at root. The root directory
// is created if missing. An empty root means raw OS paths.
func NewDiskBackend(root string) (*DiskBackend, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0755); err != nil {
			return nil, fmt.Errorf("failed to create root directory: %w", err)
		}
	}
	return &DiskBackend{root: root}, nil
}

// resolve maps a contract path to an OS path.
func (s *DiskBackend) resolve(p string) string {
	if s.root == "" {
		return filepath.FromSlash(p)
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(p, "/")))
}

// unresolve maps an OS path back to contract space.
func (s *DiskBackend) unresolve(osPath string) string {
	p := filepath.ToSlash(osPath)
	if s.root == "" {
		return p
	}
	return strings.TrimPrefix(strings.TrimPrefix(p, filepath.ToSlash(s.root)), "/")
}

// wrapErr converts OS error classes to the contract sentinels, keeping the
// original error in the chain.
func wrapErr(op, p string, err error) error {
	switch {
	case errors.Is(err, iofs.ErrNotExist):
		return fmt.Errorf("%s %s: %w: %w", op, p, fs.ErrNotFound, err)
	case errors.Is(err, iofs.ErrPermission):
		return fmt.Errorf("%s %s: %w: %w", op, p, fs.ErrPermission, err)
	case errors.Is(err, iofs.ErrExist):
		return fmt.Errorf("%s %s: %w: %w", op, p, fs.ErrAlreadyExists, err)
	default:
		return fmt.Errorf("%s %s: %w", op, p, err)
	}
}

// ============================================================================
// Open Operations
// ============================================================================

// OpenInput opens the named file for reading.
func (s *DiskBackend) OpenInput(filename string) (fs.InputFile, error) {
	f, err := os.Open(s.resolve(filename))
	if err != nil {
		return nil, wrapErr("open", filename, err)
	}
	return &inputFile{name: filename, f: f}, nil
}

// OpenOutput opens the named file for writing, truncating unless append is
// set. The parent directory must already exist.
func (s *DiskBackend) OpenOutput(filename string, append bool) (fs.OutputFile, error) {
	flags := os.O_WRONLY | os.O_CREATE
	if append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(s.resolve(filename), flags, 0644)
	if err != nil {
		return nil, wrapErr("open", filename, err)
	}
	return &outputFile{name: filename, f: f}, nil
}

// OpenTemp creates and opens a uniquely named file starting with prefix.
func (s *DiskBackend) OpenTemp(prefix string) (fs.OutputFile, error) {
	rp := s.resolve(prefix)

	f, err := os.CreateTemp(filepath.Dir(rp), filepath.Base(rp)+".*")
	if err != nil {
		return nil, wrapErr("open temp", prefix, err)
	}
	return &outputFile{name: s.unresolve(f.Name()), f: f}, nil
}

// ============================================================================
// File and Directory Operations
// ============================================================================

// Remove deletes the named file.
func (s *DiskBackend) Remove(filename string) error {
	rp := s.resolve(filename)

	fi, err := os.Lstat(rp)
	if err != nil {
		return wrapErr("remove", filename, err)
	}
	if fi.IsDir() {
		return fmt.Errorf("remove %s: %w", filename, fs.ErrIsDirectory)
	}
	if err := os.Remove(rp); err != nil {
		return wrapErr("remove", filename, err)
	}
	return nil
}

// Rename moves oldName onto newName via rename(2), atomically replacing an
// existing destination file.
func (s *DiskBackend) Rename(oldName, newName string) error {
	if err := os.Rename(s.resolve(oldName), s.resolve(newName)); err != nil {
		return wrapErr("rename", oldName, err)
	}
	return nil
}

// MakeDir creates a single directory; the parent must already exist.
func (s *DiskBackend) MakeDir(dir string) error {
	if err := os.Mkdir(s.resolve(dir), 0755); err != nil {
		return wrapErr("mkdir", dir, err)
	}
	return nil
}

// RemoveDir removes the named directory if it is empty.
func (s *DiskBackend) RemoveDir(dir string) error {
	rp := s.resolve(dir)

	fi, err := os.Lstat(rp)
	if err != nil {
		return wrapErr("rmdir", dir, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("rmdir %s: %w", dir, fs.ErrNotDirectory)
	}
	if err := os.Remove(rp); err != nil {
		return fmt.Errorf("rmdir %s: %w: %w", dir, fs.ErrNotEmpty, err)
	}
	return nil
}

// Exists answers whether the path exists.
func (s *DiskBackend) Exists(p string) fs.BoolOrError {
	_, err := os.Stat(s.resolve(p))
	switch {
	case err == nil:
		return fs.Bool(true)
	case errors.Is(err, iofs.ErrNotExist):
		return fs.Bool(false)
	default:
		return fs.ErrorResult()
	}
}

// IsDir answers whether the path exists and is a directory.
func (s *DiskBackend) IsDir(p string) fs.BoolOrError {
	fi, err := os.Stat(s.resolve(p))
	switch {
	case err == nil:
		return fs.Bool(fi.IsDir())
	case errors.Is(err, iofs.ErrNotExist):
		return fs.Bool(false)
	default:
		return fs.ErrorResult()
	}
}

// ListContents returns the full contract paths of the direct entries of dir.
func (s *DiskBackend) ListContents(dir string) ([]string, error) {
	entries, err := os.ReadDir(s.resolve(dir))
	if err != nil {
		return nil, wrapErr("list", dir, err)
	}

	var contents []string
	for _, entry := range entries {
		contents = append(contents, path.Join(dir, entry.Name()))
	}
	return contents, nil
}

// ============================================================================
// Stat Operations
// ============================================================================

// Atime returns the last access time of the path in seconds since the epoch.
func (s *DiskBackend) Atime(p string) (int64, error) {
	sec, err := atimeSec(s.resolve(p))
	if err != nil {
		return 0, wrapErr("stat", p, err)
	}
	return sec, nil
}

// Mtime returns the last modification time of the path in seconds since the
// epoch.
func (s *DiskBackend) Mtime(p string) (int64, error) {
	fi, err := os.Stat(s.resolve(p))
	if err != nil {
		return 0, wrapErr("stat", p, err)
	}
	return fi.ModTime().Unix(), nil
}

// Size returns the size of the named file in bytes. Unlike memory-based
// backends, this reports what the OS reports, which for some filesystems is
// allocated rather than logical size.
func (s *DiskBackend) Size(p string) (int64, error) {
	fi, err := os.Stat(s.resolve(p))
	if err != nil {
		return 0, wrapErr("stat", p, err)
	}
	return fi.Size(), nil
}

// ============================================================================
// Handles
// ============================================================================

type inputFile struct {
	name string
	f    *os.File
}

func (f *inputFile) Filename() string { return f.name }

func (f *inputFile) Read(p []byte) (int, error) { return f.f.Read(p) }

func (f *inputFile) Close() error { return f.f.Close() }

type outputFile struct {
	name string
	f    *os.File
}

func (f *outputFile) Filename() string { return f.name }

func (f *outputFile) Write(p []byte) (int, error) { return f.f.Write(p) }

// Flush forces written data down to stable storage.
func (f *outputFile) Flush() error { return f.f.Sync() }

func (f *outputFile) SetWorldReadable() error { return f.f.Chmod(0644) }

func (f *outputFile) Close() error { return f.f.Close() }
