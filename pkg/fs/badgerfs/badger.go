// Package badgerfs implements the fs.Backend contract on BadgerDB, a fast
// embedded key-value store.
package badgerfs

import (
	"encoding/binary"
	"fmt"
	"path"
	"sort"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/driftfs/driftfs/pkg/fs"
)

// BadgerBackend implements fs.Backend with persistent storage in BadgerDB.
//
// It is suitable for:
//   - Deployments that need contents and locks to survive restarts without
//     depending on the shape of a host filesystem
//   - Single-binary systems embedding their own storage
//
// Storage Model:
// The store uses namespaced key prefixes so different record types never
// collide:
//
//	f:<path>  file record: 16-byte header (atime, mtime seconds) + data
//	d:<path>  directory marker: 16-byte header only
//	l:<name>  lock record: claim timestamp in milliseconds
//
// Rename runs inside one transaction, so it is the durable all-or-nothing
// rename the atomic-write orchestration requires. TryLock relies on Badger's
// serializable transactions: two racing claim attempts conflict at commit
// and the loser observes contention.
type BadgerBackend struct {
	db    *badger.DB
	clock fs.Clock
}

// Config configures a BadgerBackend.
type Config struct {
	// Path is the directory holding the database. Ignored when InMemory.
	Path string

	// InMemory keeps the whole database in memory; useful for tests.
	InMemory bool
}

// NewBadgerBackend opens (or creates) the database and returns the backend.
// A nil clock defaults to the system clock. Callers own the returned
// backend and must Close it.
func NewBadgerBackend(cfg Config, clock fs.Clock) (*BadgerBackend, error) {
	if clock == nil {
		clock = fs.SystemClock{}
	}

	// Badger rejects a directory in disk-less mode.
	dir := cfg.Path
	if cfg.InMemory {
		dir = ""
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &BadgerBackend{db: db, clock: clock}, nil
}

// Close releases the database. The backend is unusable afterwards.
func (s *BadgerBackend) Close() error { return s.db.Close() }

// Healthcheck verifies the database can still serve requests.
func (s *BadgerBackend) Healthcheck() error {
	if s.db.IsClosed() {
		return fmt.Errorf("healthcheck: database is closed")
	}
	return s.db.View(func(*badger.Txn) error { return nil })
}

// ============================================================================
// Keys and Records
// ============================================================================

const headerSize = 16

// normalize strips the leading slash so "/a" and "a" share one key.
func normalize(p string) string {
	p = strings.TrimPrefix(path.Clean(p), "/")
	if p == "." {
		return ""
	}
	return p
}

// isRoot accepts "." because path.Dir yields it for top-level names.
func isRoot(p string) bool { return p == "" || p == "." }

func fileKey(p string) []byte { return []byte("f:" + p) }
func dirKey(p string) []byte  { return []byte("d:" + p) }

// record is a decoded file or directory value.
type record struct {
	atimeSec int64
	mtimeSec int64
	data     []byte
}

func encodeRecord(r *record) []byte {
	buf := make([]byte, headerSize+len(r.data))
	binary.BigEndian.PutUint64(buf[0:8], uint64(r.atimeSec))
	binary.BigEndian.PutUint64(buf[8:16], uint64(r.mtimeSec))
	copy(buf[headerSize:], r.data)
	return buf
}

func decodeRecord(val []byte) (*record, error) {
	if len(val) < headerSize {
		return nil, fmt.Errorf("corrupt record: %d bytes", len(val))
	}
	r := &record{
		atimeSec: int64(binary.BigEndian.Uint64(val[0:8])),
		mtimeSec: int64(binary.BigEndian.Uint64(val[8:16])),
	}
	r.data = make([]byte, len(val)-headerSize)
	copy(r.data, val[headerSize:])
	return r, nil
}

func getRecord(txn *badger.Txn, key []byte) (*record, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	var rec *record
	err = item.Value(func(val []byte) error {
		var derr error
		rec, derr = decodeRecord(val)
		return derr
	})
	return rec, err
}

func (s *BadgerBackend) nowSec() int64 { return s.clock.NowMillis() / 1000 }

// dirExists reports whether p is an existing directory inside txn.
func dirExists(txn *badger.Txn, p string) (bool, error) {
	if isRoot(p) {
		return true, nil
	}
	_, err := txn.Get(dirKey(p))
	switch {
	case err == nil:
		return true, nil
	case err == badger.ErrKeyNotFound:
		return false, nil
	default:
		return false, err
	}
}

// ============================================================================
// Open Operations
// ============================================================================

// OpenInput opens the named file for reading. The handle reads from the
// record as of this call; the access time is bumped.
func (s *BadgerBackend) OpenInput(filename string) (fs.InputFile, error) {
	filename = normalize(filename)

	var rec *record
	err := s.db.Update(func(txn *badger.Txn) error {
		var gerr error
		rec, gerr = getRecord(txn, fileKey(filename))
		if gerr == badger.ErrKeyNotFound {
			return fmt.Errorf("open %s: %w", filename, fs.ErrNotFound)
		}
		if gerr != nil {
			return fmt.Errorf("open %s: %w", filename, gerr)
		}
		rec.atimeSec = s.nowSec()
		return txn.Set(fileKey(filename), encodeRecord(rec))
	})
	if err != nil {
		return nil, err
	}
	return newInputFile(filename, rec.data), nil
}

// OpenOutput opens the named file for writing. Writes buffer in the handle
// and are published to the database by Flush and Close; truncation (when
// append is false) is published immediately.
func (s *BadgerBackend) OpenOutput(filename string, append bool) (fs.OutputFile, error) {
	filename = normalize(filename)

	var initial []byte
	err := s.db.Update(func(txn *badger.Txn) error {
		ok, derr := dirExists(txn, path.Dir(filename))
		if derr != nil {
			return fmt.Errorf("open %s: %w", filename, derr)
		}
		if !ok {
			return fmt.Errorf("open %s: parent: %w", filename, fs.ErrNotFound)
		}

		if _, derr := txn.Get(dirKey(filename)); derr == nil {
			return fmt.Errorf("open %s: %w", filename, fs.ErrIsDirectory)
		}

		rec, gerr := getRecord(txn, fileKey(filename))
		switch {
		case gerr == badger.ErrKeyNotFound:
			rec = &record{}
		case gerr != nil:
			return fmt.Errorf("open %s: %w", filename, gerr)
		case append:
			initial = rec.data
			return nil
		}

		now := s.nowSec()
		rec.atimeSec, rec.mtimeSec, rec.data = now, now, nil
		return txn.Set(fileKey(filename), encodeRecord(rec))
	})
	if err != nil {
		return nil, err
	}
	return &outputFile{store: s, name: filename, buf: initial}, nil
}

// OpenTemp creates and opens a uniquely named file starting with prefix.
func (s *BadgerBackend) OpenTemp(prefix string) (fs.OutputFile, error) {
	prefix = normalize(prefix)
	filename := prefix + "." + uuid.NewString()

	err := s.db.Update(func(txn *badger.Txn) error {
		ok, derr := dirExists(txn, path.Dir(prefix))
		if derr != nil {
			return fmt.Errorf("open temp %s: %w", prefix, derr)
		}
		if !ok {
			return fmt.Errorf("open temp %s: parent: %w", prefix, fs.ErrNotFound)
		}
		now := s.nowSec()
		return txn.Set(fileKey(filename), encodeRecord(&record{atimeSec: now, mtimeSec: now}))
	})
	if err != nil {
		return nil, err
	}
	return &outputFile{store: s, name: filename}, nil
}

// publish writes the handle's buffered content as the file's full content.
func (s *BadgerBackend) publish(filename string, data []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		rec, gerr := getRecord(txn, fileKey(filename))
		if gerr == badger.ErrKeyNotFound {
			rec = &record{atimeSec: s.nowSec()}
		} else if gerr != nil {
			return fmt.Errorf("write %s: %w", filename, gerr)
		}
		rec.mtimeSec = s.nowSec()
		rec.data = data
		return txn.Set(fileKey(filename), encodeRecord(rec))
	})
}

// ============================================================================
// File and Directory Operations
// ============================================================================

// Remove deletes the named file.
func (s *BadgerBackend) Remove(filename string) error {
	filename = normalize(filename)

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(fileKey(filename)); err == badger.ErrKeyNotFound {
			if _, derr := txn.Get(dirKey(filename)); derr == nil {
				return fmt.Errorf("remove %s: %w", filename, fs.ErrIsDirectory)
			}
			return fmt.Errorf("remove %s: %w", filename, fs.ErrNotFound)
		} else if err != nil {
			return fmt.Errorf("remove %s: %w", filename, err)
		}
		return txn.Delete(fileKey(filename))
	})
}

// Rename moves oldName onto newName in one transaction, so readers observe
// either the old binding or the new one, never an intermediate state.
// Directories move together with everything under them.
func (s *BadgerBackend) Rename(oldName, newName string) error {
	oldName = normalize(oldName)
	newName = normalize(newName)

	return s.db.Update(func(txn *badger.Txn) error {
		ok, derr := dirExists(txn, path.Dir(newName))
		if derr != nil {
			return fmt.Errorf("rename to %s: %w", newName, derr)
		}
		if !ok {
			return fmt.Errorf("rename to %s: parent: %w", newName, fs.ErrNotFound)
		}

		// Plain file rename.
		item, err := txn.Get(fileKey(oldName))
		if err == nil {
			var val []byte
			if val, err = item.ValueCopy(nil); err != nil {
				return fmt.Errorf("rename %s: %w", oldName, err)
			}
			if _, err = txn.Get(dirKey(newName)); err == nil {
				return fmt.Errorf("rename to %s: %w", newName, fs.ErrIsDirectory)
			}
			if err = txn.Set(fileKey(newName), val); err != nil {
				return err
			}
			return txn.Delete(fileKey(oldName))
		}
		if err != badger.ErrKeyNotFound {
			return fmt.Errorf("rename %s: %w", oldName, err)
		}

		// Directory rename: move the marker and every child key.
		if _, err := txn.Get(dirKey(oldName)); err != nil {
			if err == badger.ErrKeyNotFound {
				return fmt.Errorf("rename %s: %w", oldName, fs.ErrNotFound)
			}
			return fmt.Errorf("rename %s: %w", oldName, err)
		}
		for _, kind := range []string{"f:", "d:"} {
			if err := moveSubtree(txn, kind, oldName, newName); err != nil {
				return fmt.Errorf("rename %s: %w", oldName, err)
			}
		}
		marker, err := txn.Get(dirKey(oldName))
		if err != nil {
			return err
		}
		val, err := marker.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := txn.Set(dirKey(newName), val); err != nil {
			return err
		}
		return txn.Delete(dirKey(oldName))
	})
}

// moveSubtree rewrites every key of the given kind under oldDir to newDir.
func moveSubtree(txn *badger.Txn, kind, oldDir, newDir string) error {
	prefix := []byte(kind + oldDir + "/")

	type move struct{ from, to []byte }
	var moves []move

	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: false})
	for it.Rewind(); it.Valid(); it.Next() {
		from := it.Item().KeyCopy(nil)
		rel := strings.TrimPrefix(string(from), kind+oldDir+"/")
		moves = append(moves, move{from: from, to: []byte(kind + newDir + "/" + rel)})
	}
	it.Close()

	for _, m := range moves {
		item, err := txn.Get(m.from)
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := txn.Set(m.to, val); err != nil {
			return err
		}
		if err := txn.Delete(m.from); err != nil {
			return err
		}
	}
	return nil
}

// MakeDir creates a single directory; the parent must already exist.
func (s *BadgerBackend) MakeDir(dir string) error {
	dir = normalize(dir)

	return s.db.Update(func(txn *badger.Txn) error {
		if isRoot(dir) {
			return fmt.Errorf("mkdir %s: %w", dir, fs.ErrAlreadyExists)
		}
		if _, err := txn.Get(dirKey(dir)); err == nil {
			return fmt.Errorf("mkdir %s: %w", dir, fs.ErrAlreadyExists)
		}
		if _, err := txn.Get(fileKey(dir)); err == nil {
			return fmt.Errorf("mkdir %s: %w", dir, fs.ErrAlreadyExists)
		}

		ok, derr := dirExists(txn, path.Dir(dir))
		if derr != nil {
			return fmt.Errorf("mkdir %s: %w", dir, derr)
		}
		if !ok {
			return fmt.Errorf("mkdir %s: parent: %w", dir, fs.ErrNotFound)
		}

		now := s.nowSec()
		return txn.Set(dirKey(dir), encodeRecord(&record{atimeSec: now, mtimeSec: now}))
	})
}

// RemoveDir removes the named directory if it is empty.
func (s *BadgerBackend) RemoveDir(dir string) error {
	dir = normalize(dir)

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(dirKey(dir)); err == badger.ErrKeyNotFound {
			if _, ferr := txn.Get(fileKey(dir)); ferr == nil {
				return fmt.Errorf("rmdir %s: %w", dir, fs.ErrNotDirectory)
			}
			return fmt.Errorf("rmdir %s: %w", dir, fs.ErrNotFound)
		} else if err != nil {
			return fmt.Errorf("rmdir %s: %w", dir, err)
		}

		for _, kind := range []string{"f:", "d:"} {
			it := txn.NewIterator(badger.IteratorOptions{
				Prefix:         []byte(kind + dir + "/"),
				PrefetchValues: false,
			})
			notEmpty := false
			it.Rewind()
			if it.Valid() {
				notEmpty = true
			}
			it.Close()
			if notEmpty {
				return fmt.Errorf("rmdir %s: %w", dir, fs.ErrNotEmpty)
			}
		}
		return txn.Delete(dirKey(dir))
	})
}

// Exists answers whether the path exists.
func (s *BadgerBackend) Exists(p string) fs.BoolOrError {
	p = normalize(p)
	if isRoot(p) {
		return fs.Bool(true)
	}

	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		for _, key := range [][]byte{fileKey(p), dirKey(p)} {
			switch _, gerr := txn.Get(key); gerr {
			case nil:
				found = true
				return nil
			case badger.ErrKeyNotFound:
			default:
				return gerr
			}
		}
		return nil
	})
	if err != nil {
		return fs.ErrorResult()
	}
	return fs.Bool(found)
}

// IsDir answers whether the path exists and is a directory.
func (s *BadgerBackend) IsDir(p string) fs.BoolOrError {
	p = normalize(p)
	if isRoot(p) {
		return fs.Bool(true)
	}

	isDir := false
	err := s.db.View(func(txn *badger.Txn) error {
		switch _, gerr := txn.Get(dirKey(p)); gerr {
		case nil:
			isDir = true
			return nil
		case badger.ErrKeyNotFound:
			return nil
		default:
			return gerr
		}
	})
	if err != nil {
		return fs.ErrorResult()
	}
	return fs.Bool(isDir)
}

// ListContents returns the full paths of the direct entries of dir.
func (s *BadgerBackend) ListContents(dir string) ([]string, error) {
	dir = normalize(dir)

	var contents []string
	err := s.db.View(func(txn *badger.Txn) error {
		ok, derr := dirExists(txn, dir)
		if derr != nil {
			return fmt.Errorf("list %s: %w", dir, derr)
		}
		if !ok {
			if _, ferr := txn.Get(fileKey(dir)); ferr == nil {
				return fmt.Errorf("list %s: %w", dir, fs.ErrNotDirectory)
			}
			return fmt.Errorf("list %s: %w", dir, fs.ErrNotFound)
		}

		childPrefix := dir + "/"
		if isRoot(dir) {
			childPrefix = dir
		}
		for _, kind := range []string{"f:", "d:"} {
			it := txn.NewIterator(badger.IteratorOptions{
				Prefix:         []byte(kind + childPrefix),
				PrefetchValues: false,
			})
			for it.Rewind(); it.Valid(); it.Next() {
				p := strings.TrimPrefix(string(it.Item().Key()), kind)
				if rel := strings.TrimPrefix(p, childPrefix); !strings.Contains(rel, "/") {
					contents = append(contents, p)
				}
			}
			it.Close()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(contents)
	return contents, nil
}

// ============================================================================
// Stat Operations
// ============================================================================

func (s *BadgerBackend) statRecord(p string) (*record, error) {
	p = normalize(p)

	var rec *record
	err := s.db.View(func(txn *badger.Txn) error {
		for _, key := range [][]byte{fileKey(p), dirKey(p)} {
			r, gerr := getRecord(txn, key)
			if gerr == nil {
				rec = r
				return nil
			}
			if gerr != badger.ErrKeyNotFound {
				return gerr
			}
		}
		return fmt.Errorf("stat %s: %w", p, fs.ErrNotFound)
	})
	return rec, err
}

// Atime returns the last access time of the path in seconds since the epoch.
func (s *BadgerBackend) Atime(p string) (int64, error) {
	rec, err := s.statRecord(p)
	if err != nil {
		return 0, err
	}
	return rec.atimeSec, nil
}

// Mtime returns the last modification time of the path in seconds since the
// epoch.
func (s *BadgerBackend) Mtime(p string) (int64, error) {
	rec, err := s.statRecord(p)
	if err != nil {
		return 0, err
	}
	return rec.mtimeSec, nil
}

// Size returns the size of the named file in bytes.
func (s *BadgerBackend) Size(p string) (int64, error) {
	rec, err := s.statRecord(p)
	if err != nil {
		return 0, err
	}
	return int64(len(rec.data)), nil
}
