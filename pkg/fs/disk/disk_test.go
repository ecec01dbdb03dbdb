package disk_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/pkg/fs"
	"github.com/driftfs/driftfs/pkg/fs/disk"
	"github.com/driftfs/driftfs/pkg/fs/fstesting"
)

func TestDiskBackend(t *testing.T) {
	suite := &fstesting.BackendTestSuite{
		NewBackend: func(t *testing.T) (fs.Backend, *fstesting.ManualClock) {
			backend, err := disk.NewDiskBackend(t.TempDir())
			require.NoError(t, err)
			// Lock claim ages come from real file mtimes, so the
			// deterministic timeout tests do not apply.
			return backend, nil
		},
	}
	suite.Run(t)
}

// Staleness is observed from the lock file's mtime. Backdating the file
// makes the claim look abandoned without sleeping through a real timeout.
func TestDiskBackendStaleLockTakeover(t *testing.T) {
	root := t.TempDir()
	backend, err := disk.NewDiskBackend(root)
	require.NoError(t, err)
	f := fs.New(backend, fs.NullHandler{})

	require.True(t, f.TryLock("takeover.lock").IsTrue())

	// A fresh claim holds.
	res := f.TryLockWithTimeout("takeover.lock", 60_000, fs.SystemClock{})
	require.False(t, res.IsError())
	assert.True(t, res.IsFalse())

	old := time.Now().Add(-10 * time.Minute)
	require.NoError(t, os.Chtimes(filepath.Join(root, "takeover.lock"), old, old))

	res = f.TryLockWithTimeout("takeover.lock", 60_000, fs.SystemClock{})
	require.False(t, res.IsError())
	assert.True(t, res.IsTrue(), "a backdated claim is broken and retaken")
}

func TestDiskBackendBumpAdvancesMtime(t *testing.T) {
	root := t.TempDir()
	backend, err := disk.NewDiskBackend(root)
	require.NoError(t, err)
	f := fs.New(backend, fs.NullHandler{})

	require.True(t, f.TryLock("bump.lock").IsTrue())

	old := time.Now().Add(-10 * time.Minute)
	lockPath := filepath.Join(root, "bump.lock")
	require.NoError(t, os.Chtimes(lockPath, old, old))
	require.NoError(t, f.BumpLockTimeout("bump.lock"))

	fi, err := os.Stat(lockPath)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), fi.ModTime(), time.Minute)
}

// Files land under the configured root with their contract paths.
func TestDiskBackendRootConfinement(t *testing.T) {
	root := t.TempDir()
	backend, err := disk.NewDiskBackend(root)
	require.NoError(t, err)
	f := fs.New(backend, fs.NullHandler{})

	require.NoError(t, f.WriteFile("a/b/c.txt", []byte("on disk")))

	data, err := os.ReadFile(filepath.Join(root, "a", "b", "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("on disk"), data)
}
