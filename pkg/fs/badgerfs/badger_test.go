package badgerfs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/pkg/fs"
	"github.com/driftfs/driftfs/pkg/fs/badgerfs"
	"github.com/driftfs/driftfs/pkg/fs/fstesting"
)

func newTestBackend(t *testing.T, clock fs.Clock) *badgerfs.BadgerBackend {
	t.Helper()
	backend, err := badgerfs.NewBadgerBackend(badgerfs.Config{InMemory: true}, clock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return backend
}

func TestBadgerBackend(t *testing.T) {
	suite := &fstesting.BackendTestSuite{
		NewBackend: func(t *testing.T) (fs.Backend, *fstesting.ManualClock) {
			clock := fstesting.NewManualClock(1_000_000)
			return newTestBackend(t, clock), clock
		},
	}
	suite.Run(t)
}

func TestBadgerBackendHealthcheck(t *testing.T) {
	backend, err := badgerfs.NewBadgerBackend(badgerfs.Config{InMemory: true}, nil)
	require.NoError(t, err)

	require.NoError(t, backend.Healthcheck())
	require.NoError(t, backend.Close())
	assert.Error(t, backend.Healthcheck(), "a closed database fails its healthcheck")
}

// Contents persist across reopen when backed by a directory.
func TestBadgerBackendPersistence(t *testing.T) {
	dir := t.TempDir()

	backend, err := badgerfs.NewBadgerBackend(badgerfs.Config{Path: dir}, nil)
	require.NoError(t, err)
	f := fs.New(backend, fs.NullHandler{})
	require.NoError(t, f.WriteFile("kept.txt", []byte("survives")))
	require.NoError(t, backend.Close())

	backend, err = badgerfs.NewBadgerBackend(badgerfs.Config{Path: dir}, nil)
	require.NoError(t, err)
	defer func() { _ = backend.Close() }()

	f = fs.New(backend, fs.NullHandler{})
	data, err := f.ReadFile("kept.txt", fs.UnlimitedSize)
	require.NoError(t, err)
	assert.Equal(t, []byte("survives"), data)
}

// Flush publishes buffered content without closing the handle.
func TestBadgerBackendFlushPublishes(t *testing.T) {
	f := fs.New(newTestBackend(t, nil), fs.NullHandler{})

	out, err := f.OpenOutputFile("flushed.txt")
	require.NoError(t, err)
	_, err = out.Write([]byte("visible"))
	require.NoError(t, err)
	require.NoError(t, out.Flush())

	data, err := f.ReadFile("flushed.txt", fs.UnlimitedSize)
	require.NoError(t, err)
	assert.Equal(t, []byte("visible"), data)

	require.NoError(t, f.Close(out))
}
