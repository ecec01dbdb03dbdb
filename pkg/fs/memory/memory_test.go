package memory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/pkg/fs"
	"github.com/driftfs/driftfs/pkg/fs/fstesting"
	"github.com/driftfs/driftfs/pkg/fs/memory"
)

func TestMemoryBackend(t *testing.T) {
	suite := &fstesting.BackendTestSuite{
		NewBackend: func(t *testing.T) (fs.Backend, *fstesting.ManualClock) {
			clock := fstesting.NewManualClock(1_000_000)
			return memory.NewMemoryBackend(clock), clock
		},
	}
	suite.Run(t)
}

// Open handles snapshot the content at open time; a concurrent overwrite
// does not change what an already-open reader sees.
func TestMemoryBackendReadSnapshot(t *testing.T) {
	f := fs.New(memory.NewMemoryBackend(nil), fs.NullHandler{})

	require.NoError(t, f.WriteFile("snap.txt", []byte("before")))

	in, err := f.OpenInputFile("snap.txt")
	require.NoError(t, err)

	require.NoError(t, f.WriteFile("snap.txt", []byte("after, and longer")))

	data, err := f.ReadAll(in, fs.UnlimitedSize)
	require.NoError(t, err)
	assert.Equal(t, []byte("before"), data)
}

func TestMemoryBackendRenameDirectoryMovesSubtree(t *testing.T) {
	f := fs.New(memory.NewMemoryBackend(nil), fs.NullHandler{})

	require.NoError(t, f.WriteFile("old/deep/file.txt", []byte("payload")))
	require.NoError(t, f.RenameFile("old", "new"))

	res := f.Exists("old")
	require.False(t, res.IsError())
	assert.True(t, res.IsFalse())

	data, err := f.ReadFile("new/deep/file.txt", fs.UnlimitedSize)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}
