package fs_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/pkg/fs"
	"github.com/driftfs/driftfs/pkg/fs/memory"
)

// recordingHandler captures diagnostics for assertions.
type recordingHandler struct {
	infos    []string
	warnings []string
	errors   []string
}

func (h *recordingHandler) Info(format string, args ...any) {
	h.infos = append(h.infos, fmt.Sprintf(format, args...))
}

func (h *recordingHandler) Warning(format string, args ...any) {
	h.warnings = append(h.warnings, fmt.Sprintf(format, args...))
}

func (h *recordingHandler) Error(format string, args ...any) {
	h.errors = append(h.errors, fmt.Sprintf(format, args...))
}

// basicBackend hides every optional capability of the wrapped backend, so
// the orchestration layer's fallbacks are observable.
type basicBackend struct {
	fs.Backend
}

func TestReadAllNilHandle(t *testing.T) {
	handler := &recordingHandler{}
	f := fs.New(memory.NewMemoryBackend(nil), handler)

	_, err := f.ReadAll(nil, fs.UnlimitedSize)
	assert.ErrorIs(t, err, fs.ErrNotFound)
	assert.NotEmpty(t, handler.errors, "a nil handle is reported, not a crash")
}

func TestFailedOperationsReport(t *testing.T) {
	handler := &recordingHandler{}
	f := fs.New(memory.NewMemoryBackend(nil), handler)

	_, err := f.ReadFile("ghost.txt", fs.UnlimitedSize)
	require.Error(t, err)
	assert.NotEmpty(t, handler.errors)
}

func TestMaxPathLengthDefault(t *testing.T) {
	f := fs.New(&basicBackend{memory.NewMemoryBackend(nil)}, fs.NullHandler{})

	assert.Equal(t, fs.DefaultMaxPathLength, f.MaxPathLength("anywhere"))
}

func TestMaxPathLengthFromBackend(t *testing.T) {
	backend := &limitedBackend{basicBackend{memory.NewMemoryBackend(nil)}}
	f := fs.New(backend, fs.NullHandler{})

	assert.Equal(t, 255, f.MaxPathLength("anywhere"))
}

type limitedBackend struct {
	basicBackend
}

func (b *limitedBackend) MaxPathLength(string) int { return 255 }

// Backends without timeout support degrade to plain TryLock: contention is
// reported even for arbitrarily old claims, and bumping is a no-op.
func TestLockTimeoutFallback(t *testing.T) {
	f := fs.New(&basicBackend{memory.NewMemoryBackend(nil)}, fs.NullHandler{})

	require.True(t, f.TryLock("plain.lock").IsTrue())

	res := f.TryLockWithTimeout("plain.lock", 0, fs.SystemClock{})
	require.False(t, res.IsError())
	assert.True(t, res.IsFalse(), "no takeover without timeout support")

	assert.NoError(t, f.BumpLockTimeout("plain.lock"))

	res = f.TryLockWithTimeout("other.lock", 0, fs.SystemClock{})
	require.False(t, res.IsError())
	assert.True(t, res.IsTrue(), "an un-held lock is still claimable")
}

func TestRecursivelyMakeDirRootIsNoop(t *testing.T) {
	f := fs.New(memory.NewMemoryBackend(nil), fs.NullHandler{})

	require.NoError(t, f.RecursivelyMakeDir(""))
	require.NoError(t, f.RecursivelyMakeDir("/"))
	require.NoError(t, f.RecursivelyMakeDir("."))
}

func TestWriteTempFileNameFromPrefix(t *testing.T) {
	f := fs.New(memory.NewMemoryBackend(nil), fs.NullHandler{})

	name, err := f.WriteTempFile("spool/job", []byte("queued"))
	require.NoError(t, err)
	assert.NotEqual(t, "spool/job", name, "the chosen name extends the prefix")
}
