package fstesting

import (
	"testing"

	"github.com/driftfs/driftfs/pkg/fs"
)

// BackendTestSuite is a conformance test suite for fs.Backend
// implementations. It tests the interface contract, not implementation
// details, making it reusable across different backends (memory, disk,
// Badger, S3, etc.).
//
// Usage:
//
//	func TestMemoryBackend(t *testing.T) {
//	    suite := &fstesting.BackendTestSuite{
//	        NewBackend: func(t *testing.T) (fs.Backend, *fstesting.ManualClock) {
//	            clock := fstesting.NewManualClock(1_000_000)
//	            return memory.NewMemoryBackend(clock), clock
//	        },
//	    }
//	    suite.Run(t)
//	}
type BackendTestSuite struct {
	// NewBackend creates a fresh backend for each test, for isolation.
	// The returned clock must be the one the backend observes for lock
	// claim timestamps; return nil for backends whose claim timestamps
	// come from elsewhere (e.g. real file mtimes), and the deterministic
	// timeout tests are skipped.
	NewBackend func(t *testing.T) (fs.Backend, *ManualClock)
}

// Run executes all tests in the suite.
func (suite *BackendTestSuite) Run(t *testing.T) {
	t.Run("Files", suite.RunFileTests)
	t.Run("Directories", suite.RunDirectoryTests)
	t.Run("Stat", suite.RunStatTests)
	t.Run("DirInfo", suite.RunDirInfoTests)
	t.Run("Locks", suite.RunLockTests)
}

// newFS builds the orchestration layer over a fresh backend, with
// diagnostics silenced.
func (suite *BackendTestSuite) newFS(t *testing.T) (*fs.FS, *ManualClock) {
	t.Helper()
	backend, clock := suite.NewBackend(t)
	return fs.New(backend, fs.NullHandler{}), clock
}
