package fstesting

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/pkg/fs"
)

// RunStatTests executes the metadata query tests.
func (suite *BackendTestSuite) RunStatTests(t *testing.T) {
	t.Run("Size", suite.testSize)
	t.Run("Size_NotFound", suite.testSizeNotFound)
	t.Run("Times", suite.testTimes)
}

// RunDirInfoTests executes the recursive aggregation tests.
func (suite *BackendTestSuite) RunDirInfoTests(t *testing.T) {
	t.Run("GetDirInfo_Aggregation", suite.testDirInfoAggregation)
	t.Run("GetDirInfo_Progress", suite.testDirInfoProgress)
}

func (suite *BackendTestSuite) testSize(t *testing.T) {
	f, _ := suite.newFS(t)

	mustWriteFile(t, f, "sized.bin", generateTestData(1234))
	size, err := f.Size("sized.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), size)
}

func (suite *BackendTestSuite) testSizeNotFound(t *testing.T) {
	f, _ := suite.newFS(t)

	_, err := f.Size("absent.bin")
	require.Error(t, err)
}

func (suite *BackendTestSuite) testTimes(t *testing.T) {
	f, _ := suite.newFS(t)

	mustWriteFile(t, f, "timed.txt", []byte("t"))

	mtime, err := f.Mtime("timed.txt")
	require.NoError(t, err)
	assert.Positive(t, mtime, "mtime should be set after a write")

	atime, err := f.Atime("timed.txt")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, atime, int64(0))
}

// countingNotifier counts progress callbacks.
type countingNotifier struct {
	calls atomic.Int64
}

func (n *countingNotifier) Notify() { n.calls.Add(1) }

func (suite *BackendTestSuite) testDirInfoAggregation(t *testing.T) {
	f, _ := suite.newFS(t)

	mustWriteFile(t, f, "root/a.bin", generateTestData(10))
	mustWriteFile(t, f, "root/b.bin", generateTestData(20))
	mustWriteFile(t, f, "root/c.bin", generateTestData(30))
	mustMakeDirAll(t, f, "root/hollow")

	info := f.GetDirInfo("root")

	assert.Equal(t, int64(60), info.SizeBytes, "sizes sum across the tree")
	assert.Equal(t, int64(4), info.InodeCount, "three files and one directory")
	assert.Len(t, info.Files, 3)
	require.Len(t, info.EmptyDirs, 1)
	assert.Equal(t, "root/hollow", info.EmptyDirs[0])
}

func (suite *BackendTestSuite) testDirInfoProgress(t *testing.T) {
	f, _ := suite.newFS(t)

	mustWriteFile(t, f, "walk/a.bin", generateTestData(1))
	mustWriteFile(t, f, "walk/b.bin", generateTestData(1))
	mustWriteFile(t, f, "walk/sub/c.bin", generateTestData(1))

	notifier := &countingNotifier{}
	info := f.GetDirInfoWithProgress("walk", notifier)

	assert.Equal(t, int64(4), info.InodeCount)
	assert.GreaterOrEqual(t, notifier.calls.Load(), int64(4),
		"progress fires at least once per entry visited")

	var _ fs.ProgressNotifier = notifier
}
