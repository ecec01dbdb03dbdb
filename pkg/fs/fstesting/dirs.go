package fstesting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/pkg/fs"
)

// RunDirectoryTests executes the directory contract tests.
func (suite *BackendTestSuite) RunDirectoryTests(t *testing.T) {
	t.Run("MakeDir_RemoveDir", suite.testMakeRemoveDir)
	t.Run("MakeDir_AlreadyExists", suite.testMakeDirAlreadyExists)
	t.Run("RemoveDir_NotEmpty", suite.testRemoveDirNotEmpty)
	t.Run("RecursivelyMakeDir", suite.testRecursivelyMakeDir)
	t.Run("RecursivelyMakeDir_Existing", suite.testRecursivelyMakeDirExisting)
	t.Run("Exists_IsDir", suite.testExistsIsDir)
	t.Run("ListContents_NotFound", suite.testListContentsNotFound)
	t.Run("ListContents_Empty", suite.testListContentsEmpty)
	t.Run("ListContents_FullPaths", suite.testListContentsFullPaths)
}

func (suite *BackendTestSuite) testMakeRemoveDir(t *testing.T) {
	f, _ := suite.newFS(t)

	require.NoError(t, f.MakeDir("solo"))
	res := f.IsDir("solo")
	require.False(t, res.IsError())
	assert.True(t, res.IsTrue())

	require.NoError(t, f.RemoveDir("solo"))
	assertExists(t, f, "solo", false)
}

func (suite *BackendTestSuite) testMakeDirAlreadyExists(t *testing.T) {
	f, _ := suite.newFS(t)

	require.NoError(t, f.MakeDir("dup"))
	AssertErrorIs(t, fs.ErrAlreadyExists, f.MakeDir("dup"))
}

func (suite *BackendTestSuite) testRemoveDirNotEmpty(t *testing.T) {
	f, _ := suite.newFS(t)

	mustWriteFile(t, f, "full/file.txt", []byte("x"))
	AssertErrorIs(t, fs.ErrNotEmpty, f.RemoveDir("full"))

	// Empties out, then removal succeeds.
	require.NoError(t, f.RemoveFile("full/file.txt"))
	require.NoError(t, f.RemoveDir("full"))
}

func (suite *BackendTestSuite) testRecursivelyMakeDir(t *testing.T) {
	f, _ := suite.newFS(t)

	mustMakeDirAll(t, f, "x/y/z")
	for _, dir := range []string{"x", "x/y", "x/y/z"} {
		res := f.IsDir(dir)
		require.False(t, res.IsError())
		assert.True(t, res.IsTrue(), "%s should be a directory", dir)
	}
}

func (suite *BackendTestSuite) testRecursivelyMakeDirExisting(t *testing.T) {
	f, _ := suite.newFS(t)

	mustMakeDirAll(t, f, "p/q")
	// Idempotent on an existing chain.
	mustMakeDirAll(t, f, "p/q")
	mustMakeDirAll(t, f, "p/q/r")
}

func (suite *BackendTestSuite) testExistsIsDir(t *testing.T) {
	f, _ := suite.newFS(t)

	mustWriteFile(t, f, "things/file.txt", []byte("x"))

	assertExists(t, f, "things", true)
	assertExists(t, f, "things/file.txt", true)
	assertExists(t, f, "things/other.txt", false)

	res := f.IsDir("things")
	require.False(t, res.IsError())
	assert.True(t, res.IsTrue())

	res = f.IsDir("things/file.txt")
	require.False(t, res.IsError())
	assert.True(t, res.IsFalse(), "a file is not a directory")

	res = f.IsDir("things/other.txt")
	require.False(t, res.IsError())
	assert.True(t, res.IsFalse(), "a missing path is not a directory")
}

func (suite *BackendTestSuite) testListContentsNotFound(t *testing.T) {
	f, _ := suite.newFS(t)

	_, err := f.ListContents("nowhere")
	require.Error(t, err, "listing a missing directory must fail")
}

func (suite *BackendTestSuite) testListContentsEmpty(t *testing.T) {
	f, _ := suite.newFS(t)

	require.NoError(t, f.MakeDir("vacant"))
	contents, err := f.ListContents("vacant")
	require.NoError(t, err, "an empty directory lists successfully")
	assert.Empty(t, contents)
}

func (suite *BackendTestSuite) testListContentsFullPaths(t *testing.T) {
	f, _ := suite.newFS(t)

	mustWriteFile(t, f, "pack/a.txt", []byte("a"))
	mustWriteFile(t, f, "pack/b.txt", []byte("b"))
	mustMakeDirAll(t, f, "pack/sub")
	mustWriteFile(t, f, "pack/sub/nested.txt", []byte("n"))

	contents, err := f.ListContents("pack")
	require.NoError(t, err)
	// Direct entries only, as full paths, without "." or "..".
	assert.ElementsMatch(t, []string{"pack/a.txt", "pack/b.txt", "pack/sub"}, contents)
}
