package fstesting

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/pkg/fs"
)

// AssertErrorIs checks that the error chain matches the expected sentinel.
func AssertErrorIs(t *testing.T, expected error, actual error) {
	t.Helper()
	if !errors.Is(actual, expected) {
		t.Errorf("Expected error %v, got %v", expected, actual)
	}
}

// mustWriteFile writes a file and fails the test if it errors.
func mustWriteFile(t *testing.T, f *fs.FS, filename string, data []byte) {
	t.Helper()
	require.NoError(t, f.WriteFile(filename, data), "WriteFile should succeed")
}

// mustReadFile reads a whole file and fails the test if it errors.
func mustReadFile(t *testing.T, f *fs.FS, filename string) []byte {
	t.Helper()
	data, err := f.ReadFile(filename, fs.UnlimitedSize)
	require.NoError(t, err, "ReadFile should succeed")
	return data
}

// mustMakeDirAll creates a directory chain and fails the test if it errors.
func mustMakeDirAll(t *testing.T, f *fs.FS, dir string) {
	t.Helper()
	require.NoError(t, f.RecursivelyMakeDir(dir), "RecursivelyMakeDir should succeed")
}

// assertExists checks the tri-state existence answer.
func assertExists(t *testing.T, f *fs.FS, p string, expected bool) {
	t.Helper()
	res := f.Exists(p)
	require.False(t, res.IsError(), "Exists should not error for %s", p)
	assert.Equal(t, expected, res.IsTrue(), "Existence mismatch for %s", p)
}

// assertFileContent checks a file's full content.
func assertFileContent(t *testing.T, f *fs.FS, filename string, expected []byte) {
	t.Helper()
	assert.Equal(t, expected, mustReadFile(t, f, filename), "Content mismatch for %s", filename)
}

// generateTestData creates test data of the specified size.
func generateTestData(size int) []byte {
	data := make([]byte, size)
	for i := 0; i < size; i++ {
		data[i] = byte(i % 256)
	}
	return data
}
