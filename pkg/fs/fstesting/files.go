package fstesting

import (
	"bytes"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/driftfs/driftfs/pkg/fs"
)

// RunFileTests executes the file read/write contract tests.
func (suite *BackendTestSuite) RunFileTests(t *testing.T) {
	t.Run("ReadFile_NotFound", suite.testReadFileNotFound)
	t.Run("WriteRead_Roundtrip", suite.testWriteReadRoundtrip)
	t.Run("WriteRead_RootSpellings", suite.testWriteReadRootSpellings)
	t.Run("WriteRead_Empty", suite.testWriteReadEmpty)
	t.Run("WriteRead_Large", suite.testWriteReadLarge)
	t.Run("ReadFile_SizeLimitExceeded", suite.testReadFileSizeLimit)
	t.Run("ReadFile_SizeLimitExact", suite.testReadFileSizeLimitExact)
	t.Run("ReadFileTo_Sink", suite.testReadFileToSink)
	t.Run("Write_CreatesParentDirs", suite.testWriteCreatesParentDirs)
	t.Run("Write_Overwrite", suite.testWriteOverwrite)
	t.Run("Append", suite.testAppend)
	t.Run("TempFile", suite.testTempFile)
	t.Run("WriteFileAtomic_Roundtrip", suite.testWriteFileAtomicRoundtrip)
	t.Run("WriteFileAtomic_RacingReaders", suite.testWriteFileAtomicRacingReaders)
	t.Run("RemoveFile", suite.testRemoveFile)
	t.Run("RenameFile", suite.testRenameFile)
	t.Run("Rename_CreatesParentDirs", suite.testRenameCreatesParentDirs)
}

func (suite *BackendTestSuite) testReadFileNotFound(t *testing.T) {
	f, _ := suite.newFS(t)

	_, err := f.ReadFile("missing.txt", fs.UnlimitedSize)
	AssertErrorIs(t, fs.ErrNotFound, err)
}

func (suite *BackendTestSuite) testWriteReadRoundtrip(t *testing.T) {
	f, _ := suite.newFS(t)

	data := []byte("Hello, World!")
	mustWriteFile(t, f, "hello.txt", data)
	assertFileContent(t, f, "hello.txt", data)
}

func (suite *BackendTestSuite) testWriteReadRootSpellings(t *testing.T) {
	f, _ := suite.newFS(t)

	// "/rooted.txt" and "rooted.txt" name the same top-level file, and
	// listing the root sees it.
	data := []byte("top-level")
	mustWriteFile(t, f, "/rooted.txt", data)
	assertFileContent(t, f, "rooted.txt", data)

	names, err := f.ListContents("/")
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Equal(t, "rooted.txt", path.Base(names[0]))
}

func (suite *BackendTestSuite) testWriteReadEmpty(t *testing.T) {
	f, _ := suite.newFS(t)

	mustWriteFile(t, f, "empty.txt", []byte{})
	data := mustReadFile(t, f, "empty.txt")
	assert.Equal(t, 0, len(data))
}

func (suite *BackendTestSuite) testWriteReadLarge(t *testing.T) {
	f, _ := suite.newFS(t)

	// Larger than one read chunk, so the chunked loop runs more than once.
	data := generateTestData(1 * 1024 * 1024)
	mustWriteFile(t, f, "large.bin", data)
	assertFileContent(t, f, "large.bin", data)
}

func (suite *BackendTestSuite) testReadFileSizeLimit(t *testing.T) {
	f, _ := suite.newFS(t)

	mustWriteFile(t, f, "limited.txt", []byte("0123456789"))

	_, err := f.ReadFile("limited.txt", 5)
	AssertErrorIs(t, fs.ErrSizeLimitExceeded, err)
}

func (suite *BackendTestSuite) testReadFileSizeLimitExact(t *testing.T) {
	f, _ := suite.newFS(t)

	data := []byte("0123456789")
	mustWriteFile(t, f, "exact.txt", data)

	// A limit equal to the file size is not exceeded.
	got, err := f.ReadFile("exact.txt", int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func (suite *BackendTestSuite) testReadFileToSink(t *testing.T) {
	f, _ := suite.newFS(t)

	data := []byte("sink me")
	mustWriteFile(t, f, "sink.txt", data)

	var buf bytes.Buffer
	require.NoError(t, f.ReadFileTo("sink.txt", fs.UnlimitedSize, &buf))
	assert.Equal(t, data, buf.Bytes())
}

func (suite *BackendTestSuite) testWriteCreatesParentDirs(t *testing.T) {
	f, _ := suite.newFS(t)

	// No directory exists yet; the write must create the whole chain.
	mustWriteFile(t, f, "a/b/c/deep.txt", []byte("deep"))
	assertFileContent(t, f, "a/b/c/deep.txt", []byte("deep"))

	res := f.IsDir("a/b/c")
	require.False(t, res.IsError())
	assert.True(t, res.IsTrue(), "parent chain should exist as directories")
}

func (suite *BackendTestSuite) testWriteOverwrite(t *testing.T) {
	f, _ := suite.newFS(t)

	mustWriteFile(t, f, "over.txt", []byte("first version, long"))
	mustWriteFile(t, f, "over.txt", []byte("second"))
	assertFileContent(t, f, "over.txt", []byte("second"))
}

func (suite *BackendTestSuite) testAppend(t *testing.T) {
	f, _ := suite.newFS(t)

	mustWriteFile(t, f, "log.txt", []byte("one\n"))

	out, err := f.OpenOutputFileForAppend("log.txt")
	require.NoError(t, err)
	_, err = out.Write([]byte("two\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close(out))

	assertFileContent(t, f, "log.txt", []byte("one\ntwo\n"))
}

func (suite *BackendTestSuite) testTempFile(t *testing.T) {
	f, _ := suite.newFS(t)

	mustMakeDirAll(t, f, "tmp")

	name, err := f.WriteTempFile("tmp/work", []byte("scratch"))
	require.NoError(t, err)
	require.NotEmpty(t, name)
	assert.True(t, strings.HasPrefix(name, "tmp/work"), "temp name %q should start with the prefix", name)
	assertFileContent(t, f, name, []byte("scratch"))

	// Two temp files from the same prefix never collide.
	other, err := f.WriteTempFile("tmp/work", []byte("more"))
	require.NoError(t, err)
	assert.NotEqual(t, name, other)
}

func (suite *BackendTestSuite) testWriteFileAtomicRoundtrip(t *testing.T) {
	f, _ := suite.newFS(t)

	data := []byte("published all at once")
	require.NoError(t, f.WriteFileAtomic("atomic/out.txt", data))
	assertFileContent(t, f, "atomic/out.txt", data)
}

func (suite *BackendTestSuite) testWriteFileAtomicRacingReaders(t *testing.T) {
	f, _ := suite.newFS(t)

	const size = 64 * 1024
	contentA := bytes.Repeat([]byte{'a'}, size)
	contentB := bytes.Repeat([]byte{'b'}, size)

	require.NoError(t, f.WriteFileAtomic("race.txt", contentA))

	var g errgroup.Group
	done := make(chan struct{})

	g.Go(func() error {
		defer close(done)
		for i := 0; i < 20; i++ {
			content := contentA
			if i%2 == 1 {
				content = contentB
			}
			if err := f.WriteFileAtomic("race.txt", content); err != nil {
				return err
			}
		}
		return nil
	})

	for r := 0; r < 4; r++ {
		g.Go(func() error {
			for {
				select {
				case <-done:
					return nil
				default:
				}
				data, err := f.ReadFile("race.txt", fs.UnlimitedSize)
				if err != nil {
					return err
				}
				if !bytes.Equal(data, contentA) && !bytes.Equal(data, contentB) {
					t.Errorf("reader observed torn content (%d bytes)", len(data))
					return nil
				}
			}
		})
	}

	require.NoError(t, g.Wait())
}

func (suite *BackendTestSuite) testRemoveFile(t *testing.T) {
	f, _ := suite.newFS(t)

	mustWriteFile(t, f, "gone.txt", []byte("x"))
	require.NoError(t, f.RemoveFile("gone.txt"))
	assertExists(t, f, "gone.txt", false)

	AssertErrorIs(t, fs.ErrNotFound, f.RemoveFile("gone.txt"))
}

func (suite *BackendTestSuite) testRenameFile(t *testing.T) {
	f, _ := suite.newFS(t)

	data := []byte("movable")
	mustWriteFile(t, f, "src.txt", data)

	require.NoError(t, f.RenameFile("src.txt", "dst.txt"))
	assertExists(t, f, "src.txt", false)
	assertFileContent(t, f, "dst.txt", data)
}

func (suite *BackendTestSuite) testRenameCreatesParentDirs(t *testing.T) {
	f, _ := suite.newFS(t)

	mustWriteFile(t, f, "loose.txt", []byte("y"))

	// The destination's directory chain does not exist yet.
	require.NoError(t, f.RenameFile("loose.txt", "moved/into/place.txt"))
	assertFileContent(t, f, "moved/into/place.txt", []byte("y"))
}
