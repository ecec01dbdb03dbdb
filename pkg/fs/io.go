package fs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// readChunkSize is the copy granularity for streaming reads into a sink.
const readChunkSize = 64 * 1024

// ============================================================================
// Whole-File Reads
// ============================================================================

// ReadFile reads the entire named file, failing with ErrSizeLimitExceeded if
// the content is larger than maxSize. On failure no partial content is
// returned. Pass UnlimitedSize to disable the cap; that is dangerous with
// files whose size you do not control and should be the exception.
func (f *FS) ReadFile(filename string, maxSize int64) ([]byte, error) {
	in, err := f.OpenInputFile(filename)
	if err != nil {
		return nil, err
	}
	return f.ReadAll(in, maxSize)
}

// ReadFileTo streams the entire named file into the sink, failing with
// ErrSizeLimitExceeded once more than maxSize bytes have been seen. Because
// the copy streams, the sink may have received a prefix of the content when
// the limit error is returned.
func (f *FS) ReadFileTo(filename string, maxSize int64, sink io.Writer) error {
	in, err := f.OpenInputFile(filename)
	if err != nil {
		return err
	}
	return f.ReadAllTo(in, maxSize, sink)
}

// ReadAll reads the remaining content of the handle, subject to maxSize as
// in ReadFile. The handle is always closed, even on failure; ownership
// transfers to this call. A nil handle reports failure instead of crashing.
func (f *FS) ReadAll(in InputFile, maxSize int64) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.ReadAllTo(in, maxSize, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadAllTo streams the remaining content of the handle into the sink,
// subject to maxSize as in ReadFileTo. The handle is always closed, even on
// failure.
func (f *FS) ReadAllTo(in InputFile, maxSize int64, sink io.Writer) error {
	if in == nil {
		f.h.Error("failed to read: nil input file")
		return fmt.Errorf("read: %w", ErrNotFound)
	}
	defer func() { _ = f.Close(in) }()

	var total int64
	chunk := make([]byte, readChunkSize)
	for {
		n, err := in.Read(chunk)
		if n > 0 {
			total += int64(n)
			if maxSize != UnlimitedSize && total > maxSize {
				f.h.Error("failed to read %s: content exceeds %d bytes", in.Filename(), maxSize)
				return fmt.Errorf("read %s: %w", in.Filename(), ErrSizeLimitExceeded)
			}
			if _, werr := sink.Write(chunk[:n]); werr != nil {
				f.h.Error("failed to write to sink while reading %s: %v", in.Filename(), werr)
				return werr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			f.h.Error("failed to read %s: %v", in.Filename(), err)
			return err
		}
	}
}

// ============================================================================
// Whole-File Writes
// ============================================================================

// WriteFile writes data to the named file in one shot, creating parent
// directories automatically. Not atomic: a failure part-way leaves a partial
// or absent file observable to readers. Use WriteFileAtomic when that is not
// acceptable.
func (f *FS) WriteFile(filename string, data []byte) error {
	out, err := f.OpenOutputFile(filename)
	if err != nil {
		return err
	}

	_, werr := out.Write(data)
	cerr := f.Close(out)
	if werr != nil {
		f.h.Error("failed to write %s: %v", filename, werr)
		return werr
	}
	return cerr
}

// WriteTempFile writes data to a freshly created uniquely named file under
// prefix and returns the chosen name. On failure the returned name is empty
// and the partial temp file, if any, is removed.
func (f *FS) WriteTempFile(prefix string, data []byte) (string, error) {
	out, err := f.OpenTempFile(prefix)
	if err != nil {
		return "", err
	}
	filename := out.Filename()

	_, werr := out.Write(data)
	cerr := f.Close(out)
	if werr != nil || cerr != nil {
		_ = f.b.Remove(filename)
		if werr != nil {
			f.h.Error("failed to write temp file %s: %v", filename, werr)
			return "", werr
		}
		return "", cerr
	}
	return filename, nil
}

// WriteFileAtomic publishes data under filename so that a concurrent reader
// sees either the complete previous content or the complete new content,
// never a mixture. The content is written to a temp file whose name derives
// from filename, then renamed into place with the backend's durable rename;
// that two-step is what makes the publication atomic. Parent directories are
// created automatically.
func (f *FS) WriteFileAtomic(filename string, data []byte) error {
	tempName, err := f.WriteTempFile(filename+".temp", data)
	if err != nil {
		return err
	}
	if err := f.RenameFile(tempName, filename); err != nil {
		_ = f.b.Remove(tempName)
		return err
	}
	return nil
}
