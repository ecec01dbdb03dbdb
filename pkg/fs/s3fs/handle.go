package s3fs

import "io"

// inputFile streams an object body from S3.
type inputFile struct {
	name string
	body io.ReadCloser
}

func (f *inputFile) Filename() string { return f.name }

func (f *inputFile) Read(p []byte) (int, error) { return f.body.Read(p) }

func (f *inputFile) Close() error { return f.body.Close() }

// outputFile buffers writes locally and uploads the full content as one
// object on Flush and Close. Readers never observe a half-written object.
type outputFile struct {
	store *S3Backend
	name  string
	buf   []byte
}

func (f *outputFile) Filename() string { return f.name }

func (f *outputFile) Write(p []byte) (int, error) {
	f.buf = append(f.buf, p...)
	return len(p), nil
}

func (f *outputFile) Flush() error { return f.store.put(f.name, f.buf) }

func (f *outputFile) Close() error { return f.store.put(f.name, f.buf) }

// SetWorldReadable is a no-op: object ACLs are governed by bucket policy.
func (f *outputFile) SetWorldReadable() error { return nil }
