package badgerfs

import "bytes"

// inputFile reads from a snapshot of the record taken at open time.
type inputFile struct {
	name string
	r    *bytes.Reader
}

func newInputFile(name string, data []byte) *inputFile {
	return &inputFile{name: name, r: bytes.NewReader(data)}
}

func (f *inputFile) Filename() string { return f.name }

func (f *inputFile) Read(p []byte) (int, error) { return f.r.Read(p) }

func (f *inputFile) Close() error { return nil }

// outputFile buffers writes in memory and publishes the full content to the
// database on Flush and Close.
type outputFile struct {
	store *BadgerBackend
	name  string
	buf   []byte
}

func (f *outputFile) Filename() string { return f.name }

func (f *outputFile) Write(p []byte) (int, error) {
	f.buf = append(f.buf, p...)
	return len(p), nil
}

func (f *outputFile) Flush() error { return f.store.publish(f.name, f.buf) }

func (f *outputFile) Close() error { return f.store.publish(f.name, f.buf) }

// SetWorldReadable is a no-op: records carry no permission bits.
func (f *outputFile) SetWorldReadable() error { return nil }
