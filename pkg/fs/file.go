package fs

import "io"

// File is an open handle to a backend resource.
//
// Handle Lifecycle:
// Handles are produced by the open operations on FS and consumed exactly once
// by FS.Close, which releases the underlying resource and reports any failure
// to the diagnostics handler. Close on the handle itself is reserved for the
// owning FS; callers should treat FS.Close as the only sanctioned way to
// release a handle. Any operation on a handle after it has been closed is
// undefined behavior and is not guarded against.
type File interface {
	// Filename returns the name associated with the handle. The name is
	// stable for the lifetime of the handle; for temp files it is the
	// final unique name chosen at open time.
	Filename() string

	// Close releases the underlying resource. Use FS.Close instead of
	// calling this directly so that failures are reported consistently.
	Close() error
}

// InputFile is a handle open for reading.
//
// Read follows io.Reader semantics: it returns the number of bytes actually
// read, and short reads are legal without being an error. Use FS.ReadAll or
// FS.ReadFile for size-capped whole-file reads.
type InputFile interface {
	File
	io.Reader
}

// OutputFile is a handle open for writing.
//
// Write is not atomic: a partial write followed by a failure leaves the
// destination in an indeterminate state visible to readers. Use
// FS.WriteFileAtomic when readers must never observe a partial write.
type OutputFile interface {
	File
	io.Writer

	// Flush forces buffered data to the backend.
	Flush() error

	// SetWorldReadable marks the file readable by everyone. This is an
	// explicit separate step; neither Write nor Close implies it.
	SetWorldReadable() error
}

// ProgressNotifier receives forward-progress callbacks from long-running
// traversals such as FS.GetDirInfoWithProgress.
type ProgressNotifier interface {
	Notify()
}

// NullProgressNotifier is a ProgressNotifier that does nothing.
type NullProgressNotifier struct{}

// Notify implements ProgressNotifier.
func (NullProgressNotifier) Notify() {}
