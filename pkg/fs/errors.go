package fs

import "errors"

// ============================================================================
// Standard Filesystem Errors
// ============================================================================

// These errors provide a consistent way to indicate common failure conditions
// across all backends. Implementations wrap them with path context:
//
//	if !found {
//	    return fmt.Errorf("open %s: %w", filename, fs.ErrNotFound)
//	}
//
// Callers check with errors.Is:
//
//	if errors.Is(err, fs.ErrNotFound) { ... }

var (
	// ErrNotFound indicates the named file, directory or lock does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrPermission indicates the backend denied access to the path.
	ErrPermission = errors.New("permission denied")

	// ErrAlreadyExists indicates an exclusive-create target already exists.
	//
	// This is returned by MakeDir on an existing path and by backends whose
	// exclusive lock-create primitive finds the lock file present.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotEmpty indicates a directory could not be removed because it
	// still has entries.
	ErrNotEmpty = errors.New("directory not empty")

	// ErrNotDirectory indicates a directory operation was applied to a
	// path that exists but is not a directory.
	ErrNotDirectory = errors.New("not a directory")

	// ErrIsDirectory indicates a file operation was applied to a directory.
	ErrIsDirectory = errors.New("is a directory")

	// ErrSizeLimitExceeded indicates a size-capped read found more content
	// than the caller allowed. No partial content is returned alongside it.
	ErrSizeLimitExceeded = errors.New("size limit exceeded")

	// ErrNotSupported indicates the backend does not implement an optional
	// capability (for example directory rename on object storage).
	ErrNotSupported = errors.New("operation not supported")
)
