package fs

// FileInfo is the metadata recorded for one regular file during a traversal.
type FileInfo struct {
	// SizeBytes is the file size as reported by the backend. Disk-backed
	// backends may report allocated size rather than logical size.
	SizeBytes int64

	// AtimeSec is the last access time in seconds since the epoch.
	AtimeSec int64

	// Name is the full path of the file, with the traversal root prepended.
	Name string
}

// DirInfo accumulates the result of one directory-subtree walk: every
// regular file's metadata, the paths of directories found empty (useful for
// cache cleaning), and cumulative size and entry counts.
//
// A DirInfo is a single mutable accumulator: it is not safe for concurrent
// use and should not be reused across traversals.
type DirInfo struct {
	Files      []FileInfo
	EmptyDirs  []string
	SizeBytes  int64
	InodeCount int64
}

// GetDirInfo recursively walks the directory at dir and returns the
// aggregation over the whole subtree. The path must not end in a separator.
//
// The walk assumes no cyclic links; a cyclic link graph may not terminate.
// If the tree is mutated concurrently the result is a best-effort snapshot:
// each individual stat or listing observes a consistent instant, but the
// aggregate has no cross-traversal consistency guarantee. Failures along the
// way are reported to the handler and the walk continues, so the result may
// be partial.
func (f *FS) GetDirInfo(dir string) *DirInfo {
	return f.GetDirInfoWithProgress(dir, NullProgressNotifier{})
}

// GetDirInfoWithProgress is GetDirInfo with a notifier invoked repeatedly as
// long as the walk is making forward progress, so very large trees can keep
// a watchdog or UI responsive. Aggregation semantics are unchanged.
func (f *FS) GetDirInfoWithProgress(dir string, notifier ProgressNotifier) *DirInfo {
	info := &DirInfo{}
	f.collectDirInfo(dir, info, notifier)
	return info
}

func (f *FS) collectDirInfo(dir string, info *DirInfo, notifier ProgressNotifier) {
	entries, err := f.b.ListContents(dir)
	if err != nil {
		f.h.Error("failed to list %s during traversal: %v", dir, err)
		return
	}

	if len(entries) == 0 {
		info.EmptyDirs = append(info.EmptyDirs, dir)
		return
	}

	for _, entry := range entries {
		notifier.Notify()
		info.InodeCount++

		switch is := f.b.IsDir(entry); {
		case is.IsTrue():
			f.collectDirInfo(entry, info, notifier)
		case is.IsFalse():
			size, err := f.b.Size(entry)
			if err != nil {
				f.h.Error("failed to stat size of %s during traversal: %v", entry, err)
				continue
			}
			atime, err := f.b.Atime(entry)
			if err != nil {
				f.h.Error("failed to stat atime of %s during traversal: %v", entry, err)
				continue
			}
			info.Files = append(info.Files, FileInfo{SizeBytes: size, AtimeSec: atime, Name: entry})
			info.SizeBytes += size
		default:
			f.h.Error("failed to classify %s during traversal", entry)
		}
	}
}
