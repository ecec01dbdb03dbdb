//go:build linux

package disk

import "golang.org/x/sys/unix"

// atimeSec reads the access time from the inode.
func atimeSec(osPath string) (int64, error) {
	var st unix.Stat_t
	if err := unix.Stat(osPath, &st); err != nil {
		return 0, err
	}
	return st.Atim.Sec, nil
}
