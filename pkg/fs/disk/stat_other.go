//go:build !linux

package disk

import "os"

// atimeSec falls back to the modification time on platforms where the
// access time is not portably available.
func atimeSec(osPath string) (int64, error) {
	fi, err := os.Stat(osPath)
	if err != nil {
		return 0, err
	}
	return fi.ModTime().Unix(), nil
}
