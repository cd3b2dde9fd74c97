package health

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func freeDiskMB(path string) (int64, error) {
	var fs unix.Statfs_t
	if err := unix.Statfs(path, &fs); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return int64(fs.Bavail) * int64(fs.Bsize) / (1024 * 1024), nil
}
