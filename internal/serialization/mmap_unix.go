//go:build unix

package serialization

import (
	"fmt"
	"math"
	"os"
	"syscall"
)

// mmapFile maps the whole archive read-only (Unix implementation).
func mmapFile(f *os.File, size int64) ([]byte, error) {
	if size <= 0 || size > math.MaxInt {
		return nil, fmt.Errorf("cannot map %d bytes", size)
	}
	return syscall.Mmap(
		int(f.Fd()), //nolint:gosec // G115: file descriptor fits in int
		0,
		int(size),
		syscall.PROT_READ,
		syscall.MAP_SHARED,
	)
}

// munmapFile unmaps a memory-mapped archive (Unix implementation).
func munmapFile(data []byte) error {
	return syscall.Munmap(data)
}
