//go:build unix

package common

import "golang.org/x/sys/unix"

// Demuxing walks the file front to back, so let the kernel read ahead.
func adviseSequential(mapped []byte) {
	if len(mapped) == 0 {
		return
	}

	_ = unix.Madvise(mapped, unix.MADV_SEQUENTIAL)
}
