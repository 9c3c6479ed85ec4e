//go:build linux

package bench

import (
	"time"

	"golang.org/x/sys/unix"
)

// threadCPUTime returns user+system CPU time of the calling OS thread. The
// caller must be locked to its thread.
func threadCPUTime() time.Duration {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_THREAD, &ru); err != nil {
		return 0
	}
	return time.Duration(ru.Utime.Nano() + ru.Stime.Nano())
}
