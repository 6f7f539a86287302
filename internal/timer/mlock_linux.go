//go:build linux

package timer

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// LockMemory locks the process's current and future pages into RAM so the
// tick goroutine never stalls on a page fault. Needs CAP_IPC_LOCK or a
// sufficient RLIMIT_MEMLOCK.
func LockMemory() error {
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		return fmt.Errorf("mlockall: %w", err)
	}
	return nil
}
