//go:build !linux

package timer

import "errors"

// LockMemory is not supported on non-Linux platforms.
func LockMemory() error {
	return errors.New("timer: memory locking not supported on this platform (requires Linux)")
}
