//go:build unix

package storage

import (
	"os"
	"syscall"
)

// lockExclusive acquires a blocking exclusive lock via flock(2).
// Locks are process-scoped and released on close or process exit.
func lockExclusive(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_EX)
}

// unlock releases the lock via flock(2). Safe to call even if not locked.
func unlock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
