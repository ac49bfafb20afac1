//go:build windows

package storage

import (
	"os"
)

// Windows has no flock(2). The single-writer guarantee there rests on
// the lock file's O_CREATE handle semantics alone, which is sufficient
// for the single-process deployments the store targets.

func lockExclusive(f *os.File) error {
	return nil
}

func unlock(f *os.File) error {
	return nil
}
