package storage

import (
	"fmt"
	"os"
)

// FileLock is an advisory, process-level exclusive lock on a brain file,
// held for the duration of one load-mutate-persist cycle (and for
// backup/restore of the same brain). Acquisition blocks until the
// current holder releases.
type FileLock struct {
	f    *os.File
	path string
}

// AcquireLock opens (creating if needed) the lock file at path and
// blocks until an exclusive lock is held.
func AcquireLock(path string) (*FileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	if err := lockExclusive(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	return &FileLock{f: f, path: path}, nil
}

// Release unlocks and closes the lock file. Safe to call once only.
func (l *FileLock) Release() error {
	if l.f == nil {
		return nil
	}
	unlockErr := unlock(l.f)
	closeErr := l.f.Close()
	l.f = nil
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}
