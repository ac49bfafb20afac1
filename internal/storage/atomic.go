package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pindral/brainstore/internal/brain"
	"github.com/pindral/brainstore/internal/canon"
)

// WriteObserver receives the observable signals of a write-verify-swap
// sequence. All methods are called synchronously from Persist.
type WriteObserver interface {
	// WriteRetry fires when the first write-verify cycle failed and a
	// single retry is about to run.
	WriteRetry(path string, attempt int, cause error)

	// WriteIntegrityFailed fires only on the second, fatal verification
	// failure.
	WriteIntegrityFailed(path, expected, actual string)

	// WriteCompleted fires on success with the final content hash and
	// the number of attempts it took.
	WriteCompleted(path, hash string, attempts int)
}

// Writer is the write-verify-swap primitive. The zero value is usable;
// Observer and Logger are optional.
type Writer struct {
	Observer WriteObserver
	Logger   *slog.Logger
}

// maxWriteAttempts: the first attempt plus exactly one retry.
const maxWriteAttempts = 2

// Persist writes data to path atomically and verifies the result.
//
// Each attempt writes a temporary sibling, flushes it to stable storage,
// atomically renames it over path, then re-reads the file and compares
// its hash against the hash of data. A failed attempt (I/O error or hash
// mismatch) is retried exactly once; a second failure is fatal and
// surfaces as a WRITE_FAILED or INTEGRITY error. On success the final
// hash is returned.
func (w *Writer) Persist(path string, data []byte) (string, error) {
	expected := canon.SumBytes(data)

	var lastErr error
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		actual, err := w.writeAndVerify(path, data, expected)
		if err == nil {
			w.logger().Debug("persisted file",
				"path", path,
				"hash", expected,
				"attempts", attempt)
			if w.Observer != nil {
				w.Observer.WriteCompleted(path, expected, attempt)
			}
			return expected, nil
		}

		lastErr = err
		if attempt < maxWriteAttempts {
			w.logger().Warn("write verification failed, retrying",
				"path", path,
				"error", err)
			if w.Observer != nil {
				w.Observer.WriteRetry(path, attempt, err)
			}
			continue
		}

		// Second failure: distinguish a hash mismatch from plain I/O.
		if actual != "" && actual != expected {
			w.logger().Error("write integrity failure",
				"path", path,
				"expected", expected,
				"actual", actual)
			if w.Observer != nil {
				w.Observer.WriteIntegrityFailed(path, expected, actual)
			}
			return "", brain.NewIntegrity("post-write hash mismatch for %s after retry", path).WithCause(err)
		}
	}

	return "", brain.NewWriteFailed("failed to persist %s", path).WithCause(lastErr)
}

// writeAndVerify runs one write-verify cycle. It returns the hash
// observed on re-read ("" when the file could not be re-read at all).
func (w *Writer) writeAndVerify(path string, data []byte, expected string) (string, error) {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	// Any failure before the rename leaves path untouched; the temp
	// sibling is removed on the way out.
	cleanup := true
	defer func() {
		if cleanup {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("rename into place: %w", err)
	}
	cleanup = false

	// Flush the directory entry so the rename itself is durable.
	// Best effort: not every filesystem supports directory fsync.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close()
	}

	written, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("re-read for verification: %w", err)
	}

	actual := canon.SumBytes(written)
	if actual != expected {
		return actual, fmt.Errorf("hash mismatch: wrote %s, read back %s", expected, actual)
	}
	return actual, nil
}

func (w *Writer) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

// Load reads a brain file. A missing file is a NotFound error so callers
// can distinguish absence from corruption.
func Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, brain.NewNotFound("no brain file at %s", path)
		}
		return nil, brain.NewWriteFailed("failed to read %s", path).WithCause(err)
	}
	return data, nil
}
