package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	brainsDir  = "brains"
	backupsDir = "backups"

	brainExt = ".brain.json"
)

// Layout maps brain slugs to filesystem paths under a base directory.
//
//	<base>/brains/<slug>.brain.json
//	<base>/brains/<slug>.brain.json.lock
//	<base>/backups/<slug>-<label>-<stamp>.brain.json[.gz]
type Layout struct {
	BaseDir string
}

// NewLayout creates a layout rooted at baseDir and ensures its
// directories exist.
func NewLayout(baseDir string) (*Layout, error) {
	l := &Layout{BaseDir: baseDir}
	for _, dir := range []string{l.BrainsPath(), l.BackupsPath()} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to initialize %s: %w", dir, err)
		}
	}
	return l, nil
}

// BrainsPath returns the directory holding brain files.
func (l *Layout) BrainsPath() string {
	return filepath.Join(l.BaseDir, brainsDir)
}

// BackupsPath returns the directory holding backup snapshots.
func (l *Layout) BackupsPath() string {
	return filepath.Join(l.BaseDir, backupsDir)
}

// BrainPath returns the file path for a brain slug.
func (l *Layout) BrainPath(slug string) string {
	return filepath.Join(l.BrainsPath(), slug+brainExt)
}

// LockPath returns the lock-file path guarding a brain slug.
func (l *Layout) LockPath(slug string) string {
	return l.BrainPath(slug) + ".lock"
}

// BackupPath returns the file path for a backup snapshot.
func (l *Layout) BackupPath(slug, label, stamp string, compressed bool) string {
	name := fmt.Sprintf("%s-%s-%s%s", slug, label, stamp, brainExt)
	if compressed {
		name += ".gz"
	}
	return filepath.Join(l.BackupsPath(), name)
}

// BrainExists reports whether a brain file exists for slug.
func (l *Layout) BrainExists(slug string) bool {
	_, err := os.Stat(l.BrainPath(slug))
	return err == nil
}

// ListBrains returns the slugs of all stored brains, sorted.
func (l *Layout) ListBrains() ([]string, error) {
	entries, err := os.ReadDir(l.BrainsPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read brains directory: %w", err)
	}

	slugs := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, brainExt) {
			continue
		}
		slugs = append(slugs, strings.TrimSuffix(name, brainExt))
	}
	sort.Strings(slugs)
	return slugs, nil
}
