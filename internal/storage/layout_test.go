package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLayoutCreatesDirectories(t *testing.T) {
	base := t.TempDir()
	l, err := NewLayout(base)
	require.NoError(t, err)

	for _, dir := range []string{l.BrainsPath(), l.BackupsPath()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestLayoutPaths(t *testing.T) {
	l := &Layout{BaseDir: "/data"}

	assert.Equal(t, filepath.Join("/data", "brains", "demo.brain.json"), l.BrainPath("demo"))
	assert.Equal(t, filepath.Join("/data", "brains", "demo.brain.json.lock"), l.LockPath("demo"))
	assert.Equal(t,
		filepath.Join("/data", "backups", "demo-nightly-20240601T120000Z.brain.json.gz"),
		l.BackupPath("demo", "nightly", "20240601T120000Z", true))
	assert.Equal(t,
		filepath.Join("/data", "backups", "demo-nightly-20240601T120000Z.brain.json"),
		l.BackupPath("demo", "nightly", "20240601T120000Z", false))
}

func TestListBrains(t *testing.T) {
	base := t.TempDir()
	l, err := NewLayout(base)
	require.NoError(t, err)

	slugs, err := l.ListBrains()
	require.NoError(t, err)
	assert.Empty(t, slugs)

	for _, slug := range []string{"system", "demo", "alpha"} {
		require.NoError(t, os.WriteFile(l.BrainPath(slug), []byte("{}"), 0o640))
	}
	// Lock files and strangers are not brains.
	require.NoError(t, os.WriteFile(l.LockPath("demo"), nil, 0o640))
	require.NoError(t, os.WriteFile(filepath.Join(l.BrainsPath(), "notes.txt"), nil, 0o640))

	slugs, err = l.ListBrains()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "demo", "system"}, slugs)

	assert.True(t, l.BrainExists("demo"))
	assert.False(t, l.BrainExists("ghost"))
}
