package repo

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pindral/brainstore/internal/brain"
)

func TestBackupAndRestore(t *testing.T) {
	r := activeRepo(t)
	seedArticle(t, r)

	path, err := r.Backup("demo", "nightly", false)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.True(t, strings.HasSuffix(path, ".brain.json"))

	// Mutate after the snapshot, then restore over it.
	_, err = r.SaveEntity("worldbook", "article", map[string]any{"title": "Later"}, SaveOptions{})
	require.NoError(t, err)

	restored, err := r.RestoreFromBackup(path, "", true, false)
	require.NoError(t, err)
	assert.Equal(t, "demo", restored)

	versions, err := r.ListVersions("worldbook", "article")
	require.NoError(t, err)
	assert.Len(t, versions, 2) // the post-snapshot save is gone
}

func TestBackupCompressed(t *testing.T) {
	r := activeRepo(t)
	seedArticle(t, r)

	path, err := r.Backup("demo", "nightly", true)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".brain.json.gz"))

	restored, err := r.RestoreFromBackup(path, "copy", false, true)
	require.NoError(t, err)
	assert.Equal(t, "copy", restored)
	assert.Equal(t, "copy", r.Active())

	require.NoError(t, r.Use("copy"))
	versions, err := r.ListVersions("worldbook", "article")
	require.NoError(t, err)
	assert.Len(t, versions, 2)
}

func TestBackupUnknownBrain(t *testing.T) {
	r := newTestRepo(t)

	_, err := r.Backup("ghost", "", false)
	assert.True(t, brain.IsNotFound(err))
}

func TestRestoreRequiresOverwrite(t *testing.T) {
	r := activeRepo(t)
	seedArticle(t, r)

	path, err := r.Backup("demo", "snap", false)
	require.NoError(t, err)

	_, err = r.RestoreFromBackup(path, "demo", false, false)
	assert.True(t, brain.IsConflict(err))
}

func TestRestoreRejectsSystemTarget(t *testing.T) {
	r := activeRepo(t)
	seedArticle(t, r)

	path, err := r.Backup("demo", "snap", false)
	require.NoError(t, err)

	_, err = r.RestoreFromBackup(path, brain.SystemSlug, true, false)
	assert.True(t, brain.IsConflict(err))
}

func TestRestoreFromMissingOrCorruptFile(t *testing.T) {
	r := newTestRepo(t)

	_, err := r.RestoreFromBackup("/nope/missing.brain.json", "", false, false)
	assert.True(t, brain.IsNotFound(err))

	bad := r.Layout().BaseDir + "/bad.brain.json"
	require.NoError(t, os.WriteFile(bad, []byte("not json"), 0o640))
	_, err = r.RestoreFromBackup(bad, "", false, false)
	assert.True(t, brain.IsValidation(err))
}
