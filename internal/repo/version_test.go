package repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pindral/brainstore/internal/brain"
)

func seedArticle(t *testing.T, r *Repository) (*SaveResult, *SaveResult) {
	t.Helper()
	v1, err := r.SaveEntity("worldbook", "article", map[string]any{"title": "Aria"}, SaveOptions{})
	require.NoError(t, err)
	v2, err := r.SaveEntity("worldbook", "article", map[string]any{"title": "Aria", "age": 30}, SaveOptions{})
	require.NoError(t, err)
	return v1, v2
}

func TestResolveVersionDefaultIsActive(t *testing.T) {
	r := activeRepo(t)
	_, v2 := seedArticle(t, r)

	view, err := r.ResolveVersion("worldbook", "article", "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), view.Version)
	assert.Equal(t, v2.Hash, view.Hash)
	assert.Equal(t, brain.StatusActive, view.Status)
	assert.Equal(t, map[string]any{"title": "Aria", "age": int64(30)}, view.Payload)
}

func TestResolveVersionByNumberAndCommitAgree(t *testing.T) {
	r := activeRepo(t)
	v1, _ := seedArticle(t, r)

	byNumber, err := r.ResolveVersion("worldbook", "article", "1")
	require.NoError(t, err)
	byCommit, err := r.ResolveVersion("worldbook", "article", "#"+v1.Commit)
	require.NoError(t, err)

	assert.Equal(t, byNumber, byCommit)
	assert.Equal(t, brain.StatusInactive, byNumber.Status)

	// A bare hash works too.
	bare, err := r.ResolveVersion("worldbook", "article", v1.Commit)
	require.NoError(t, err)
	assert.Equal(t, byNumber, bare)
}

func TestResolveVersionUnresolvable(t *testing.T) {
	r := activeRepo(t)
	seedArticle(t, r)

	_, err := r.ResolveVersion("worldbook", "article", "99")
	assert.True(t, brain.IsNotFound(err))

	_, err = r.ResolveVersion("worldbook", "article", "#deadbeef")
	assert.True(t, brain.IsValidation(err))

	_, err = r.ResolveVersion("worldbook", "ghost", "")
	assert.True(t, brain.IsNotFound(err))
}

func TestRestoreVersion(t *testing.T) {
	r := activeRepo(t)
	seedArticle(t, r)
	got := collect(t, r, EventEntityRestored)

	view, err := r.RestoreVersion("worldbook", "article", "1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), view.Version)

	// No new version number: still exactly two.
	versions, err := r.ListVersions("worldbook", "article")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, brain.StatusActive, versions[0].Status)
	assert.Equal(t, brain.StatusInactive, versions[1].Status)

	require.Len(t, *got, 1)
	assert.Equal(t, int64(1), (*got)[0].(EntityRestored).Version)
}

func TestRestoreActiveVersionConflicts(t *testing.T) {
	r := activeRepo(t)
	seedArticle(t, r)

	_, err := r.RestoreVersion("worldbook", "article", "2")
	assert.True(t, brain.IsConflict(err))
}

func TestListCommits(t *testing.T) {
	r := activeRepo(t)
	seedArticle(t, r)
	_, err := r.SaveEntity("worldbook", "article/note", map[string]any{"x": 1}, SaveOptions{})
	require.NoError(t, err)

	commits, err := r.ListCommits("worldbook", "", 0)
	require.NoError(t, err)
	require.Len(t, commits, 3)
	assert.Equal(t, "article", commits[0].Entity)
	assert.Equal(t, int64(2), commits[0].Version) // newest first per entity

	commits, err = r.ListCommits("worldbook", "article", 2)
	require.NoError(t, err)
	assert.Len(t, commits, 2)
}
