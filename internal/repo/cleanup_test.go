package repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pindral/brainstore/internal/brain"
)

func seedRevisions(t *testing.T, r *Repository, path string, count int) {
	t.Helper()
	for i := 1; i <= count; i++ {
		_, err := r.SaveEntity("worldbook", path, map[string]any{"rev": i}, SaveOptions{})
		require.NoError(t, err)
	}
}

func TestPurgeInactiveVersionsKeepNewest(t *testing.T) {
	r := activeRepo(t)
	seedRevisions(t, r, "article", 4) // versions 1..3 inactive, 4 active
	got := collect(t, r, EventCleanupCompleted)

	report, err := r.PurgeInactiveVersions("worldbook", "", 1, false)
	require.NoError(t, err)
	require.Len(t, report.Purged, 2)
	assert.Equal(t, int64(1), report.Purged[0].Version)
	assert.Equal(t, int64(2), report.Purged[1].Version)

	versions, err := r.ListVersions("worldbook", "article")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, int64(3), versions[0].Version)
	assert.Equal(t, int64(4), versions[1].Version)

	// Purged commits leave the index too.
	commits, err := r.ListCommits("worldbook", "", 0)
	require.NoError(t, err)
	assert.Len(t, commits, 2)

	require.Len(t, *got, 1)
	e := (*got)[0].(CleanupCompleted)
	assert.Equal(t, "purge", e.Op)
	assert.Equal(t, 2, e.Affected)

	// Version numbers are never reused after a purge.
	res, err := r.SaveEntity("worldbook", "article", map[string]any{"rev": 5}, SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Version)
}

func TestPurgeOfNewestVersionDoesNotRecycleItsNumber(t *testing.T) {
	r := activeRepo(t)
	seedRevisions(t, r, "article", 2)

	// Reactivate v1 so v2, the highest number ever handed out, becomes
	// purgeable.
	_, err := r.RestoreVersion("worldbook", "article", "1")
	require.NoError(t, err)

	report, err := r.PurgeInactiveVersions("worldbook", "", 0, false)
	require.NoError(t, err)
	require.Len(t, report.Purged, 1)
	assert.Equal(t, int64(2), report.Purged[0].Version)

	// The next save must not re-issue the purged number.
	res, err := r.SaveEntity("worldbook", "article", map[string]any{"rev": 3}, SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Version)

	versions, err := r.ListVersions("worldbook", "article")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, int64(1), versions[0].Version)
	assert.Equal(t, int64(3), versions[1].Version)
}

func TestPurgeDryRunMutatesNothing(t *testing.T) {
	r := activeRepo(t)
	seedRevisions(t, r, "article", 3)
	got := collect(t, r, EventCleanupCompleted)

	report, err := r.PurgeInactiveVersions("worldbook", "", 0, true)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Len(t, report.Purged, 2)

	versions, err := r.ListVersions("worldbook", "article")
	require.NoError(t, err)
	assert.Len(t, versions, 3)
	assert.Empty(t, *got)
}

func TestPurgeNeverTouchesActive(t *testing.T) {
	r := activeRepo(t)
	seedRevisions(t, r, "article", 2)

	report, err := r.PurgeInactiveVersions("worldbook", "", 0, false)
	require.NoError(t, err)
	assert.Len(t, report.Purged, 1)

	view, err := r.ResolveVersion("worldbook", "article", "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), view.Version)
}

func TestPurgeWithEntityFilter(t *testing.T) {
	r := activeRepo(t)
	seedRevisions(t, r, "article", 3)
	seedRevisions(t, r, "other", 3)

	report, err := r.PurgeInactiveVersions("worldbook", "article", 0, false)
	require.NoError(t, err)
	for _, pv := range report.Purged {
		assert.Equal(t, "article", pv.Entity)
	}

	versions, err := r.ListVersions("worldbook", "other")
	require.NoError(t, err)
	assert.Len(t, versions, 3)
}

func TestCompactRebuildsIndex(t *testing.T) {
	r := activeRepo(t)
	seedRevisions(t, r, "article", 2)

	// Corrupt the index out-of-band: drop one entry, add a stale one.
	doc, err := r.load("demo")
	require.NoError(t, err)
	var anyHash string
	for h := range doc.Commits {
		anyHash = h
		break
	}
	doc.Commits.Remove(anyHash)
	doc.Commits.Insert("0000000000000000000000000000000000000000000000000000000000000000",
		brain.CommitEntry{Project: "worldbook", Entity: "ghost", Version: 9})
	require.NoError(t, r.persist("demo", doc))

	report, err := r.Compact("worldbook")
	require.NoError(t, err)
	assert.Equal(t, 2, report.IndexEntries)
	assert.Equal(t, 1, report.RemovedStale)
	assert.Equal(t, 1, report.AddedMissing)

	// Idempotent: a second compact finds nothing to change.
	report, err = r.Compact("worldbook")
	require.NoError(t, err)
	assert.Zero(t, report.RemovedStale)
	assert.Zero(t, report.AddedMissing)
}

func TestCompactPreservesHashes(t *testing.T) {
	r := activeRepo(t)
	v2 := func() *SaveResult {
		_, res := seedArticle(t, r)
		return res
	}()

	_, err := r.Compact("worldbook")
	require.NoError(t, err)

	view, err := r.ResolveVersion("worldbook", "article", "")
	require.NoError(t, err)
	assert.Equal(t, v2.Hash, view.Hash)
	assert.Equal(t, v2.Commit, view.Commit)
}

func TestRepairFixesDrift(t *testing.T) {
	r := activeRepo(t)
	seedRevisions(t, r, "article", 2)

	// Break the document out-of-band.
	doc, err := r.load("demo")
	require.NoError(t, err)
	p := doc.Projects["worldbook"]
	e := p.Entities["article"]
	e.ActiveVersion = 99                      // dangling pointer
	e.Versions[1].Status = brain.StatusActive // second active claim
	e.Versions[1].CommittedAt = time.Time{}   // missing timestamp
	require.NoError(t, r.persist("demo", doc))

	// Dry run reports without fixing.
	report, err := r.Repair("worldbook", true)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.NotEmpty(t, report.Findings)

	report2, err := r.Repair("worldbook", false)
	require.NoError(t, err)
	assert.Equal(t, len(report.Findings), len(report2.Findings))

	// The document is consistent again.
	after, err := r.load("demo")
	require.NoError(t, err)
	fixed := after.Projects["worldbook"].Entities["article"]
	assert.Equal(t, 1, fixed.ActiveCount())
	assert.Equal(t, fixed.Versions[fixed.ActiveVersion].Status, brain.StatusActive)
	for _, v := range fixed.Versions {
		assert.False(t, v.CommittedAt.IsZero())
	}

	// And a second repair finds nothing.
	report3, err := r.Repair("worldbook", false)
	require.NoError(t, err)
	assert.Empty(t, report3.Findings)
}

func TestRepairDemotesImpossibleStatus(t *testing.T) {
	r := activeRepo(t)
	seedRevisions(t, r, "article", 2)

	// The terminal status never appears in a persisted document except
	// through hand edits; the codec loads it and repair demotes it.
	doc, err := r.load("demo")
	require.NoError(t, err)
	doc.Projects["worldbook"].Entities["article"].Versions[1].Status = brain.StatusDeleted
	require.NoError(t, r.persist("demo", doc))

	report, err := r.Repair("worldbook", true)
	require.NoError(t, err)
	require.Len(t, report.Findings, 1)
	assert.Contains(t, report.Findings[0].Issue, "impossible status")

	_, err = r.Repair("worldbook", false)
	require.NoError(t, err)

	after, err := r.load("demo")
	require.NoError(t, err)
	assert.Equal(t, brain.StatusInactive,
		after.Projects["worldbook"].Entities["article"].Versions[1].Status)
}

func TestRepairRaisesVersionCounter(t *testing.T) {
	r := activeRepo(t)
	seedRevisions(t, r, "article", 2)

	doc, err := r.load("demo")
	require.NoError(t, err)
	doc.Projects["worldbook"].Entities["article"].LastVersion = 0
	require.NoError(t, r.persist("demo", doc))

	report, err := r.Repair("worldbook", false)
	require.NoError(t, err)
	require.Len(t, report.Findings, 1)
	assert.Contains(t, report.Findings[0].Issue, "below newest record")

	res, err := r.SaveEntity("worldbook", "article", map[string]any{"rev": 3}, SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Version)
}

func TestRepairCleanProjectFindsNothing(t *testing.T) {
	r := activeRepo(t)
	seedRevisions(t, r, "article", 2)
	got := collect(t, r, EventCleanupCompleted)

	report, err := r.Repair("worldbook", false)
	require.NoError(t, err)
	assert.Empty(t, report.Findings)
	assert.Empty(t, *got) // no event when nothing was fixed
}
