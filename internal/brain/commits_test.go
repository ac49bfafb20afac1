package brain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebuildCommitsMatchesLedgers(t *testing.T) {
	doc := testDocument(t)

	rebuilt := doc.RebuildCommits()
	assert.Equal(t, doc.Commits, rebuilt)
}

func TestRebuildDropsOrphanedEntries(t *testing.T) {
	doc := testDocument(t)
	doc.Commits.Insert("deadbeef", CommitEntry{Project: "gone", Entity: "x", Version: 1})

	rebuilt := doc.RebuildCommits()
	_, ok := rebuilt.Lookup("deadbeef")
	assert.False(t, ok)
	assert.Len(t, rebuilt, 2)
}

func TestFindCommitViaIndex(t *testing.T) {
	doc := testDocument(t)
	article := doc.Projects["worldbook"].Entities["article"]
	commit := article.Versions[1].Commit

	entry, ok := doc.FindCommit(commit)
	require.True(t, ok)
	assert.Equal(t, CommitEntry{Project: "worldbook", Entity: "article", Version: 1}, entry)
}

func TestFindCommitFallsBackToScan(t *testing.T) {
	doc := testDocument(t)
	article := doc.Projects["worldbook"].Entities["article"]
	commit := article.Versions[2].Commit

	// Simulate a stale index: the entry is gone but the ledger still has
	// the version.
	doc.Commits.Remove(commit)

	entry, ok := doc.FindCommit(commit)
	require.True(t, ok)
	assert.Equal(t, int64(2), entry.Version)
}

func TestFindCommitStaleEntryRedirectsToLedger(t *testing.T) {
	doc := testDocument(t)
	article := doc.Projects["worldbook"].Entities["article"]
	commit := article.Versions[1].Commit

	// The index points at a version number that no longer holds this commit.
	doc.Commits.Insert(commit, CommitEntry{Project: "worldbook", Entity: "article", Version: 99})

	entry, ok := doc.FindCommit(commit)
	require.True(t, ok)
	assert.Equal(t, int64(1), entry.Version)
}

func TestFindCommitUnknownHash(t *testing.T) {
	doc := testDocument(t)
	_, ok := doc.FindCommit("0000000000000000000000000000000000000000000000000000000000000000")
	assert.False(t, ok)
}
