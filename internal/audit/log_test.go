package audit

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pindral/brainstore/internal/repo"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	stamp := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l.SetClock(func() time.Time {
		stamp = stamp.Add(time.Second)
		return stamp
	})
	return l
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	l1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l1.Close())

	l2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l2.Close())
}

func TestRecordAndRecent(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, repo.EntitySaved{
		Brain: "demo", Project: "worldbook", Entity: "article",
		Version: 2, Hash: "aa", Commit: "bb",
	}))
	require.NoError(t, l.Record(ctx, repo.CleanupCompleted{
		Brain: "demo", Project: "worldbook", Op: "purge", Affected: 3,
	}))

	entries, err := l.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, repo.EventCleanupCompleted, entries[0].Name)
	assert.Equal(t, "purge", entries[0].Detail["op"])
	assert.EqualValues(t, 3, entries[0].Detail["affected"])

	assert.Equal(t, repo.EventEntitySaved, entries[1].Name)
	assert.Equal(t, "article", entries[1].Entity)
	assert.Equal(t, int64(2), entries[1].Version)
	assert.Equal(t, "bb", entries[1].Detail["commit"])
	assert.False(t, entries[1].RecordedAt.IsZero())
}

func TestRecentLimit(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Record(ctx, repo.ProjectUpdated{Brain: "demo", Project: "p", Action: "updated"}))
	}

	entries, err := l.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestAttachRecordsBusEvents(t *testing.T) {
	l := openTestLog(t)
	bus := repo.NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))

	subs := l.Attach(bus)
	require.Len(t, subs, 9)

	bus.Publish(repo.EntityRestored{Brain: "demo", Project: "worldbook", Entity: "article", Version: 1})
	bus.Publish(repo.WriteCompleted{Brain: "demo", Path: "/tmp/x", Hash: "cc", Attempts: 1})

	entries, err := l.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, repo.EventWriteCompleted, entries[0].Name)
	assert.Equal(t, repo.EventEntityRestored, entries[1].Name)
}
