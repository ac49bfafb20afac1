package repo

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pindral/brainstore/internal/storage"
)

// testClock hands out strictly increasing instants so every commit in a
// test gets a distinct timestamp.
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

// testIDs hands out deterministic uuids.
func testIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("00000000-0000-4000-8000-%012d", n)
	}
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	layout, err := storage.NewLayout(t.TempDir())
	require.NoError(t, err)

	r, err := New(layout,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(newTestClock().Now),
		WithIDSource(testIDs()),
	)
	require.NoError(t, err)
	return r
}

// collect subscribes to an event name and records everything published.
func collect(t *testing.T, r *Repository, name string) *[]Event {
	t.Helper()
	var got []Event
	sub := r.Events().Subscribe(name, func(e Event) {
		got = append(got, e)
	})
	t.Cleanup(func() { r.Events().Unsubscribe(sub) })
	return &got
}
