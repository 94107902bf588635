package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perch3d/sceneql/internal/engine"
	"github.com/perch3d/sceneql/internal/scene"
	"github.com/perch3d/sceneql/internal/schema"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func entryAt(id string, started time.Time) engine.Entry {
	return engine.Entry{
		QueryID:  id,
		Query:    "SELECT name FROM object",
		Started:  started,
		Duration: 1200 * time.Microsecond,
		Class:    engine.ClassNone,
		RowCount: 3,
	}
}

func TestStore_RecordAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	started := time.Date(2026, 8, 23, 10, 0, 0, 123456000, time.UTC)
	want := engine.Entry{
		QueryID:   "q-1",
		Query:     "SELECT name FROM object WHERE visible = true",
		Started:   started,
		Duration:  2500 * time.Microsecond,
		Class:     engine.ClassNone,
		RowCount:  2,
		Truncated: true,
	}
	require.NoError(t, s.Record(ctx, want))

	got, err := s.Get(ctx, "q-1")
	require.NoError(t, err)
	assert.True(t, got.Started.Equal(want.Started), "got %v want %v", got.Started, want.Started)
	got.Started = want.Started
	assert.Equal(t, want, got)
}

func TestStore_RecordFailedQuery(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	e := engine.Entry{
		QueryID: "q-bad",
		Query:   "SELECT bogus FROM object",
		Started: time.Now().UTC().Truncate(time.Microsecond),
		Class:   engine.ClassSemantic,
		Error:   `unknown field "bogus" on kind object`,
	}
	require.NoError(t, s.Record(ctx, e))

	got, err := s.Get(ctx, "q-bad")
	require.NoError(t, err)
	assert.Equal(t, engine.ClassSemantic, got.Class)
	assert.Equal(t, e.Error, got.Error)
	assert.Zero(t, got.RowCount)
}

func TestStore_DuplicateQueryIDRejected(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	e := entryAt("q-1", time.Now().UTC())
	require.NoError(t, s.Record(ctx, e))
	assert.Error(t, s.Record(ctx, e))
}

func TestStore_RecentNewestFirst(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"q-1", "q-2", "q-3"} {
		require.NoError(t, s.Record(ctx, entryAt(id, base.Add(time.Duration(i)*time.Minute))))
	}

	entries, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "q-3", entries[0].QueryID)
	assert.Equal(t, "q-2", entries[1].QueryID)
}

func TestStore_RecentEmpty(t *testing.T) {
	s := openStore(t)

	entries, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_GetNotFound(t *testing.T) {
	s := openStore(t)

	_, err := s.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_RecordsCancelledQuery(t *testing.T) {
	s := openStore(t)
	eng := engine.New(scene.NewMemScene(schema.Default()),
		engine.WithRecorder(s),
		engine.WithIDGenerator(engine.NewFixedGenerator("q-cancel")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := eng.Execute(ctx, "SELECT name FROM object")
	require.NoError(t, err)
	require.True(t, out.Cancelled)

	// The cancellation that ended the query must not also abort its
	// audit write.
	entries, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "q-cancel", entries[0].QueryID)
	assert.True(t, entries[0].Cancelled)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, entryAt("q-1", time.Now().UTC())))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get(ctx, "q-1")
	require.NoError(t, err)
	assert.Equal(t, "q-1", got.QueryID)
}
