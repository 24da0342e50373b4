package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "history.db"), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAddAndGetRecent(t *testing.T) {
	s := newTestStore(t, Options{SaveFailed: true})
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.Add(ctx, Entry{
		ProfileName: "Acme", EntityType: "party", Filter: "[[('name', 'ilike', '%acme%')]]",
		ExecutedAt: base, Duration: 12 * time.Millisecond, RecordCount: 2, Success: true,
	}))
	require.NoError(t, s.Add(ctx, Entry{
		ProfileName: "Broken", EntityType: "party", Filter: "[('nickname', '=', 'x')]",
		ExecutedAt: base.Add(time.Minute), Success: false, ErrorMessage: "column does not exist",
	}))

	entries, err := s.GetRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Broken", entries[0].ProfileName)
	assert.False(t, entries[0].Success)
	assert.Equal(t, "column does not exist", entries[0].ErrorMessage)

	assert.Equal(t, "Acme", entries[1].ProfileName)
	assert.True(t, entries[1].Success)
	assert.Equal(t, 2, entries[1].RecordCount)
	assert.Equal(t, 12*time.Millisecond, entries[1].Duration)
	assert.True(t, base.Equal(entries[1].ExecutedAt))

	found, err := s.Search(ctx, "acm", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Acme", found[0].ProfileName)
}

func TestFailedSearchesSkippedByDefault(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, Entry{ProfileName: "Broken", EntityType: "party", Filter: "[]"}))
	entries, err := s.GetRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMaxEntries(t *testing.T) {
	s := newTestStore(t, Options{MaxEntries: 2})
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, name := range []string{"first", "second", "third"} {
		require.NoError(t, s.Add(ctx, Entry{
			ProfileName: name, EntityType: "party", Filter: "[]",
			ExecutedAt: base.Add(time.Duration(i) * time.Second), Success: true,
		}))
	}

	entries, err := s.GetRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "third", entries[0].ProfileName)
	assert.Equal(t, "second", entries[1].ProfileName)
}
