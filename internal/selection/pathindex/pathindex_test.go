package pathindex

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "path_index.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestUpsertAndLookupRows(t *testing.T) {
	store, _ := openTestStore(t)

	n, err := store.UpsertRows([]Row{
		{PathKey: "k1", FilePath: "/music/a.flac", Size: 100, MtimeMs: 1000,
			SongID: "song-1", FileHash: "h1", UpdatedAt: 1000, LastSeenAt: 1000},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rows, err := store.RowsByPathKeys([]string{"k1", "missing"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "song-1", rows[0].SongID)
}

func TestUpsertOverwritesOnConflict(t *testing.T) {
	store, _ := openTestStore(t)

	_, err := store.UpsertRows([]Row{
		{PathKey: "k1", FilePath: "/a", Size: 1, MtimeMs: 1, SongID: "s1", FileHash: "h1", UpdatedAt: 1, LastSeenAt: 1},
	})
	require.NoError(t, err)
	_, err = store.UpsertRows([]Row{
		{PathKey: "k1", FilePath: "/a", Size: 2, MtimeMs: 2, SongID: "s2", FileHash: "h2", UpdatedAt: 2, LastSeenAt: 2},
	})
	require.NoError(t, err)

	rows, err := store.RowsByPathKeys([]string{"k1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "s2", rows[0].SongID)
	assert.Equal(t, int64(2), rows[0].Size)
}

func TestTouchByPathKeysUpdatesLastSeenOnly(t *testing.T) {
	store, _ := openTestStore(t)
	_, err := store.UpsertRows([]Row{
		{PathKey: "k1", FilePath: "/a", Size: 1, MtimeMs: 1, SongID: "s1", FileHash: "h1", UpdatedAt: 1, LastSeenAt: 1},
	})
	require.NoError(t, err)

	n, err := store.TouchByPathKeys([]string{"k1"}, 999)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rows, err := store.RowsByPathKeys([]string{"k1"})
	require.NoError(t, err)
	assert.Equal(t, int64(999), rows[0].LastSeenAt)
	assert.Equal(t, int64(1), rows[0].Size)
}

func TestDeleteByPathKeysRemovesRows(t *testing.T) {
	store, _ := openTestStore(t)
	_, err := store.UpsertRows([]Row{
		{PathKey: "k1", FilePath: "/a", Size: 1, MtimeMs: 1, SongID: "s1", FileHash: "h1", UpdatedAt: 1, LastSeenAt: 1},
	})
	require.NoError(t, err)

	n, err := store.DeleteByPathKeys([]string{"k1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rows, err := store.RowsByPathKeys([]string{"k1"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestGCDebouncesWithinMinInterval(t *testing.T) {
	store, _ := openTestStore(t)
	_, err := store.UpsertRows([]Row{
		{PathKey: "k1", FilePath: "/a", Size: 1, MtimeMs: 1, SongID: "s1", FileHash: "h1", UpdatedAt: 1, LastSeenAt: 1},
	})
	require.NoError(t, err)

	first, err := store.GC(1000, 500, 10000, 0, 100)
	require.NoError(t, err)
	assert.False(t, first.Skipped)

	second, err := store.GC(1200, 500, 10000, 0, 100)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
}

func TestGCDeletesOldAndOverflowRows(t *testing.T) {
	store, _ := openTestStore(t)
	rows := make([]Row, 0, 5)
	for i := 0; i < 5; i++ {
		rows = append(rows, Row{
			PathKey: string(rune('a' + i)), FilePath: "/f", Size: 1, MtimeMs: 1,
			SongID: "s", FileHash: "h", UpdatedAt: 1, LastSeenAt: int64(i * 1000),
		})
	}
	_, err := store.UpsertRows(rows)
	require.NoError(t, err)

	// TTL cutoff of now-2500 drops rows with lastSeenAt < 2500 (indices 0,1,2).
	result, err := store.GC(5000, 0, 2500, 0, 100)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, int64(3), result.DeletedOld)
	assert.Equal(t, int64(2), result.After)
}

func TestReadModelCountMatchingBySongID(t *testing.T) {
	store, path := openTestStore(t)
	_, err := store.UpsertRows([]Row{
		{PathKey: "k1", FilePath: "/a", Size: 1, MtimeMs: 1, SongID: "s1", FileHash: "h1", UpdatedAt: 1, LastSeenAt: 1},
		{PathKey: "k2", FilePath: "/b", Size: 1, MtimeMs: 1, SongID: "s2", FileHash: "h2", UpdatedAt: 1, LastSeenAt: 1},
	})
	require.NoError(t, err)

	rm, err := NewReadModel(path)
	require.NoError(t, err)
	defer rm.Close()

	count, err := rm.CountMatching(BySongID("s1"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
