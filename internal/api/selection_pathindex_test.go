package api

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertTouchGetDeletePathIndexEntries(t *testing.T) {
	ctx := context.Background()
	storePath := filepath.Join(t.TempDir(), "paths.db")

	n, err := UpsertSelectionPathIndexEntries(ctx, storePath, []UpsertPathIndexEntry{
		{PathKey: "k1", FilePath: "/music/a.mp3", Size: 100, MtimeMs: 1, SongID: "song-1", FileHash: "hash-1"},
		{PathKey: "k2", FilePath: "/music/b.mp3", Size: 200, MtimeMs: 2, SongID: "song-2", FileHash: "hash-2"},
	}, 1000)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	entries, err := GetSelectionPathIndexEntries(ctx, storePath, []string{"k1", "k2", "k1"})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	touched, err := TouchSelectionPathIndexEntries(ctx, storePath, []string{"k1"}, 2000)
	require.NoError(t, err)
	assert.EqualValues(t, 1, touched)

	deleted, err := DeleteSelectionPathIndexEntries(ctx, storePath, []string{"k2"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	remaining, err := GetSelectionPathIndexEntries(ctx, storePath, []string{"k1", "k2"})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "k1", remaining[0].PathKey)
}

func TestGCSelectionPathIndexAppliesDefaults(t *testing.T) {
	ctx := context.Background()
	storePath := filepath.Join(t.TempDir(), "paths.db")

	_, err := UpsertSelectionPathIndexEntries(ctx, storePath, []UpsertPathIndexEntry{
		{PathKey: "k1", FilePath: "/music/a.mp3", Size: 100, MtimeMs: 1, SongID: "song-1", FileHash: "hash-1"},
	}, 1000)
	require.NoError(t, err)

	res, err := GCSelectionPathIndex(ctx, storePath, 2000, PathIndexGCOptions{})
	require.NoError(t, err)
	assert.True(t, res.Skipped, "first GC pass within the default 24h debounce window should skip")

	later, err := GCSelectionPathIndex(ctx, storePath, 48*60*60*1000, PathIndexGCOptions{})
	require.NoError(t, err)
	assert.False(t, later.Skipped)
}
