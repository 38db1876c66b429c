package api

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupeSortedTrimsBlanksAndDuplicates(t *testing.T) {
	got := dedupeSorted([]string{" b ", "a", "a", "", "  ", "c", "b"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestUpsertSongFeaturesAndGetStatus(t *testing.T) {
	ctx := context.Background()
	storePath := filepath.Join(t.TempDir(), "features.db")

	bpm := 120.0
	n, err := UpsertSongFeatures(ctx, storePath, []SongFeaturePatch{{
		SongID:       "song-1",
		FileHash:     "hash-1",
		ModelVersion: "v1",
		BPM:          &bpm,
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	status, err := GetSelectionFeatureStatus(ctx, storePath, []string{"song-1", "song-missing"})
	require.NoError(t, err)
	require.Len(t, status, 2)
	assert.Equal(t, FeatureStatusItem{SongID: "song-1", HasFeatures: true}, status[0])
	assert.Equal(t, FeatureStatusItem{SongID: "song-missing", HasFeatures: false}, status[1])
}

func TestUpsertSongFeaturesRejectsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	storePath := filepath.Join(t.TempDir(), "features.db")

	_, err := UpsertSongFeatures(ctx, storePath, nil)
	require.Error(t, err)
}

func TestClearSelectionPredictionCacheOnEmptyStoreIsNoop(t *testing.T) {
	ctx := context.Background()
	storePath := filepath.Join(t.TempDir(), "features.db")

	n, err := ClearSelectionPredictionCache(ctx, storePath)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
