package featurestore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "features.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func floatPtr(f float64) *float64 { return &f }
func strPtr(s string) *string     { return &s }

func TestOpenCreatesSchemaAtVersion2(t *testing.T) {
	store := openTestStore(t)
	var value string
	err := store.db.QueryRow(`SELECT value FROM schema_meta WHERE key = 'schemaVersion'`).Scan(&value)
	require.NoError(t, err)
	assert.Equal(t, "2", value)
}

func TestUpsertAndGetMapRoundTrips(t *testing.T) {
	store := openTestStore(t)

	n, err := store.Upsert([]Patch{{
		SongID:       "song-1",
		FileHash:     "hash-1",
		ModelVersion: "v1",
		OpenL3Vector: []float32{0.1, 0.2, 0.3},
		HPCP:         []float32{1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		BPM:          floatPtr(128.5),
		Key:          strPtr("Cm"),
		DurationSec:  floatPtr(180.4),
		BitrateKbps:  floatPtr(320),
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, err := store.GetMap([]string{"song-1", "missing"})
	require.NoError(t, err)
	require.Contains(t, rows, "song-1")
	require.NotContains(t, rows, "missing")

	row := rows["song-1"]
	assert.Equal(t, "hash-1", row.FileHash)
	assert.InDeltaSlice(t, []float32{0.1, 0.2, 0.3}, row.OpenL3Vector, 1e-6)
	require.NotNil(t, row.BPM)
	assert.InDelta(t, 128.5, *row.BPM, 1e-9)
	require.NotNil(t, row.Key)
	assert.Equal(t, "Cm", *row.Key)
}

func TestUpsertPreservesUnsetOptionalFieldsOnConflict(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Upsert([]Patch{{
		SongID: "song-1", FileHash: "hash-1", ModelVersion: "v1",
		BPM: floatPtr(100), Key: strPtr("Am"),
	}})
	require.NoError(t, err)

	_, err = store.Upsert([]Patch{{
		SongID: "song-1", FileHash: "hash-2", ModelVersion: "v1",
		RMSMean: floatPtr(0.5), // BPM/Key left nil -> must not clobber
	}})
	require.NoError(t, err)

	rows, err := store.GetMap([]string{"song-1"})
	require.NoError(t, err)
	row := rows["song-1"]
	assert.Equal(t, "hash-2", row.FileHash)
	require.NotNil(t, row.BPM)
	assert.InDelta(t, 100, *row.BPM, 1e-9)
	require.NotNil(t, row.Key)
	assert.Equal(t, "Am", *row.Key)
	require.NotNil(t, row.RMSMean)
}

func TestFeatureStatusMapReportsPresence(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Upsert([]Patch{
		{SongID: "has-bpm", FileHash: "h", ModelVersion: "v1", BPM: floatPtr(120)},
		{SongID: "empty", FileHash: "h", ModelVersion: "v1"},
	})
	require.NoError(t, err)

	status, err := store.FeatureStatusMap([]string{"has-bpm", "empty"})
	require.NoError(t, err)
	assert.True(t, status["has-bpm"])
	assert.False(t, status["empty"])
}

func TestPredictionCacheUpsertAndLookup(t *testing.T) {
	store := openTestStore(t)

	n, err := store.UpsertPredictionCache([]PredictionCacheEntry{
		{SongID: "s1", ModelRevision: 1, FileHash: "h1", Score: 0.75},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cache, err := store.PredictionCacheMap(1, []string{"s1"})
	require.NoError(t, err)
	score, ok := cache[[2]string{"s1", "h1"}]
	require.True(t, ok)
	assert.InDelta(t, 0.75, score, 1e-6)

	deleted, err := store.DeletePredictionCacheExceptRevision(2)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}

func TestClearPredictionCacheRemovesEverything(t *testing.T) {
	store := openTestStore(t)
	_, err := store.UpsertPredictionCache([]PredictionCacheEntry{
		{SongID: "s1", ModelRevision: 1, FileHash: "h1", Score: 0.1},
		{SongID: "s2", ModelRevision: 1, FileHash: "h2", Score: 0.2},
	})
	require.NoError(t, err)

	n, err := store.ClearPredictionCache()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	cache, err := store.PredictionCacheMap(1, []string{"s1", "s2"})
	require.NoError(t, err)
	assert.Empty(t, cache)
}

func TestEncodeDecodeF32BlobRoundTrips(t *testing.T) {
	vec := []float32{0, -1.5, 3.25, 100}
	assert.Nil(t, encodeF32Blob(nil))
	blob := encodeF32Blob(vec)
	assert.InDeltaSlice(t, vec, decodeF32Blob(blob), 1e-9)
}
