package labelstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "labels.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestParseLabelRoundTrip(t *testing.T) {
	for _, s := range []string{"liked", "disliked", "neutral"} {
		l, ok := ParseLabel(s)
		assert.True(t, ok)
		assert.Equal(t, s, l.String())
	}
	_, ok := ParseLabel("garbage")
	assert.False(t, ok)
}

func TestLabelForSongIDDefaultsNeutral(t *testing.T) {
	store := openTestStore(t)
	label, err := store.LabelForSongID("unknown")
	require.NoError(t, err)
	assert.Equal(t, Neutral, label)
}

func TestSetLabelsBulkTracksChangesAndCounter(t *testing.T) {
	store := openTestStore(t)

	processed, changed, count, err := store.SetLabelsBulk([]string{"a", "b", " ", "a"}, Liked)
	require.NoError(t, err)
	assert.Equal(t, 2, processed) // "a" deduped, blank dropped
	assert.Equal(t, 2, changed)
	assert.Equal(t, int64(2), count)

	label, err := store.LabelForSongID("a")
	require.NoError(t, err)
	assert.Equal(t, Liked, label)

	// Re-applying the same label changes nothing.
	_, changed, count, err = store.SetLabelsBulk([]string{"a"}, Liked)
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
	assert.Equal(t, int64(2), count)

	// Setting Neutral deletes the row rather than storing "neutral".
	_, changed, _, err = store.SetLabelsBulk([]string{"a"}, Neutral)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	label, err = store.LabelForSongID("a")
	require.NoError(t, err)
	assert.Equal(t, Neutral, label)
}

func TestSnapshotSortsAndSeparatesPositiveNegative(t *testing.T) {
	store := openTestStore(t)
	_, _, _, err := store.SetLabelsBulk([]string{"z", "a"}, Liked)
	require.NoError(t, err)
	_, _, _, err = store.SetLabelsBulk([]string{"m"}, Disliked)
	require.NoError(t, err)

	pos, neg, err := store.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "z"}, pos)
	assert.Equal(t, []string{"m"}, neg)
}

func TestBumpSampleChangeCountFloorsAtZero(t *testing.T) {
	store := openTestStore(t)
	n, err := store.BumpSampleChangeCount(-100)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = store.BumpSampleChangeCount(5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestResetAllClearsLabelsAndCounter(t *testing.T) {
	store := openTestStore(t)
	_, _, _, err := store.SetLabelsBulk([]string{"a"}, Liked)
	require.NoError(t, err)

	require.NoError(t, store.ResetAll())

	label, err := store.LabelForSongID("a")
	require.NoError(t, err)
	assert.Equal(t, Neutral, label)

	count, err := store.SampleChangeCount()
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestResetSampleChangeCountLeavesLabelsIntact(t *testing.T) {
	store := openTestStore(t)
	_, _, _, err := store.SetLabelsBulk([]string{"a"}, Liked)
	require.NoError(t, err)

	require.NoError(t, store.ResetSampleChangeCount())

	count, err := store.SampleChangeCount()
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	label, err := store.LabelForSongID("a")
	require.NoError(t, err)
	assert.Equal(t, Liked, label)
}
