package api

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetSelectionLabelsRejectsUnknownLabel(t *testing.T) {
	ctx := context.Background()
	storePath := filepath.Join(t.TempDir(), "labels.db")

	_, err := SetSelectionLabels(ctx, storePath, []string{"song-1"}, "maybe")
	require.Error(t, err)
}

func TestSetAndGetSelectionLabelRoundTrips(t *testing.T) {
	ctx := context.Background()
	storePath := filepath.Join(t.TempDir(), "labels.db")

	res, err := SetSelectionLabels(ctx, storePath, []string{"song-1", "song-2"}, "liked")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.Changed)
	assert.EqualValues(t, 2, res.SampleChangeCount)

	label, err := GetSelectionLabel(ctx, storePath, "song-1")
	require.NoError(t, err)
	assert.Equal(t, "liked", label)

	unlabeled, err := GetSelectionLabel(ctx, storePath, "song-unknown")
	require.NoError(t, err)
	assert.Equal(t, "neutral", unlabeled)
}

func TestGetSelectionLabelSnapshotSeparatesPositiveAndNegative(t *testing.T) {
	ctx := context.Background()
	storePath := filepath.Join(t.TempDir(), "labels.db")

	_, err := SetSelectionLabels(ctx, storePath, []string{"song-1"}, "liked")
	require.NoError(t, err)
	_, err = SetSelectionLabels(ctx, storePath, []string{"song-2"}, "disliked")
	require.NoError(t, err)

	snap, err := GetSelectionLabelSnapshot(ctx, storePath)
	require.NoError(t, err)
	assert.Equal(t, []string{"song-1"}, snap.PositiveIDs)
	assert.Equal(t, []string{"song-2"}, snap.NegativeIDs)
	assert.EqualValues(t, 2, snap.SampleChangeCount)
}

func TestResetSelectionLabelsClearsEverything(t *testing.T) {
	ctx := context.Background()
	storePath := filepath.Join(t.TempDir(), "labels.db")

	_, err := SetSelectionLabels(ctx, storePath, []string{"song-1"}, "liked")
	require.NoError(t, err)

	require.NoError(t, ResetSelectionLabels(ctx, storePath))

	label, err := GetSelectionLabel(ctx, storePath, "song-1")
	require.NoError(t, err)
	assert.Equal(t, "neutral", label)

	snap, err := GetSelectionLabelSnapshot(ctx, storePath)
	require.NoError(t, err)
	assert.EqualValues(t, 0, snap.SampleChangeCount)
}

func TestBumpSelectionSampleChangeCountFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	storePath := filepath.Join(t.TempDir(), "labels.db")

	n, err := BumpSelectionSampleChangeCount(ctx, storePath, -5)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}
