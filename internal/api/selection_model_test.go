package api

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apiFloatPtr(f float64) *float64 { return &f }
func apiStrPtr(s string) *string     { return &s }

func seedTrainingFeatures(t *testing.T, ctx context.Context, storePath string) (positives, negatives []string) {
	t.Helper()
	positives = make([]string, 20)
	negatives = make([]string, 80)

	var patches []SongFeaturePatch
	for i := range positives {
		id := fmt.Sprintf("pos-%d", i)
		positives[i] = id
		patches = append(patches, SongFeaturePatch{
			SongID: id, FileHash: "hash-" + id, ModelVersion: "v1",
			BPM: apiFloatPtr(120), Key: apiStrPtr("C"), DurationSec: apiFloatPtr(200), BitrateKbps: apiFloatPtr(320),
			RMSMean: apiFloatPtr(0.2),
		})
	}
	for i := range negatives {
		id := fmt.Sprintf("neg-%d", i)
		negatives[i] = id
		patches = append(patches, SongFeaturePatch{
			SongID: id, FileHash: "hash-" + id, ModelVersion: "v1",
			BPM: apiFloatPtr(140), Key: apiStrPtr("A"), DurationSec: apiFloatPtr(180), BitrateKbps: apiFloatPtr(256),
			RMSMean: apiFloatPtr(0.4),
		})
	}

	n, err := UpsertSongFeatures(ctx, storePath, patches)
	require.NoError(t, err)
	assert.Equal(t, len(patches), n)
	return positives, negatives
}

func TestTrainSelectionGBDTReportsInsufficientSamples(t *testing.T) {
	ctx := context.Background()
	storePath := filepath.Join(t.TempDir(), "library", "features.db")

	_, err := UpsertSongFeatures(ctx, storePath, []SongFeaturePatch{
		{SongID: "p1", FileHash: "h1", ModelVersion: "v1", BPM: apiFloatPtr(120)},
		{SongID: "n1", FileHash: "h2", ModelVersion: "v1", BPM: apiFloatPtr(140)},
	})
	require.NoError(t, err)

	res := TrainSelectionGBDT(ctx, []string{"p1"}, []string{"n1"}, storePath)
	assert.Equal(t, "insufficient_samples", res.Status)
	assert.Nil(t, res.Failed)
}

func TestTrainThenPredictSelectionCandidatesEndToEnd(t *testing.T) {
	ctx := context.Background()
	storePath := filepath.Join(t.TempDir(), "library", "features.db")
	positives, negatives := seedTrainingFeatures(t, ctx, storePath)

	trainRes := TrainSelectionGBDT(ctx, positives, negatives, storePath)
	require.Equal(t, "trained", trainRes.Status)
	require.NotNil(t, trainRes.ModelRevision)
	assert.EqualValues(t, 1, *trainRes.ModelRevision)
	require.NotNil(t, trainRes.ModelPath)

	predictRes := PredictSelectionCandidates(ctx, append(append([]string{}, positives...), negatives...), storePath, "", 10)
	require.Equal(t, "ok", predictRes.Status)
	require.NotNil(t, predictRes.ModelRevision)
	assert.EqualValues(t, 1, *predictRes.ModelRevision)
	assert.LessOrEqual(t, len(predictRes.Items), 10)
	for i := 1; i < len(predictRes.Items); i++ {
		assert.GreaterOrEqual(t, predictRes.Items[i-1].Score, predictRes.Items[i].Score)
	}

	// Retraining bumps the manifest revision and evicts the stale cache.
	retrainRes := TrainSelectionGBDT(ctx, positives, negatives, storePath)
	require.Equal(t, "trained", retrainRes.Status)
	require.NotNil(t, retrainRes.ModelRevision)
	assert.EqualValues(t, 2, *retrainRes.ModelRevision)
}

func TestPredictSelectionCandidatesNotTrainedWhenNoModelOnDisk(t *testing.T) {
	ctx := context.Background()
	storePath := filepath.Join(t.TempDir(), "library", "features.db")

	res := PredictSelectionCandidates(ctx, []string{"song-1"}, storePath, "", 0)
	assert.Equal(t, "not_trained", res.Status)
}
