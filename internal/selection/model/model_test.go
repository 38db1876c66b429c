package model

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderdj/frkb-engine/internal/selection/featurestore"
)

func floatPtr(f float64) *float64 { return &f }
func strPtr(s string) *string     { return &s }

func TestDedupeIDsResolvesConflictsToPositive(t *testing.T) {
	pos, neg := DedupeIDs([]string{"a", " b ", "a"}, []string{"b", "c"})
	assert.Equal(t, []string{"a", "b"}, pos)
	assert.Equal(t, []string{"c"}, neg)
}

func buildRow(id string, bpm float64, key string) featurestore.Row {
	return featurestore.Row{
		SongID: id, FileHash: "hash-" + id,
		BPM: floatPtr(bpm), Key: strPtr(key),
		DurationSec: floatPtr(200), BitrateKbps: floatPtr(320), RMSMean: floatPtr(0.2),
	}
}

func TestTrainReportsInsufficientSamplesBelowThreshold(t *testing.T) {
	featuresByID := map[string]featurestore.Row{"p1": buildRow("p1", 120, "C"), "n1": buildRow("n1", 120, "C")}
	outcome, err := Train([]string{"p1"}, []string{"n1"}, 1, featuresByID, "1000")
	require.NoError(t, err)
	assert.True(t, outcome.InsufficientData)
	assert.False(t, outcome.Trained)
}

func TestTrainErrorsWhenFeatureRowMissing(t *testing.T) {
	positives := make([]string, 20)
	negatives := make([]string, 80)
	featuresByID := map[string]featurestore.Row{}
	for i := range positives {
		positives[i] = fmt.Sprintf("p%d", i)
		featuresByID[positives[i]] = buildRow(positives[i], 120, "C")
	}
	for i := range negatives {
		negatives[i] = fmt.Sprintf("n%d", i)
		if i > 0 { // leave n0 out of the feature map
			featuresByID[negatives[i]] = buildRow(negatives[i], 140, "A")
		}
	}

	_, err := Train(positives, negatives, 1, featuresByID, "1000")
	require.Error(t, err)
}

func TestTrainAndPredictEndToEnd(t *testing.T) {
	positives := make([]string, 20)
	negatives := make([]string, 80)
	featuresByID := map[string]featurestore.Row{}
	for i := range positives {
		positives[i] = fmt.Sprintf("p%d", i)
		featuresByID[positives[i]] = buildRow(positives[i], 120, "C")
	}
	for i := range negatives {
		negatives[i] = fmt.Sprintf("n%d", i)
		featuresByID[negatives[i]] = buildRow(negatives[i], 180, "F#m")
	}

	outcome, err := Train(positives, negatives, 1, featuresByID, "1000")
	require.NoError(t, err)
	require.True(t, outcome.Trained)
	require.NotNil(t, outcome.Model)
	assert.Equal(t, ModelFileName, "selection_gbdt_v1.bin")

	candidateID := "candidate-near-positive"
	featuresByID[candidateID] = buildRow(candidateID, 121, "C")

	items := Predict(outcome.Model, []string{candidateID, "n0"}, featuresByID, featuresByID)
	require.Len(t, items, 2)
	// The near-positive candidate should score at least as well as a training negative.
	var candidateScore, negativeScore float32
	for _, it := range items {
		switch it.ID {
		case candidateID:
			candidateScore = it.Score
		case "n0":
			negativeScore = it.Score
		}
	}
	assert.GreaterOrEqual(t, candidateScore, negativeScore)
}

func TestSerializeDeserializeRoundTrips(t *testing.T) {
	positives := make([]string, 20)
	negatives := make([]string, 80)
	featuresByID := map[string]featurestore.Row{}
	for i := range positives {
		positives[i] = fmt.Sprintf("p%d", i)
		featuresByID[positives[i]] = buildRow(positives[i], 120, "C")
	}
	for i := range negatives {
		negatives[i] = fmt.Sprintf("n%d", i)
		featuresByID[negatives[i]] = buildRow(negatives[i], 180, "F#m")
	}
	outcome, err := Train(positives, negatives, 7, featuresByID, "1000")
	require.NoError(t, err)
	require.True(t, outcome.Trained)

	blob, err := Serialize(outcome.Model)
	require.NoError(t, err)

	loaded, err := Deserialize(blob)
	require.NoError(t, err)
	assert.Equal(t, int64(7), loaded.ModelRevision)
	assert.Equal(t, FeatureNames, loaded.FeatureNames)
}

func TestParseKeyCodeAndDistance(t *testing.T) {
	c, ok := parseKeyCode("C")
	require.True(t, ok)
	assert.Equal(t, 0, c)

	am, ok := parseKeyCode("Am")
	require.True(t, ok)
	assert.Equal(t, 21, am)

	assert.Equal(t, float32(0), keyDistance(0, 0))
	assert.Equal(t, float32(1), keyDistance(0, 12)) // same pitch, different mode
}

func TestChromaprintSimhashSimilarity(t *testing.T) {
	sig1, ok := chromaprintSimhash("1,2,3,4,5")
	require.True(t, ok)
	sig2, ok := chromaprintSimhash("1,2,3,4,5")
	require.True(t, ok)
	assert.Equal(t, float32(1), simhashSimilarity64(sig1, sig2))

	_, ok = chromaprintSimhash("")
	assert.False(t, ok)
}
