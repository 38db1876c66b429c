package gbdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSeparableSamples() []Sample {
	var samples []Sample
	for i := 0; i < 30; i++ {
		samples = append(samples, Sample{Features: []float32{1, 0.9}, Label: 1})
		samples = append(samples, Sample{Features: []float32{0, 0.1}, Label: -1})
	}
	return samples
}

func TestFitSeparatesLinearlySeparableClasses(t *testing.T) {
	samples := makeSeparableSamples()
	cfg := DefaultConfig(2)
	cfg.Iterations = 50
	cfg.Seed = 1

	model := Fit(samples, cfg)
	require.NotEmpty(t, model.Trees)

	positiveScore := model.Predict([]float32{1, 0.9})
	negativeScore := model.Predict([]float32{0, 0.1})
	assert.Greater(t, positiveScore, negativeScore)
}

func TestEncodeDecodeRoundTripsPredictions(t *testing.T) {
	samples := makeSeparableSamples()
	cfg := DefaultConfig(2)
	cfg.Iterations = 20
	cfg.Seed = 2
	model := Fit(samples, cfg)

	blob, err := Encode(model)
	require.NoError(t, err)

	decoded, err := Decode(blob)
	require.NoError(t, err)

	want := model.Predict([]float32{1, 0.9})
	got := decoded.Predict([]float32{1, 0.9})
	assert.InDelta(t, want, got, 1e-6)
}

func TestFitWithEmptySamplesReturnsEmptyModel(t *testing.T) {
	model := Fit(nil, DefaultConfig(2))
	assert.Empty(t, model.Trees)
	assert.Equal(t, float32(0), model.Predict([]float32{1, 2}))
}
