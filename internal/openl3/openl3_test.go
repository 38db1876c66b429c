package openl3

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResampleLinearNoopWhenRatesMatch(t *testing.T) {
	in := []float32{1, 2, 3}
	out := resampleLinear(in, 48000, 48000)
	assert.Equal(t, in, out)
}

func TestBuildWindowStartsSubsamplesWhenOverflowing(t *testing.T) {
	starts := buildWindowStarts(1000, 10, 5, 0)
	assert.Len(t, starts, 5)
	assert.Equal(t, 0, starts[0])
}

func TestSelectFeatureSegmentsShortSignalReturnsWholeSignal(t *testing.T) {
	signal := make([]float32, 1000) // well under 12s at any realistic rate
	segs := selectFeatureSegments(signal, 48000)
	assert.Len(t, segs, 1)
	assert.Equal(t, 0, segs[0].start)
	assert.Equal(t, len(signal), segs[0].end)
}

func TestMelFilterBankHasExpectedBandCount(t *testing.T) {
	filters := buildMelFilterBank(48000, nFFT, nMels)
	assert.Len(t, filters, nMels)
	for _, f := range filters {
		for _, w := range f {
			assert.GreaterOrEqual(t, w.bin, 0)
			assert.LessOrEqual(t, w.bin, nFFT/2)
		}
	}
}

func TestFrameCount1sMatchesSpecFormula(t *testing.T) {
	frames := frameCount1s(targetSampleRate)
	assert.Greater(t, frames, 0)
}

func TestSampleReflectHandlesOutOfBoundsIndices(t *testing.T) {
	signal := []float32{1, 2, 3, 4}
	assert.Equal(t, signal[0], sampleReflect(signal, 0))
	// Negative and beyond-end indices must not panic and must stay in range.
	_ = sampleReflect(signal, -5)
	_ = sampleReflect(signal, 100)
}
