package audiodecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeUnsupportedExtensionFallsBackAndFails(t *testing.T) {
	_, err := Decode("nonexistent.xyz", 0)
	require.Error(t, err)
}

func TestDecodeUnreliableContainerSkipsPrimary(t *testing.T) {
	// .wma is in the unreliable-container list, so Decode must never attempt
	// primaryDecode and must go straight to the (here, unconfigured) fallback.
	_, err := Decode("song.wma", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback failed")
}

func TestTruncateCapsToMaxSeconds(t *testing.T) {
	buf := &AudioBuffer{
		Samples:    make([]float32, 20), // 10 stereo frames
		SampleRate: 10,
		Channels:   2,
	}
	out := truncate(buf, 0.5) // 5 frames -> 10 samples
	assert.Equal(t, 10, len(out.Samples))
}

func TestTruncateNoopWhenUnderLimit(t *testing.T) {
	buf := &AudioBuffer{
		Samples:    make([]float32, 20),
		SampleRate: 10,
		Channels:   2,
	}
	out := truncate(buf, 100)
	assert.Equal(t, buf, out)
}

func TestScaleToFloat32Bounds(t *testing.T) {
	assert.InDelta(t, 1.0, float64(scaleToFloat32(formatS16, 32767)), 0.001)
	assert.InDelta(t, -1.0, float64(scaleToFloat32(formatS16, -32768)), 0.001)
	assert.InDelta(t, 0.0, float64(scaleToFloat32(formatU8, 128)), 0.01)
}
