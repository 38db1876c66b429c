//go:build qmdsp

package qmdsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// These tests require the native qm-dsp shim library to be linked and are
// gated behind the qmdsp build tag so the rest of the module builds and
// tests without it present.

func TestBpmDetectorLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	det, err := NewBpmDetector(44100)
	require.NoError(t, err)
	defer det.Close()

	silence := make([]float32, 4096*2)
	require.NoError(t, det.Process(silence, 4096, 2))
	_ = det.Finalize()
}

func TestKeyDetectorRejectsMonoInput(t *testing.T) {
	det, err := NewKeyDetector(44100)
	require.NoError(t, err)
	defer det.Close()

	mono := make([]float32, 10)
	err = det.Process(mono, 10, 1)
	assert.Error(t, err)
}

func TestAnalyzeBPMRejectsEmptyInput(t *testing.T) {
	_, err := AnalyzeBPM(nil, 44100, 2, false)
	assert.Error(t, err)
}
