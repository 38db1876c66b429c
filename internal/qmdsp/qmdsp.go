// Package qmdsp wraps the Queen Mary DSP library's streaming BPM and key
// detectors behind cgo. Each detector owns an opaque handle acquired via an
// external create(sampleRate) call and released unconditionally on scope
// exit; processing requires exactly 2-channel interleaved float32, fed in
// chunks of at most framesPerChunk frames.
package qmdsp

/*
#cgo pkg-config: qm-dsp
#include <stdlib.h>
#include "qmdsp_shim.h"
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/coderdj/frkb-engine/internal/analysisutil"
	"github.com/coderdj/frkb-engine/internal/errors"
)

const framesPerChunk = analysisutil.FramesPerChunk

// BpmDetector streams interleaved stereo float32 through the QM-DSP tempo
// tracker and reports the finalized BPM.
type BpmDetector struct {
	handle *C.QmBpmDetectorHandle
	once   sync.Once
}

// NewBpmDetector acquires the native handle for sampleRate.
func NewBpmDetector(sampleRate uint32) (*BpmDetector, error) {
	h := C.qm_bpm_create(C.double(sampleRate))
	if h == nil {
		return nil, errors.Newf("qm_bpm_create failed").
			Component("qmdsp").Category(errors.CategoryRuntimeUnavailable).Build()
	}
	return &BpmDetector{handle: h}, nil
}

// Process feeds one chunk of ≤framesPerChunk interleaved stereo frames. Any
// non-success return from the native call is fatal for the track.
func (d *BpmDetector) Process(interleaved []float32, frames int, channels uint8) error {
	if channels != 2 {
		return errors.Newf("qm_bpm_process requires 2 channels, got %d", channels).
			Component("qmdsp").Category(errors.CategoryInternal).Build()
	}
	if frames == 0 {
		return nil
	}
	ok := C.qm_bpm_process(d.handle, (*C.float)(unsafe.Pointer(&interleaved[0])), C.size_t(frames), C.int(channels))
	if ok == 0 {
		return errors.Newf("qm_bpm_process returned failure").
			Component("qmdsp").Category(errors.CategoryInternal).Build()
	}
	return nil
}

// Finalize completes tracking and returns the detected BPM.
func (d *BpmDetector) Finalize() float64 {
	return float64(C.qm_bpm_finalize(d.handle))
}

// Close releases the native handle. Safe to call more than once.
func (d *BpmDetector) Close() {
	d.once.Do(func() {
		if d.handle != nil {
			C.qm_bpm_destroy(d.handle)
			d.handle = nil
		}
	})
}

// KeyDetector streams interleaved stereo float32 through the QM-DSP key
// detector and reports the finalized key ID.
type KeyDetector struct {
	handle *C.QmKeyDetectorHandle
	once   sync.Once
}

// NewKeyDetector acquires the native handle for sampleRate.
func NewKeyDetector(sampleRate uint32) (*KeyDetector, error) {
	h := C.qm_key_create(C.double(sampleRate))
	if h == nil {
		return nil, errors.Newf("qm_key_create failed").
			Component("qmdsp").Category(errors.CategoryRuntimeUnavailable).Build()
	}
	return &KeyDetector{handle: h}, nil
}

// Process feeds one chunk of ≤framesPerChunk interleaved stereo frames.
func (d *KeyDetector) Process(interleaved []float32, frames int, channels uint8) error {
	if channels != 2 {
		return errors.Newf("qm_key_process requires 2 channels, got %d", channels).
			Component("qmdsp").Category(errors.CategoryInternal).Build()
	}
	if frames == 0 {
		return nil
	}
	ok := C.qm_key_process(d.handle, (*C.float)(unsafe.Pointer(&interleaved[0])), C.size_t(frames), C.int(channels))
	if ok == 0 {
		return errors.Newf("qm_key_process returned failure").
			Component("qmdsp").Category(errors.CategoryInternal).Build()
	}
	return nil
}

// Finalize completes key tracking and returns the key ID.
func (d *KeyDetector) Finalize() int {
	return int(C.qm_key_finalize(d.handle))
}

// Close releases the native handle. Safe to call more than once.
func (d *KeyDetector) Close() {
	d.once.Do(func() {
		if d.handle != nil {
			C.qm_key_destroy(d.handle)
			d.handle = nil
		}
	})
}

// AnalyzeBPM drives a full BPM pass over pcm: optionally truncates to the
// fast-analysis window, down/up-mixes to stereo, feeds framesPerChunk-sized
// chunks, and finalizes.
func AnalyzeBPM(pcm []float32, sampleRate uint32, channels uint8, fast bool) (bpm float64, err error) {
	defer errors.Recover("qmdsp.AnalyzeBPM", &err)()

	if sampleRate == 0 || channels == 0 || len(pcm) == 0 {
		return 0, errors.Newf("invalid pcm input").Component("qmdsp").Category(errors.CategoryInternal).Build()
	}

	totalFrames := len(pcm) / int(channels)
	framesToProcess := analysisutil.CalcFramesToProcess(totalFrames, sampleRate, fast)
	needed := framesToProcess * int(channels)
	if needed > len(pcm) {
		needed = len(pcm)
	}
	stereo := analysisutil.ToStereo(pcm[:needed], int(channels), framesToProcess)

	det, err := NewBpmDetector(sampleRate)
	if err != nil {
		return 0, err
	}
	defer det.Close()

	for offset := 0; offset < framesToProcess; offset += framesPerChunk {
		n := framesPerChunk
		if offset+n > framesToProcess {
			n = framesToProcess - offset
		}
		chunk := stereo[offset*2 : (offset+n)*2]
		if procErr := det.Process(chunk, n, 2); procErr != nil {
			return 0, procErr
		}
	}

	return det.Finalize(), nil
}

// AnalyzeKeyID drives a full key-detection pass over pcm using the same
// truncate/down-mix/chunk/finalize sequence as AnalyzeBPM.
func AnalyzeKeyID(pcm []float32, sampleRate uint32, channels uint8, fast bool) (keyID int, err error) {
	defer errors.Recover("qmdsp.AnalyzeKeyID", &err)()

	if sampleRate == 0 || channels == 0 || len(pcm) == 0 {
		return 0, errors.Newf("invalid pcm input").Component("qmdsp").Category(errors.CategoryInternal).Build()
	}

	totalFrames := len(pcm) / int(channels)
	framesToProcess := analysisutil.CalcFramesToProcess(totalFrames, sampleRate, fast)
	needed := framesToProcess * int(channels)
	if needed > len(pcm) {
		needed = len(pcm)
	}
	stereo := analysisutil.ToStereo(pcm[:needed], int(channels), framesToProcess)

	det, err := NewKeyDetector(sampleRate)
	if err != nil {
		return 0, err
	}
	defer det.Close()

	for offset := 0; offset < framesToProcess; offset += framesPerChunk {
		n := framesPerChunk
		if offset+n > framesToProcess {
			n = framesToProcess - offset
		}
		chunk := stereo[offset*2 : (offset+n)*2]
		if procErr := det.Process(chunk, n, 2); procErr != nil {
			return 0, procErr
		}
	}

	return det.Finalize(), nil
}
