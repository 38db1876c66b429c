package api

import (
	"context"

	"github.com/coderdj/frkb-engine/internal/audiodecode"
	"github.com/coderdj/frkb-engine/internal/audiohash"
	"github.com/coderdj/frkb-engine/internal/waveform"
)

// DecodeAudioFile decodes path (primary container decoder, falling back to
// the external transcoder on failure), truncating to maxSeconds when > 0.
func DecodeAudioFile(ctx context.Context, path string, maxSeconds float64) (*audiodecode.AudioBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return audiodecode.Decode(path, maxSeconds)
}

// ComputeWaveform decodes path and summarizes it into the multiband
// waveform visualization data, downsampled to visualRate output points per
// second of audio.
func ComputeWaveform(ctx context.Context, path string, visualRate float64) (waveform.Data, error) {
	if err := ctx.Err(); err != nil {
		return waveform.Data{}, err
	}
	buf, err := audiodecode.Decode(path, 0)
	if err != nil {
		return waveform.Data{}, err
	}
	if visualRate <= 0 {
		return waveform.Compute(buf.Samples, buf.SampleRate, buf.Channels)
	}
	return waveform.ComputeWithRate(buf.Samples, buf.SampleRate, buf.Channels, visualRate)
}

// PCMHash returns the content hash of path's decoded PCM, stable across
// lossless container conversions.
func PCMHash(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return audiohash.PCMHash(audiodecode.Decode, path)
}

// WholeFileHash returns the raw byte-level SHA-256 of path.
func WholeFileHash(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return audiohash.WholeFileHash(path)
}

// BatchPCMHash fans PCMHash out across a work-stealing pool, one result per
// input path in input order; per-file failures are captured in the result,
// never abort the batch.
func BatchPCMHash(ctx context.Context, paths []string, onProgress audiohash.ProgressFunc) []audiohash.BatchResult {
	return audiohash.BatchPCMHash(ctx, audiodecode.Decode, paths, onProgress)
}

// BatchWholeFileHash is the whole-file analog of BatchPCMHash.
func BatchWholeFileHash(ctx context.Context, paths []string, onProgress audiohash.ProgressFunc) []audiohash.BatchResult {
	return audiohash.BatchWholeFileHash(ctx, paths, onProgress)
}
