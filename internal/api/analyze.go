package api

import (
	"context"

	"github.com/coderdj/frkb-engine/internal/audiodecode"
	"github.com/coderdj/frkb-engine/internal/essentia"
	"github.com/coderdj/frkb-engine/internal/openl3"
	"github.com/coderdj/frkb-engine/internal/qmdsp"
)

// AnalyzeBPM decodes path and runs the QM-DSP tempo tracker over it. fast
// restricts analysis to the shorter fast-analysis window.
func AnalyzeBPM(ctx context.Context, path string, fast bool) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	buf, err := audiodecode.Decode(path, 0)
	if err != nil {
		return 0, err
	}
	return qmdsp.AnalyzeBPM(buf.Samples, buf.SampleRate, buf.Channels, fast)
}

// AnalyzeKeyID decodes path and runs the QM-DSP key detector over it,
// returning the detector's opaque key id (label mapping is Essentia's
// concern, not this one).
func AnalyzeKeyID(ctx context.Context, path string, fast bool) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	buf, err := audiodecode.Decode(path, 0)
	if err != nil {
		return 0, err
	}
	return qmdsp.AnalyzeKeyID(buf.Samples, buf.SampleRate, buf.Channels, fast)
}

// ExtractEssentiaBpmKey runs the lightweight Essentia profile (BPM, key,
// HPCP, RMS mean, duration).
func ExtractEssentiaBpmKey(ctx context.Context, path string, maxSeconds float64) (essentia.Features, error) {
	if err := ctx.Err(); err != nil {
		return essentia.Features{}, err
	}
	return essentia.ExtractBpmKey(path, maxSeconds)
}

// ExtractEssentiaFull runs the full Essentia profile, additionally
// populating the dense fixed-order classifier/low-level feature vector.
func ExtractEssentiaFull(ctx context.Context, path string, maxSeconds float64) (essentia.Features, error) {
	if err := ctx.Err(); err != nil {
		return essentia.Features{}, err
	}
	return essentia.ExtractFull(path, maxSeconds)
}

// ExtractOpenL3Embedding decodes path and runs the cached OpenL3 model over
// up to maxWindows high-energy 1s windows, aggregating by RMS weight.
func ExtractOpenL3Embedding(ctx context.Context, path string, maxSeconds float64, maxWindows int) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return openl3.ExtractEmbedding(path, maxSeconds, maxWindows)
}
