// Package openl3 extracts a fixed-dimension neural audio embedding per
// file using a cached ONNX OpenL3 model, per spec 4.G.
package openl3

import (
	ort "github.com/yalue/onnxruntime_go"

	"github.com/coderdj/frkb-engine/internal/audiodecode"
	"github.com/coderdj/frkb-engine/internal/conf"
	"github.com/coderdj/frkb-engine/internal/errors"
)

// ExtractEmbedding decodes path (capped to maxSeconds, or defaultMaxSeconds
// when ≤0), downmixes to mono, resamples to 48kHz, selects up to
// maxWindows (defaultMaxWindows when ≤0) 1s windows from the shared high-energy segment
// policy, runs them in batches through the cached OpenL3 model, and
// aggregates per-window embeddings by RMS weight.
func ExtractEmbedding(path string, maxSeconds float64, maxWindows int) (emb []float32, err error) {
	defer errors.Recover("openl3", &err)()

	modelPath := conf.Load().OpenL3ModelPath
	if modelPath == "" {
		return nil, errors.Newf("FRKB_OPENL3_MODEL_PATH is not set").
			Component("openl3").Category(errors.CategoryRuntimeUnavailable).Build()
	}

	rt, err := getRuntime(modelPath)
	if err != nil {
		return nil, err
	}

	if maxSeconds <= 0 {
		maxSeconds = defaultMaxSeconds
	}
	if maxWindows <= 0 {
		maxWindows = defaultMaxWindows
	}

	mono, sr, err := decodeMonoLimited(path, maxSeconds)
	if err != nil {
		return nil, err
	}
	if len(mono) == 0 {
		return nil, errors.Newf("empty audio").Component("openl3").Category(errors.CategoryDecode).Build()
	}
	if sr != targetSampleRate {
		mono = resampleLinear(mono, sr, targetSampleRate)
	}

	windowLen := roundPositive(windowSeconds * targetSampleRate)
	hopLen := roundPositive(hopSeconds * targetSampleRate)

	segments := selectFeatureSegments(mono, targetSampleRate)
	starts := buildWindowStartsForSegments(len(mono), windowLen, hopLen, maxWindows, segments)

	acc := make([]float32, rt.embeddingDimOrDetect())
	var weightSum float32

	zeroSpec := make([]float32, rt.frames*nMels)

	for i := 0; i < len(starts); i += defaultBatch {
		end := i + defaultBatch
		if end > len(starts) {
			end = len(starts)
		}
		chunk := starts[i:end]

		specs := make([][]float32, 0, defaultBatch)
		weights := make([]float32, 0, defaultBatch)
		for _, start := range chunk {
			segment := sliceReflect(mono, start, windowLen)
			weights = append(weights, rmsOf(segment))
			specs = append(specs, logMelSpectrogram(segment, rt.window, rt.fft, rt.melFilters))
		}
		for len(specs) < defaultBatch {
			specs = append(specs, zeroSpec)
			weights = append(weights, 0)
		}

		allSilent := true
		for _, w := range weights {
			if w > 0 {
				allSilent = false
				break
			}
		}
		if allSilent {
			continue
		}

		embeddings, runErr := runBatch(rt, specs)
		if runErr != nil {
			return nil, runErr
		}

		for j, e := range embeddings {
			w := weights[j]
			if w <= 0 {
				continue
			}
			for k := range acc {
				if k < len(e) {
					acc[k] += e[k] * w
				}
			}
			weightSum += w
		}
	}

	if weightSum <= 0 {
		return nil, errors.Newf("silent or no valid window").
			Component("openl3").Category(errors.CategoryDecode).Context("path", path).Build()
	}
	for i := range acc {
		acc[i] /= weightSum
	}
	return acc, nil
}

func (rt *runtime) embeddingDimOrDetect() int {
	if rt.embeddingDim > 0 {
		return rt.embeddingDim
	}
	return 512 // OpenL3's standard embedding dimension; overwritten after the first real run.
}

func runBatch(rt *runtime, specs [][]float32) ([][]float32, error) {
	input, err := packBatchInput(rt.layout, specs, rt.frames, nMels)
	if err != nil {
		return nil, err
	}
	defer input.Destroy()

	outputs, err := rt.session.Run([]ort.Value{input}, []ort.Value{nil})
	if err != nil {
		return nil, errors.New(err).Component("openl3").Category(errors.CategoryInternal).Build()
	}
	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, errors.Newf("OpenL3 output was not a float32 tensor").
			Component("openl3").Category(errors.CategoryInternal).Build()
	}
	defer out.Destroy()

	flat := out.GetData()
	dim := len(flat) / len(specs)
	if rt.embeddingDim == 0 {
		rt.embeddingDim = dim
	}
	return extractBatchEmbeddings(flat, len(specs), dim)
}

// decodeMonoLimited decodes path capped to maxSeconds and downmixes to mono
// by arithmetic channel mean.
func decodeMonoLimited(path string, maxSeconds float64) ([]float32, uint32, error) {
	buf, err := audiodecode.Decode(path, maxSeconds)
	if err != nil {
		return nil, 0, err
	}
	if buf.Channels <= 1 {
		return buf.Samples, buf.SampleRate, nil
	}
	frames := buf.Frames()
	mono := make([]float32, frames)
	ch := int(buf.Channels)
	for i := 0; i < frames; i++ {
		var sum float32
		base := i * ch
		for c := 0; c < ch; c++ {
			sum += buf.Samples[base+c]
		}
		mono[i] = sum / float32(ch)
	}
	return mono, buf.SampleRate, nil
}
