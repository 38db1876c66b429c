package openl3

import (
	ort "github.com/yalue/onnxruntime_go"

	"github.com/coderdj/frkb-engine/internal/errors"
)

// packBatchInput lays out batch spectrograms into the model's declared
// axis order, leaving any size-1 channel axis at index 0.
func packBatchInput(layout inputLayout, specs [][]float32, frames, mels int) (*ort.Tensor[float32], error) {
	batch := len(specs)
	if batch == 0 {
		return nil, errors.Newf("empty batch").Component("openl3").Category(errors.CategoryInternal).Build()
	}

	dims := make([]int64, layout.rank)
	for i := range dims {
		dims[i] = 1
	}
	dims[layout.batchAxis] = int64(batch)
	dims[layout.framesAxis] = int64(frames)
	dims[layout.melAxis] = int64(mels)

	strides := computeStrides(dims)
	total := int64(1)
	for _, d := range dims {
		total *= d
	}
	data := make([]float32, total)

	for b := 0; b < batch; b++ {
		spec := specs[b]
		for t := 0; t < frames; t++ {
			for m := 0; m < mels; m++ {
				idx := int64(b)*strides[layout.batchAxis] + int64(t)*strides[layout.framesAxis] + int64(m)*strides[layout.melAxis]
				data[idx] = spec[t*mels+m]
			}
		}
	}

	shape := ort.NewShape(dims...)
	return ort.NewTensor(shape, data)
}

func computeStrides(dims []int64) []int64 {
	strides := make([]int64, len(dims))
	acc := int64(1)
	for i := len(dims) - 1; i >= 0; i-- {
		strides[i] = acc
		d := dims[i]
		if d < 1 {
			d = 1
		}
		acc *= d
	}
	return strides
}

// extractBatchEmbeddings splits a flat [batch*dim] (or [dim*batch], folded
// to whichever matches) output tensor into per-window embeddings.
func extractBatchEmbeddings(flat []float32, batch, dim int) ([][]float32, error) {
	if len(flat) != batch*dim {
		return nil, errors.Newf("OpenL3 output size %d does not match batch=%d dim=%d", len(flat), batch, dim).
			Component("openl3").Category(errors.CategoryInternal).Build()
	}
	out := make([][]float32, batch)
	for b := 0; b < batch; b++ {
		out[b] = flat[b*dim : (b+1)*dim]
	}
	return out, nil
}
