package openl3

import (
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/coderdj/frkb-engine/internal/errors"
)

// inputLayout records which axis of the model's input tensor carries batch,
// time frames, mel bins, and (optionally) a size-1 channel axis, auto-
// detected from the model's declared input shape.
type inputLayout struct {
	rank        int
	batchAxis   int
	framesAxis  int
	melAxis     int
	channelAxis int // -1 if none
}

type runtime struct {
	session      *ort.DynamicAdvancedSession
	inputName    string
	outputName   string
	layout       inputLayout
	embeddingDim int
	frames       int
	melFilters   [][]melWeight
	window       []float32
	fft          *fourier.FFT
}

var (
	runtimeMu    sync.Mutex
	runtimeCache struct {
		path string
		rt   *runtime
	}
)

func getRuntime(modelPath string) (*runtime, error) {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if runtimeCache.rt != nil && runtimeCache.path == modelPath {
		return runtimeCache.rt, nil
	}

	rt, err := loadRuntime(modelPath)
	if err != nil {
		return nil, err
	}
	runtimeCache.path = modelPath
	runtimeCache.rt = rt
	return rt, nil
}

func loadRuntime(modelPath string) (*runtime, error) {
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, errors.New(err).Component("openl3").Category(errors.CategoryRuntimeUnavailable).Build()
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, errors.New(err).Component("openl3").Category(errors.CategoryModelLoad).
			Context("path", modelPath).Build()
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, errors.Newf("OpenL3 model declares no inputs/outputs").
			Component("openl3").Category(errors.CategoryModelLoad).Context("path", modelPath).Build()
	}

	frames := frameCount1s(targetSampleRate)
	layout := inferInputLayout(inputs[0].Dimensions, frames)

	session, err := ort.NewDynamicAdvancedSession(modelPath, []string{inputs[0].Name}, []string{outputs[0].Name}, nil)
	if err != nil {
		return nil, errors.New(err).Component("openl3").Category(errors.CategoryModelLoad).
			Context("path", modelPath).Build()
	}

	return &runtime{
		session:    session,
		inputName:  inputs[0].Name,
		outputName: outputs[0].Name,
		layout:     layout,
		frames:     frames,
		melFilters: buildMelFilterBank(targetSampleRate, nFFT, nMels),
		window:     buildHannWindow(nFFT),
		fft:        fourier.NewFFT(nFFT),
	}, nil
}

// inferInputLayout matches the model's declared shape against the known
// mel-bin count and per-window frame count to locate each semantic axis,
// falling back to NHWC/NTF conventions when the shape is fully dynamic.
func inferInputLayout(dims []int64, frames int) inputLayout {
	rank := len(dims)
	if rank == 4 {
		melAxis, framesAxis := -1, -1
		var ones []int
		for i, d := range dims {
			switch int(d) {
			case nMels:
				melAxis = i
			case frames:
				framesAxis = i
			case 1:
				ones = append(ones, i)
			}
		}
		if melAxis == -1 {
			melAxis = 2
		}
		if framesAxis == -1 {
			framesAxis = 1
		}
		channelAxis := 3
		for _, o := range ones {
			if o != 0 {
				channelAxis = o
				break
			}
		}
		return inputLayout{rank: 4, batchAxis: 0, framesAxis: framesAxis, melAxis: melAxis, channelAxis: channelAxis}
	}
	if rank == 3 {
		melAxis := 2
		for i, d := range dims {
			if int(d) == nMels {
				melAxis = i
			}
		}
		framesAxis := 1
		if melAxis == 1 {
			framesAxis = 2
		}
		return inputLayout{rank: 3, batchAxis: 0, framesAxis: framesAxis, melAxis: melAxis, channelAxis: -1}
	}
	// Fully dynamic or unrecognized: default to NHWC.
	return inputLayout{rank: 4, batchAxis: 0, framesAxis: 1, melAxis: 2, channelAxis: 3}
}
