package openl3

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	nFFT  = 512
	hop   = 242
	nMels = 256
)

// reflectPad mirrors input by pad samples on each side without repeating
// the boundary sample, matching the reflect-boundary convention used
// throughout this package's resampling and windowing.
func reflectPad(input []float32, pad int) []float32 {
	if pad == 0 {
		return append([]float32(nil), input...)
	}
	n := len(input)
	if n == 0 {
		return make([]float32, pad*2)
	}
	out := make([]float32, 0, n+2*pad)
	for i := 0; i < pad; i++ {
		src := pad - i
		if src > n-1 {
			src = n - 1
		}
		out = append(out, input[src])
	}
	out = append(out, input...)
	for i := 0; i < pad; i++ {
		src := n - 2 - i
		if src < 0 {
			src = 0
		}
		if src > n-1 {
			src = n - 1
		}
		out = append(out, input[src])
	}
	return out
}

// frameCount1s returns the number of STFT frames produced for a 1s window
// at the target sample rate, given reflect padding of nFFT/2 each side.
func frameCount1s(targetSampleRate int) int {
	pad := nFFT / 2
	return (targetSampleRate+2*pad-nFFT)/hop + 1
}

// logMelSpectrogram computes the log-mel spectrogram of a 1s window:
// reflect-pad by nFFT/2, Hann-window and real-FFT each hop-spaced frame,
// project the power spectrum through the mel filterbank, and take
// ln(max(0,x)+1e-10). Returns a flat [frames*nMels] row-major array.
func logMelSpectrogram(segment []float32, window []float32, fft *fourier.FFT, melFilters [][]melWeight) []float32 {
	pad := nFFT / 2
	padded := reflectPad(segment, pad)
	frames := (len(segment) + 2*pad - nFFT) / hop
	frames++

	out := make([]float32, frames*nMels)
	frame := make([]float64, nFFT)
	nBins := nFFT/2 + 1
	power := make([]float64, nBins)

	for t := 0; t < frames; t++ {
		start := t * hop
		for i := 0; i < nFFT; i++ {
			frame[i] = float64(padded[start+i]) * float64(window[i])
		}
		coeffs := fft.Coefficients(nil, frame)
		for k := 0; k < nBins; k++ {
			c := coeffs[k]
			power[k] = real(c)*real(c) + imag(c)*imag(c)
		}
		for m := 0; m < nMels; m++ {
			var sum float64
			for _, w := range melFilters[m] {
				sum += power[w.bin] * float64(w.weight)
			}
			if sum < 0 {
				sum = 0
			}
			out[t*nMels+m] = float32(math.Log(sum + 1e-10))
		}
	}
	return out
}
