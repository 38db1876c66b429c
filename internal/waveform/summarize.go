// Package waveform computes the Mixxx-style multiband colored waveform
// summary used by the host's library UI: four independently-filtered
// envelopes (low/mid/high/all), each downsampled to a mean+peak byte pair
// per visual column.
package waveform

import (
	"math"

	"github.com/coderdj/frkb-engine/internal/errors"
)

const (
	lowpassMaxHz        = 600.0
	highpassMinHz       = 4000.0
	summaryMaxSamples   = 3840.0
	defaultVisualRateHz = 441.0
)

// Compute derives the waveform summary at the default visual rate (441 Hz,
// scaled down automatically for very long tracks to cap output length).
func Compute(samples []float32, sampleRate uint32, channels uint8) (data Data, err error) {
	defer errors.Recover("waveform", &err)()

	if sampleRate == 0 || channels == 0 {
		return Data{}, errors.Newf("invalid sample rate or channel count").
			Component("waveform").Category(errors.CategoryInternal).Build()
	}
	frames := len(samples) / int(channels)

	visualRate := defaultVisualRateHz
	if float64(frames) > summaryMaxSamples/2 {
		visualRate = float64(sampleRate) * (summaryMaxSamples / 2) / float64(frames)
	}
	return computeWithSummaryRate(samples, sampleRate, channels, visualRate)
}

// ComputeWithRate derives the waveform at an explicit visual (summary) rate,
// without the automatic long-track scale-down Compute applies.
func ComputeWithRate(samples []float32, sampleRate uint32, channels uint8, visualRate float64) (data Data, err error) {
	defer errors.Recover("waveform", &err)()
	return computeWithSummaryRate(samples, sampleRate, channels, visualRate)
}

func computeWithSummaryRate(samples []float32, sampleRate uint32, channels uint8, visualRate float64) (Data, error) {
	if sampleRate == 0 || channels == 0 {
		return Data{}, errors.Newf("invalid sample rate or channel count").
			Component("waveform").Category(errors.CategoryInternal).Build()
	}
	fs := float64(sampleRate)
	frames := len(samples) / int(channels)

	analysisRate := math.Max(visualRate, defaultVisualRateHz)
	mainStride := strideFromRate(fs, analysisRate)
	summaryStride := strideFromRate(fs, visualRate)

	left, right := deinterleaveStereo(samples, channels, frames)

	nyquist := fs / 2
	lowCut := math.Min(lowpassMaxHz, nyquist*0.99)
	highCut := math.Min(highpassMinHz, nyquist*0.99)

	lowBi, lowGain := designLowpass(lowCut, fs)
	var lowArr [2]Biquad
	copy(lowArr[:], lowBi)

	highBi, highGain := designHighpass(highCut, fs)
	var highArr [2]Biquad
	copy(highArr[:], highBi)

	bandLo, bandHi := lowCut, highCut
	if bandHi <= bandLo {
		bandHi = bandLo + 1
	}
	bandBi, bandGain := designBandpass(bandLo, bandHi, fs)
	var bandArr [4]Biquad
	copy(bandArr[:], bandBi)

	lowFL, lowFR := filterLowHigh(left, right, lowArr, lowGain)
	midFL, midFR := filterBand(left, right, bandArr, bandGain)
	highFL, highFR := filterLowHigh(left, right, highArr, highGain)

	lowBand := downsampleBand(lowFL, lowFR, mainStride, summaryStride, false)
	midBand := downsampleBand(midFL, midFR, mainStride, summaryStride, false)
	highBand := downsampleBand(highFL, highFR, mainStride, summaryStride, true)
	allBand := downsampleBand(left, right, mainStride, summaryStride, false)

	return Data{
		Duration:   float64(frames) / fs,
		SampleRate: sampleRate,
		Step:       summaryStride,
		Low:        lowBand,
		Mid:        midBand,
		High:       highBand,
		All:        allBand,
	}, nil
}

func strideFromRate(fs, rate float64) float64 {
	if rate <= 0 {
		return 1
	}
	s := fs / rate
	if s < 1 {
		s = 1
	}
	return s
}

func deinterleaveStereo(samples []float32, channels uint8, frames int) (left, right []float64) {
	left = make([]float64, frames)
	right = make([]float64, frames)
	switch channels {
	case 1:
		for i := 0; i < frames; i++ {
			v := float64(samples[i])
			left[i] = v
			right[i] = v
		}
	case 2:
		for i := 0; i < frames; i++ {
			left[i] = float64(samples[2*i])
			right[i] = float64(samples[2*i+1])
		}
	default:
		n := int(channels)
		for i := 0; i < frames; i++ {
			var sum float64
			base := i * n
			for c := 0; c < n; c++ {
				sum += float64(samples[base+c])
			}
			mean := sum / float64(n)
			left[i] = mean
			right[i] = mean
		}
	}
	return left, right
}

func filterLowHigh(left, right []float64, biquads [2]Biquad, gain float64) (fl, fr []float64) {
	fl = make([]float64, len(left))
	fr = make([]float64, len(right))
	var stL, stR lowHighState
	for i := range left {
		fl[i] = processLowHighSample(biquads, gain, &stL, left[i])
		fr[i] = processLowHighSample(biquads, gain, &stR, right[i])
	}
	return fl, fr
}

func filterBand(left, right []float64, biquads [4]Biquad, gain float64) (fl, fr []float64) {
	fl = make([]float64, len(left))
	fr = make([]float64, len(right))
	var stL, stR bandState
	for i := range left {
		fl[i] = processBandSample(biquads, gain, &stL, left[i])
		fr[i] = processBandSample(biquads, gain, &stR, right[i])
	}
	return fl, fr
}

// downsampleBand implements spec 4.C's two-stride accumulation: a running
// per-band peak is tracked every frame; every mainStride frames the peak is
// committed into mean/max accumulators; every summaryStride frames those
// accumulators are emitted as one output byte pair and reset.
func downsampleBand(left, right []float64, mainStride, summaryStride float64, highBand bool) Band {
	totalFrames := len(left)
	expectedLen := int(math.Floor(float64(totalFrames)/summaryStride)) + 1

	outLeft := make([]byte, 0, expectedLen)
	outRight := make([]byte, 0, expectedLen)
	outPeakLeft := make([]byte, 0, expectedLen)
	outPeakRight := make([]byte, 0, expectedLen)

	position := 0.0
	nextMainStore := mainStride
	nextSummaryStore := summaryStride
	var peakL, peakR float64
	var avgL, avgR, avgDivisor float64
	var peakMaxL, peakMaxR float64

	for i := 0; i < totalFrames; i++ {
		l, r := math.Abs(left[i]), math.Abs(right[i])
		if l > peakL {
			peakL = l
		}
		if r > peakR {
			peakR = r
		}

		position += 1.0

		if position >= nextMainStore {
			if peakL > peakMaxL {
				peakMaxL = peakL
			}
			if peakR > peakMaxR {
				peakMaxR = peakR
			}
			avgL += peakL
			avgR += peakR
			avgDivisor += 1.0
			peakL, peakR = 0, 0
			nextMainStore += mainStride
		}

		if position >= nextSummaryStore {
			var valueL, valueR, peakValueL, peakValueR float64
			if avgDivisor > 0 {
				valueL = avgL / avgDivisor
				valueR = avgR / avgDivisor
				peakValueL = peakMaxL
				peakValueR = peakMaxR
			} else {
				valueL, valueR = peakL, peakR
				peakValueL, peakValueR = peakL, peakR
			}

			outLeft = append(outLeft, quantize(valueL, highBand))
			outRight = append(outRight, quantize(valueR, highBand))
			outPeakLeft = append(outPeakLeft, quantize(peakValueL, highBand))
			outPeakRight = append(outPeakRight, quantize(peakValueR, highBand))

			avgL, avgR, avgDivisor = 0, 0, 0
			peakMaxL, peakMaxR = 0, 0
			nextSummaryStore += summaryStride
		}
	}

	for len(outLeft) < expectedLen {
		outLeft = append(outLeft, 0)
		outRight = append(outRight, 0)
		outPeakLeft = append(outPeakLeft, 0)
		outPeakRight = append(outPeakRight, 0)
	}
	outLeft = outLeft[:expectedLen]
	outRight = outRight[:expectedLen]
	outPeakLeft = outPeakLeft[:expectedLen]
	outPeakRight = outPeakRight[:expectedLen]

	return Band{Left: outLeft, Right: outRight, PeakLeft: outPeakLeft, PeakRight: outPeakRight}
}

// quantize implements spec 4.C's byte quantization: clamp to [0,1], apply the
// high-band x^0.632 nonlinearity, scale to [0,255] and round.
func quantize(x float64, highBand bool) byte {
	if math.IsNaN(x) || x <= 0 {
		return 0
	}
	v := x
	if v > 1 {
		v = 1
	}
	if highBand {
		v = math.Pow(v, 0.632)
	}
	scaled := math.Round(v * 255)
	if scaled > 255 {
		scaled = 255
	}
	if scaled < 0 {
		scaled = 0
	}
	return byte(scaled)
}
