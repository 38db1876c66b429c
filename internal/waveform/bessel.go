// Bessel filter design, translated from the Mixxx-derived analog-prototype ->
// bilinear-transform pipeline in the engine's original mixxx_waveform source.
// Go's native complex128 replaces the hand-rolled complex-number helpers the
// original needed; the resulting digital filter (pole/zero placement, gain
// normalization, direct-form-II state layout) is the same design.
package waveform

import "math"

// Biquad is one second-order section in direct-form-II transposed-free form:
// y[n] = b0*w[n] + b1*w[n-1] + b2*w[n-2], w[n] = x[n] - a1*w[n-1] - a2*w[n-2].
type Biquad struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// besselPrototypePoles returns the 4th-order Bessel prototype's two complex
// conjugate pole pairs, normalized for a -3dB cutoff at 1 rad/s.
func besselPrototypePoles() [4]complex128 {
	p1 := complex(-0.99520876435, 1.25710573945)
	p2 := complex(-1.37006783055, 0.410249717494)
	return [4]complex128{p1, cmplxConj(p1), p2, cmplxConj(p2)}
}

func cmplxConj(c complex128) complex128 {
	return complex(real(c), -imag(c))
}

// prewarp converts a digital cutoff frequency (Hz) at sample rate fs into the
// analog angular frequency the bilinear transform z=(2fs+s)/(2fs-s) expects.
func prewarp(fc, fs float64) float64 {
	return 2 * fs * math.Tan(math.Pi*fc/fs)
}

func bilinear(s complex128, fs float64) complex128 {
	twoFs := complex(2*fs, 0)
	return (twoFs + s) / (twoFs - s)
}

// pairToBiquad turns a z-domain conjugate pole pair and a numerator shape
// (zeros at z=+1, z=-1, or one of each) into a biquad with unit leading
// coefficients; the design functions below normalize the cascade's gain.
func pairToBiquad(zp complex128, zeroAt1, zeroAtNeg1 bool) Biquad {
	a1 := -2 * real(zp)
	a2 := real(zp)*real(zp) + imag(zp)*imag(zp)

	var b0, b1, b2 float64
	switch {
	case zeroAt1 && zeroAtNeg1:
		// (z-1)(z+1) = z^2 - 1
		b0, b1, b2 = 1, 0, -1
	case zeroAtNeg1:
		// (z+1)^2 = z^2 + 2z + 1
		b0, b1, b2 = 1, 2, 1
	default:
		// (z-1)^2 = z^2 - 2z + 1
		b0, b1, b2 = 1, -2, 1
	}
	return Biquad{B0: b0, B1: b1, B2: b2, A1: a1, A2: a2}
}

// evalBiquad evaluates one section's transfer function at z on the unit circle.
func evalBiquad(b Biquad, z complex128) complex128 {
	zInv := 1 / z
	num := complex(b.B0, 0) + complex(b.B1, 0)*zInv + complex(b.B2, 0)*zInv*zInv
	den := complex(1, 0) + complex(b.A1, 0)*zInv + complex(b.A2, 0)*zInv*zInv
	return num / den
}

func evalCascade(biquads []Biquad, z complex128) complex128 {
	acc := complex(1, 0)
	for _, b := range biquads {
		acc *= evalBiquad(b, z)
	}
	return acc
}

func cascadeMagnitudeAtHz(biquads []Biquad, freqHz, fs float64) float64 {
	theta := 2 * math.Pi * freqHz / fs
	z := complex(math.Cos(theta), math.Sin(theta))
	return cmplxAbs(evalCascade(biquads, z))
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// designLowpass returns a unity-DC-gain cascade of 2 biquads for a lowpass at fc.
func designLowpass(fc, fs float64) ([]Biquad, float64) {
	w0 := prewarp(fc, fs)
	protos := besselPrototypePoles()
	biquads := make([]Biquad, 0, 2)
	for i := 0; i < len(protos); i += 2 {
		sPole := complex(w0, 0) * protos[i]
		zPole := bilinear(sPole, fs)
		biquads = append(biquads, pairToBiquad(zPole, false, true))
	}
	gain := 1.0 / cascadeMagnitudeAtHz(biquads, 0, fs)
	return biquads, gain
}

// designHighpass returns a unity-Nyquist-gain cascade of 2 biquads for a highpass at fc.
func designHighpass(fc, fs float64) ([]Biquad, float64) {
	w0 := prewarp(fc, fs)
	protos := besselPrototypePoles()
	biquads := make([]Biquad, 0, 2)
	for i := 0; i < len(protos); i += 2 {
		sPole := complex(w0, 0) / protos[i]
		zPole := bilinear(sPole, fs)
		biquads = append(biquads, pairToBiquad(zPole, true, false))
	}
	gain := 1.0 / cascadeMagnitudeAtHz(biquads, fs/2, fs)
	return biquads, gain
}

// designBandpass returns a unity-peak-gain cascade of 4 biquads passing [fLo, fHi].
func designBandpass(fLo, fHi, fs float64) ([]Biquad, float64) {
	wLo := prewarp(fLo, fs)
	wHi := prewarp(fHi, fs)
	w0 := math.Sqrt(wLo * wHi)
	bw := wHi - wLo

	protos := besselPrototypePoles()
	biquads := make([]Biquad, 0, 4)
	for i := 0; i < len(protos); i += 2 {
		p := protos[i]
		bwP := complex(bw, 0) * p
		disc := cmplxSqrt(bwP*bwP - complex(4*w0*w0, 0))
		s1 := (bwP + disc) / 2
		s2 := (bwP - disc) / 2
		biquads = append(biquads, pairToBiquad(bilinear(s1, fs), true, true))
		biquads = append(biquads, pairToBiquad(bilinear(s2, fs), true, true))
	}

	peakHz := searchPeak(biquads, fLo, fHi, fs)
	gain := 1.0 / cascadeMagnitudeAtHz(biquads, peakHz, fs)
	return biquads, gain
}

func cmplxSqrt(c complex128) complex128 {
	r := cmplxAbs(c)
	re := math.Sqrt((r + real(c)) / 2)
	im := math.Sqrt((r - real(c)) / 2)
	if imag(c) < 0 {
		im = -im
	}
	return complex(re, im)
}

// searchPeak brackets the in-band peak response with a golden-section-like
// search, per spec 4.C's "20-iteration golden-section-like bracket".
func searchPeak(biquads []Biquad, fLo, fHi, fs float64) float64 {
	const phi = 0.6180339887498949
	lo, hi := fLo, fHi
	for i := 0; i < 20; i++ {
		m1 := hi - phi*(hi-lo)
		m2 := lo + phi*(hi-lo)
		if cascadeMagnitudeAtHz(biquads, m1, fs) < cascadeMagnitudeAtHz(biquads, m2, fs) {
			lo = m1
		} else {
			hi = m2
		}
	}
	return (lo + hi) / 2
}
