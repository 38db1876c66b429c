package openl3

import "math"

// melWeight is one (frequency-bin, weight) contribution to a mel filter.
type melWeight struct {
	bin    int
	weight float32
}

// buildMelFilterBank builds N_MELS Slaney-like triangular filters over the
// n_fft/2+1 real FFT bins for sample rate sr, per spec 4.G.
func buildMelFilterBank(sr uint32, nFFT, nMels int) [][]melWeight {
	fMax := float32(sr) / 2.0
	melMin := hzToMel(0)
	melMax := hzToMel(fMax)

	melPoints := make([]float32, nMels+2)
	for i := range melPoints {
		m := melMin + (melMax-melMin)*float32(i)/float32(nMels+1)
		melPoints[i] = melToHz(m)
	}

	nFreqs := nFFT/2 + 1
	bins := make([]int, len(melPoints))
	for i, hz := range melPoints {
		b := int(math.Floor(float64(float32(nFFT+1) * hz / float32(sr))))
		if b > nFreqs-1 {
			b = nFreqs - 1
		}
		if b < 0 {
			b = 0
		}
		bins[i] = b
	}
	for i := 1; i < len(bins); i++ {
		if bins[i] < bins[i-1] {
			bins[i] = bins[i-1]
		}
	}

	filters := make([][]melWeight, nMels)
	for m := 0; m < nMels; m++ {
		left, center, right := bins[m], bins[m+1], bins[m+2]
		var f []melWeight
		if left == center && center == right {
			if center < nFreqs {
				f = append(f, melWeight{center, 1.0})
			}
			filters[m] = f
			continue
		}
		if left < center {
			for k := left; k <= center; k++ {
				w := float32(k-left) / float32(center-left)
				if w > 0 {
					f = append(f, melWeight{k, w})
				}
			}
		}
		if center < right {
			for k := center; k <= right; k++ {
				w := float32(right-k) / float32(right-center)
				if w > 0 {
					f = append(f, melWeight{k, w})
				}
			}
		}
		filters[m] = f
	}
	return filters
}

func hzToMel(hz float32) float32 {
	return 2595.0 * float32(math.Log10(1.0+float64(hz)/700.0))
}

func melToHz(mel float32) float32 {
	return 700.0 * (float32(math.Pow(10, float64(mel)/2595.0)) - 1.0)
}

func buildHannWindow(n int) []float32 {
	if n == 0 {
		return nil
	}
	w := make([]float32, n)
	for i := 0; i < n; i++ {
		x := 2.0 * math.Pi * float64(i) / float64(n)
		w[i] = float32(0.5 - 0.5*math.Cos(x))
	}
	return w
}
