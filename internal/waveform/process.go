package waveform

// lowHighState holds the 4 direct-form-II state words for a 2-biquad cascade
// (lowpass or highpass), one pair (w[n-1], w[n-2]) per biquad.
type lowHighState [4]float64

func processLowHighSample(b [2]Biquad, gain float64, st *lowHighState, x float64) float64 {
	// Stage 1
	w0 := x*gain - b[0].A1*st[0] - b[0].A2*st[1]
	y0 := b[0].B0*w0 + b[0].B1*st[0] + b[0].B2*st[1]
	st[1] = st[0]
	st[0] = w0

	// Stage 2
	w1 := y0 - b[1].A1*st[2] - b[1].A2*st[3]
	y1 := b[1].B0*w1 + b[1].B1*st[2] + b[1].B2*st[3]
	st[3] = st[2]
	st[2] = w1

	return y1
}

// bandState holds the 8 direct-form-II state words for the 4-biquad bandpass
// cascade.
type bandState [8]float64

func processBandSample(b [4]Biquad, gain float64, st *bandState, x float64) float64 {
	in := x * gain
	for i := 0; i < 4; i++ {
		w := in - b[i].A1*st[2*i] - b[i].A2*st[2*i+1]
		y := b[i].B0*w + b[i].B1*st[2*i] + b[i].B2*st[2*i+1]
		st[2*i+1] = st[2*i]
		st[2*i] = w
		in = y
	}
	return in
}
