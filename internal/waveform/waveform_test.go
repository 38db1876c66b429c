package waveform

import (
	"math"
	"testing"
)

func TestLowpassUnityGainAtDC(t *testing.T) {
	biquads, gain := designLowpass(600, 48000)
	mag := cascadeMagnitudeAtHz(biquads, 0, 48000) * gain
	if math.Abs(mag-1) > 1e-6 {
		t.Fatalf("lowpass DC gain = %v, want 1±1e-6", mag)
	}
}

func TestHighpassUnityGainAtNyquist(t *testing.T) {
	biquads, gain := designHighpass(4000, 48000)
	mag := cascadeMagnitudeAtHz(biquads, 24000, 48000) * gain
	if math.Abs(mag-1) > 1e-6 {
		t.Fatalf("highpass Nyquist gain = %v, want 1±1e-6", mag)
	}
}

func TestBandpassUnityGainAtPeak(t *testing.T) {
	biquads, gain := designBandpass(600, 4000, 48000)
	peakHz := searchPeak(biquads, 600, 4000, 48000)
	mag := cascadeMagnitudeAtHz(biquads, peakHz, 48000) * gain
	if math.Abs(mag-1) > 1e-6 {
		t.Fatalf("bandpass peak gain = %v, want 1±1e-6", mag)
	}
}

func TestQuantizeBounds(t *testing.T) {
	if quantize(math.NaN(), false) != 0 {
		t.Fatal("NaN should quantize to 0")
	}
	if quantize(-1, false) != 0 {
		t.Fatal("negative should quantize to 0")
	}
	if quantize(1, false) != 255 {
		t.Fatalf("1.0 should quantize to 255, got %d", quantize(1, false))
	}
}

func TestWaveformLengthLaw(t *testing.T) {
	const sr = 48000
	const visualRate = 441
	frames := 48000 // 1 second
	samples := make([]float32, frames) // mono silence
	data, err := ComputeWithRate(samples, sr, 1, visualRate)
	if err != nil {
		t.Fatal(err)
	}
	want := int(math.Floor(float64(frames)*visualRate/sr)) + 1
	if want != 442 {
		t.Fatalf("sanity check on the length law itself failed: got %d, want 442", want)
	}
	if len(data.Low.Left) != want {
		t.Fatalf("low band length = %d, want %d", len(data.Low.Left), want)
	}
	if len(data.Mid.Left) != want || len(data.High.Left) != want || len(data.All.Left) != want {
		t.Fatal("band lengths are not all equal")
	}
}

func TestSilenceProducesAllZeroBytes(t *testing.T) {
	samples := make([]float32, 48000)
	data, err := ComputeWithRate(samples, 48000, 1, 441)
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range []byte{0} {
		_ = b
	}
	checkAllZero := func(band Band) {
		for _, v := range band.Left {
			if v != 0 {
				t.Fatalf("expected all-zero bytes for silence, got %d", v)
			}
		}
	}
	checkAllZero(data.Low)
	checkAllZero(data.Mid)
	checkAllZero(data.High)
	checkAllZero(data.All)
}
