package analysisutil

import "testing"

func TestCalcFramesToProcess(t *testing.T) {
	cases := []struct {
		name     string
		total    int
		sr       uint32
		fast     bool
		expected int
	}{
		{"zero sample rate", 1000, 0, true, 0},
		{"full analysis ignores fast flag", 48000 * 120, 48000, false, 48000 * 120},
		{"fast analysis under cap", 1000, 48000, true, 1000},
		{"fast analysis over cap", 48000 * 120, 48000, true, 48000 * 60},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalcFramesToProcess(tc.total, tc.sr, tc.fast)
			if got != tc.expected {
				t.Fatalf("got %d, want %d", got, tc.expected)
			}
		})
	}
}

func TestToStereoIdempotence(t *testing.T) {
	mono := []float32{1, 2, 3}
	once := ToStereo(mono, 1, 3)
	twice := ToStereo(once, 2, 3)
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("toStereo not idempotent at %d: %v vs %v", i, once, twice)
		}
	}
}

func TestToStereoDownmix(t *testing.T) {
	// 3-channel input, frame 0 = (1, 3, 5) -> mean 3
	pcm := []float32{1, 3, 5}
	out := ToStereo(pcm, 3, 1)
	if out[0] != 3 || out[1] != 3 {
		t.Fatalf("expected downmixed mean 3, got %v", out)
	}
}
