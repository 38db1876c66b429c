package waveform

// Band is one of the four logical waveform channels.
type Band struct {
	Left, Right         []byte
	PeakLeft, PeakRight []byte
}

// Data is the full multi-band waveform summary for one decoded track.
type Data struct {
	Duration   float64
	SampleRate uint32
	Step       float64
	Low        Band
	Mid        Band
	High       Band
	All        Band
}
