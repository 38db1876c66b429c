// Package audiodecode implements the engine's audio-decoding fallback
// pipeline: a primary native demux+decode per container, falling back to an
// external transcoder for formats the native path cannot handle reliably.
package audiodecode

// AudioBuffer is interleaved float32 PCM, immutable once returned by Decode.
type AudioBuffer struct {
	Samples    []float32
	SampleRate uint32
	Channels   uint8
}

// Frames returns the number of sample frames in the buffer.
func (b *AudioBuffer) Frames() int {
	if b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / int(b.Channels)
}

// sampleFormat tags the native sample representation at the one dispatch
// point where it matters: converting to interleaved float32.
type sampleFormat int

const (
	formatS16 sampleFormat = iota
	formatS24
	formatS32
	formatU8
	formatF32
)

// scaleToFloat32 converts one native sample to the engine's canonical
// interleaved float32 representation, per spec 4.A's fixed scaling table.
func scaleToFloat32(format sampleFormat, raw int32) float32 {
	switch format {
	case formatS16:
		return float32(raw) / 32768.0
	case formatS24:
		return float32(raw) / 8388608.0
	case formatS32:
		return float32(raw) / 2147483648.0
	case formatU8:
		return float32(raw-128) / 128.0
	default:
		return float32(raw)
	}
}
