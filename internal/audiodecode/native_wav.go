package audiodecode

import (
	"os"

	"github.com/go-audio/wav"

	"github.com/coderdj/frkb-engine/internal/errors"
)

// decodeWav demuxes and decodes a WAV file with go-audio/wav, converting
// whatever native sample format it reports into interleaved float32.
func decodeWav(path string) (*AudioBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).Component("audiodecode").Category(errors.CategoryDecode).
			Context("path", path).Build()
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, errors.Newf("not a valid WAV file").
			Component("audiodecode").Category(errors.CategoryUnsupportedFormat).
			Context("path", path).Build()
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, errors.New(err).Component("audiodecode").Category(errors.CategoryDecode).
			Context("path", path).Build()
	}

	var format sampleFormat
	switch pcm.SourceBitDepth {
	case 8:
		format = formatU8
	case 16:
		format = formatS16
	case 24:
		format = formatS24
	case 32:
		format = formatS32
	default:
		return nil, errors.Newf("unsupported WAV bit depth %d", pcm.SourceBitDepth).
			Component("audiodecode").Category(errors.CategoryUnsupportedFormat).
			Context("path", path).Build()
	}

	samples := make([]float32, len(pcm.Data))
	for i, v := range pcm.Data {
		samples[i] = scaleToFloat32(format, int32(v))
	}

	return &AudioBuffer{
		Samples:    samples,
		SampleRate: uint32(dec.SampleRate),
		Channels:   uint8(dec.NumChans),
	}, nil
}
