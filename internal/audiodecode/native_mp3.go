package audiodecode

import (
	"bytes"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"

	"github.com/coderdj/frkb-engine/internal/errors"
)

// decodeMp3 demuxes and decodes an MP3 file. go-mp3 always emits 16-bit
// little-endian stereo PCM regardless of the source channel layout.
func decodeMp3(path string) (*AudioBuffer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).Component("audiodecode").Category(errors.CategoryDecode).
			Context("path", path).Build()
	}

	dec, err := mp3.NewDecoder(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.New(err).Component("audiodecode").Category(errors.CategoryDecode).
			Context("path", path).Build()
	}

	pcm, err := io.ReadAll(dec)
	if err != nil && len(pcm) == 0 {
		return nil, errors.New(err).Component("audiodecode").Category(errors.CategoryDecode).
			Context("path", path).Build()
	}

	n := len(pcm) / 2 // int16 little-endian samples, interleaved stereo
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
		samples[i] = scaleToFloat32(formatS16, int32(v))
	}

	return &AudioBuffer{
		Samples:    samples,
		SampleRate: uint32(dec.SampleRate()),
		Channels:   2,
	}, nil
}
