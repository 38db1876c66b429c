package audiodecode

import (
	"io"
	"os"

	"github.com/tphakala/flac"

	"github.com/coderdj/frkb-engine/internal/errors"
)

// decodeFlac demuxes and decodes a FLAC file frame-by-frame, converting each
// subframe's samples (always padded to int32 regardless of bit depth) into
// interleaved float32.
func decodeFlac(path string) (*AudioBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).Component("audiodecode").Category(errors.CategoryDecode).
			Context("path", path).Build()
	}
	defer f.Close()

	stream, err := flac.Decode(f)
	if err != nil {
		return nil, errors.New(err).Component("audiodecode").Category(errors.CategoryDecode).
			Context("path", path).Build()
	}
	defer stream.Close()

	channels := uint8(stream.Info.NChannels)
	var format sampleFormat
	switch stream.Info.BitsPerSample {
	case 8:
		format = formatU8
	case 16:
		format = formatS16
	case 24:
		format = formatS24
	case 32:
		format = formatS32
	default:
		return nil, errors.Newf("unsupported FLAC bit depth %d", stream.Info.BitsPerSample).
			Component("audiodecode").Category(errors.CategoryUnsupportedFormat).
			Context("path", path).Build()
	}

	var samples []float32
	for {
		frame, frameErr := stream.ParseNext()
		if frameErr == io.EOF {
			break
		}
		if frameErr != nil {
			// A per-packet decode error is recoverable: skip this frame and
			// keep going, matching spec 4.A's "recoverable per-packet" rule.
			continue
		}
		n := len(frame.Subframes[0].Samples)
		for i := 0; i < n; i++ {
			for ch := 0; ch < int(channels); ch++ {
				samples = append(samples, scaleToFloat32(format, frame.Subframes[ch].Samples[i]))
			}
		}
	}

	return &AudioBuffer{
		Samples:    samples,
		SampleRate: stream.Info.SampleRate,
		Channels:   channels,
	}, nil
}
