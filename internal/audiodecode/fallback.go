package audiodecode

import (
	"bytes"
	"context"
	"encoding/binary"
	"os/exec"
	"strings"

	"github.com/go-audio/riff"

	"github.com/coderdj/frkb-engine/internal/conf"
	"github.com/coderdj/frkb-engine/internal/errors"
)

// fallbackDecode spawns the external transcoder configured via
// FRKB_FFMPEG_PATH, fully buffers its stdout (a WAV container carrying
// pcm_s16le), and parses that container by hand.
func fallbackDecode(path string, maxSeconds float64) (*AudioBuffer, error) {
	bin := conf.Load().FFmpegPath
	if bin == "" {
		return nil, errors.Newf("FRKB_FFMPEG_PATH is not set").
			Component("audiodecode").Category(errors.CategoryRuntimeUnavailable).Build()
	}

	ctx := context.Background()
	cmd := exec.CommandContext(ctx, bin, "-v", "error", "-i", path, "-f", "wav", "-acodec", "pcm_s16le", "pipe:1")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.New(err).Component("audiodecode").Category(errors.CategoryRuntimeUnavailable).
			Context("stderr", strings.TrimSpace(stderr.String())).Build()
	}

	buf, err := parseWavS16LE(stdout.Bytes())
	if err != nil {
		return nil, err
	}
	return truncate(buf, maxSeconds), nil
}

// parseWavS16LE walks a RIFF/WAVE container honoring odd-length chunk
// padding, requiring a 16-bit fmt chunk and a data chunk, per spec 4.A.
func parseWavS16LE(data []byte) (*AudioBuffer, error) {
	parser := riff.New(bytes.NewReader(data))
	if err := parser.ParseHeader(); err != nil {
		return nil, errors.New(err).Component("audiodecode").Category(errors.CategoryUnsupportedFormat).Build()
	}
	if parser.Format != "WAVE" {
		return nil, errors.Newf("not a RIFF/WAVE stream (format=%q)", parser.Format).
			Component("audiodecode").Category(errors.CategoryUnsupportedFormat).Build()
	}

	var sampleRate uint32
	var channels uint16
	var bitsPerSample uint16
	var pcm []byte
	haveFmt := false

	for {
		chunk, err := parser.NextChunk()
		if err != nil {
			break // EOF or truncated trailing chunk: stop, use what we parsed
		}
		switch string(chunk.ID[:]) {
		case "fmt ":
			var hdr struct {
				AudioFormat   uint16
				NumChannels   uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}
			if err := binary.Read(chunk.R, binary.LittleEndian, &hdr); err != nil {
				return nil, errors.New(err).Component("audiodecode").Category(errors.CategoryUnsupportedFormat).Build()
			}
			sampleRate = hdr.SampleRate
			channels = hdr.NumChannels
			bitsPerSample = hdr.BitsPerSample
			haveFmt = true
		case "data":
			pcm = make([]byte, chunk.Size)
			if _, err := chunk.R.Read(pcm); err != nil {
				return nil, errors.New(err).Component("audiodecode").Category(errors.CategoryUnsupportedFormat).Build()
			}
		}
		_ = chunk.Drain()
	}

	if !haveFmt || pcm == nil {
		return nil, errors.Newf("transcoder WAV output missing fmt or data chunk").
			Component("audiodecode").Category(errors.CategoryUnsupportedFormat).Build()
	}
	if bitsPerSample != 16 {
		return nil, errors.Newf("transcoder produced unexpected bit depth %d", bitsPerSample).
			Component("audiodecode").Category(errors.CategoryUnsupportedFormat).Build()
	}

	n := len(pcm) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(pcm[2*i:]))
		samples[i] = scaleToFloat32(formatS16, int32(v))
	}

	return &AudioBuffer{
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   uint8(channels),
	}, nil
}
