package audiodecode

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/coderdj/frkb-engine/internal/errors"
)

// unreliableContainers lists extensions whose native demux/decode support is
// known to be flaky enough that the engine skips straight to the external
// transcoder fallback, per spec 4.A.
var unreliableContainers = map[string]bool{
	"wma": true, "ac3": true, "dts": true, "mka": true,
	"webm": true, "ape": true, "tak": true, "tta": true, "wv": true,
}

// Decode decodes path to interleaved float32 PCM. maxSeconds, when > 0,
// truncates the result to ceil(maxSeconds * sampleRate) frames. Both the
// primary and fallback paths are panic-safe: any internal panic surfaces as
// a returned error instead of crashing the process.
func Decode(path string, maxSeconds float64) (buf *AudioBuffer, err error) {
	defer errors.Recover("audiodecode", &err)()

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

	if unreliableContainers[ext] {
		fb, fbErr := fallbackDecode(path, maxSeconds)
		if fbErr != nil {
			return nil, errors.New(fmt.Errorf("fallback failed: %w", fbErr)).
				Component("audiodecode").Category(errors.CategoryDecode).
				Context("path", path).Build()
		}
		return fb, nil
	}

	primary, primaryErr := primaryDecode(path, ext)
	if primaryErr == nil {
		return truncate(primary, maxSeconds), nil
	}

	fb, fbErr := fallbackDecode(path, maxSeconds)
	if fbErr == nil {
		return fb, nil
	}

	return nil, errors.New(fmt.Errorf("primary failed: %v; fallback failed: %v", primaryErr, fbErr)).
		Component("audiodecode").Category(errors.CategoryDecode).
		Context("path", path).Build()
}

func primaryDecode(path, ext string) (buf *AudioBuffer, err error) {
	defer errors.Recover("audiodecode.primary", &err)()

	switch ext {
	case "wav":
		return decodeWav(path)
	case "flac":
		return decodeFlac(path)
	case "mp3":
		return decodeMp3(path)
	default:
		return nil, errors.Newf("no decodable track for extension %q", ext).
			Component("audiodecode").Category(errors.CategoryUnsupportedFormat).Build()
	}
}

func truncate(buf *AudioBuffer, maxSeconds float64) *AudioBuffer {
	if maxSeconds <= 0 || buf.Channels == 0 {
		return buf
	}
	maxFrames := int(math.Ceil(maxSeconds * float64(buf.SampleRate)))
	maxSamples := maxFrames * int(buf.Channels)
	if maxSamples >= len(buf.Samples) {
		return buf
	}
	return &AudioBuffer{
		Samples:    buf.Samples[:maxSamples],
		SampleRate: buf.SampleRate,
		Channels:   buf.Channels,
	}
}
