// Package conf reads the handful of environment variables that configure the
// engine's external collaborators (transcoder, Essentia, OpenL3 model). There
// is no configuration file layer in this engine — that lives in the host
// application — so this package is a thin, sync.Once-guarded env reader.
package conf

import (
	"os"
	"strings"
	"sync"
)

// Runtime holds the resolved values of every FRKB_* environment variable.
type Runtime struct {
	FFmpegPath         string
	EssentiaPath       string
	EssentiaArgs       string
	OpenL3ModelPath    string
	OpenL3ModelVersion string
}

var (
	once    sync.Once
	current Runtime
)

// Load reads the environment once per process and returns the cached result
// on subsequent calls.
func Load() Runtime {
	once.Do(func() {
		current = Runtime{
			FFmpegPath:         strings.TrimSpace(os.Getenv("FRKB_FFMPEG_PATH")),
			EssentiaPath:       strings.TrimSpace(os.Getenv("FRKB_ESSENTIA_PATH")),
			EssentiaArgs:       os.Getenv("FRKB_ESSENTIA_ARGS"),
			OpenL3ModelPath:    strings.TrimSpace(os.Getenv("FRKB_OPENL3_MODEL_PATH")),
			OpenL3ModelVersion: strings.TrimSpace(os.Getenv("FRKB_OPENL3_MODEL_VERSION")),
		}
	})
	return current
}

// Reset clears the cached runtime so tests can re-read a mutated environment.
func Reset() {
	once = sync.Once{}
}
