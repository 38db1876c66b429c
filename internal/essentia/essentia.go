// Package essentia drives an external Essentia binary to extract BPM, key,
// HPCP, RMS, and (in full mode) a dense fixed-order feature vector from an
// audio file.
package essentia

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/coderdj/frkb-engine/internal/conf"
	"github.com/coderdj/frkb-engine/internal/errors"
)

// ExtractBpmKey runs essentia in the lightweight bpmKey profile.
func ExtractBpmKey(filePath string, maxSeconds float64) (Features, error) {
	return run(filePath, maxSeconds, modeBpmKey)
}

// ExtractFull runs essentia in the full profile, additionally populating
// Features.EssentiaVector.
func ExtractFull(filePath string, maxSeconds float64) (Features, error) {
	return run(filePath, maxSeconds, modeFull)
}

func run(filePath string, maxSeconds float64, m mode) (features Features, err error) {
	defer errors.Recover("essentia", &err)()

	bin := conf.Load().EssentiaPath
	if bin == "" {
		return Features{}, errors.Newf("FRKB_ESSENTIA_PATH is not set").
			Component("essentia").Category(errors.CategoryRuntimeUnavailable).Build()
	}
	info, statErr := os.Stat(bin)
	if statErr != nil || info.IsDir() {
		return Features{}, errors.Newf("essentia binary not found at %q", bin).
			Component("essentia").Category(errors.CategoryRuntimeUnavailable).Build()
	}

	outputPath := tempJSONPath()
	defer os.Remove(outputPath)

	profilePath, _ := resolveProfilePath(bin, maxSeconds, m)
	args := buildArgs(filePath, outputPath, maxSeconds, profilePath)

	cmd := exec.Command(bin, args...)
	cmd.Dir = filepath.Dir(bin)
	if err := cmd.Run(); err != nil {
		return Features{}, errors.New(err).Component("essentia").Category(errors.CategoryRuntimeUnavailable).
			Context("path", filePath).Build()
	}

	raw, readErr := os.ReadFile(outputPath)
	if readErr != nil {
		return Features{}, errors.New(readErr).Component("essentia").Category(errors.CategoryInternal).Build()
	}

	var parsed map[string]any
	if jsonErr := json.Unmarshal(raw, &parsed); jsonErr != nil {
		return Features{}, errors.New(jsonErr).Component("essentia").Category(errors.CategoryInternal).
			Context("path", filePath).Build()
	}

	f := parseFeatures(parsed, m == modeFull)
	if f.BPM == nil && f.Key == "" && f.HPCP == nil && f.RMSMean == nil && f.EssentiaVector == nil {
		return Features{}, errors.Newf("essentia produced no usable output").
			Component("essentia").Category(errors.CategoryDecode).Context("path", filePath).Build()
	}
	return f, nil
}

func tempJSONPath() string {
	name := fmt.Sprintf("frkb_essentia_%d_%d.json", os.Getpid(), time.Now().UnixMilli())
	return filepath.Join(os.TempDir(), name)
}
