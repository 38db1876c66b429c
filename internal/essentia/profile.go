package essentia

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/coderdj/frkb-engine/internal/conf"
)

type mode int

const (
	modeBpmKey mode = iota
	modeFull
)

// resolveProfilePath picks (and, for bpmKey/full, materializes) the profile
// YAML to pass to the essentia binary, per spec 4.F: bpmKey synthesizes a
// minimal profile, full copies and rewrites the binary's own default
// all_config.yaml. Profile files are deterministically named by
// (kind, roundedSeconds) and reused across calls.
func resolveProfilePath(binPath string, maxSeconds float64, m mode) (string, error) {
	switch m {
	case modeFull:
		if p, err := resolveFullProfilePath(binPath, maxSeconds); err == nil && p != "" {
			return p, nil
		}
		return resolveDefaultProfilePath(binPath), nil
	default:
		return resolveBpmKeyProfilePath(maxSeconds)
	}
}

func resolveDefaultProfilePath(binPath string) string {
	candidate := filepath.Join(filepath.Dir(binPath), "profiles", "all_config.yaml")
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate
	}
	return ""
}

func resolveFullProfilePath(binPath string, maxSeconds float64) (string, error) {
	source := filepath.Join(filepath.Dir(binPath), "profiles", "all_config.yaml")
	raw, err := os.ReadFile(source)
	if err != nil {
		return "", err
	}
	target, err := buildProfilePath("full", maxSeconds)
	if err != nil {
		return "", err
	}
	updated := replaceProfileTimeRange(string(raw), maxSeconds)
	if err := ensureProfileFile(target, updated); err != nil {
		return "", err
	}
	return target, nil
}

func resolveBpmKeyProfilePath(maxSeconds float64) (string, error) {
	target, err := buildProfilePath("bpmkey", maxSeconds)
	if err != nil {
		return "", err
	}
	if err := ensureProfileFile(target, buildBpmKeyProfile(maxSeconds)); err != nil {
		return "", err
	}
	return target, nil
}

func buildProfilePath(kind string, maxSeconds float64) (string, error) {
	secs := int64(30)
	if !math.IsInf(maxSeconds, 0) && !math.IsNaN(maxSeconds) && maxSeconds > 0 {
		secs = int64(math.Max(math.Round(maxSeconds), 1))
	}
	dir := filepath.Join(os.TempDir(), "frkb_essentia_profiles")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, fmt.Sprintf("frkb_essentia_profile_%s_%ds.yaml", kind, secs)), nil
}

func ensureProfileFile(path, contents string) error {
	if existing, err := os.ReadFile(path); err == nil && string(existing) == contents {
		return nil
	}
	return os.WriteFile(path, []byte(contents), 0o644)
}

func replaceProfileTimeRange(src string, maxSeconds float64) string {
	endTime := 30.0
	if !math.IsInf(maxSeconds, 0) && !math.IsNaN(maxSeconds) && maxSeconds > 0 {
		endTime = maxSeconds
	}
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		indent := line[:len(line)-len(trimmed)]
		switch {
		case strings.HasPrefix(trimmed, "startTime:"):
			lines[i] = indent + "startTime: 0.0"
		case strings.HasPrefix(trimmed, "endTime:"):
			lines[i] = indent + fmt.Sprintf("endTime: %v", endTime)
		}
	}
	return strings.Join(lines, "\n")
}

func buildBpmKeyProfile(maxSeconds float64) string {
	endTime := 30.0
	if !math.IsInf(maxSeconds, 0) && !math.IsNaN(maxSeconds) && maxSeconds > 0 {
		endTime = maxSeconds
	}
	shortSound := endTime > 0 && endTime < 2.0
	return fmt.Sprintf(`#### GENERAL ####
analysisSampleRate: 22050
startTime: 0.0
endTime: %v
equalLoudness: true
shortSound: %t

svm:
    compute: false

segmentation:
    compute: false
    minimumSegmentsLength: 10.0

lowlevel:
    compute: false

average_loudness:
    compute: false

rhythm:
    compute: true
    useOnset: true
    useBands: false
    numberFrames: 512
    hopSize: 256
    frameSize: 1024
    frameHop: 1024
    stats: [ "mean", "median", "var", "min", "max", "dmean", "dmean2", "dvar", "dvar2" ]

tonal:
    compute: true
    frameSize: 4096
    hopSize: 2048
    windowType: 'blackmanharris62'
    stats: [ "mean", "median", "var", "min", "max", "dmean", "dmean2", "dvar", "dvar2" ]

sfx:
    compute: false

panning:
    compute: false
`, endTime, shortSound)
}

// buildArgs constructs the essentia invocation's argv: [input, output,
// profile] by default, optionally overridden by FRKB_ESSENTIA_ARGS with
// {input}/{output}/{max_seconds}/{profile} substitutions.
func buildArgs(filePath, outputPath string, maxSeconds float64, profilePath string) []string {
	if template := strings.TrimSpace(conf.Load().EssentiaArgs); template != "" {
		args := splitArgs(template)
		hasPlaceholder := false
		for _, item := range args {
			if strings.Contains(item, "{input}") || strings.Contains(item, "{output}") ||
				strings.Contains(item, "{max_seconds}") || strings.Contains(item, "{profile}") {
				hasPlaceholder = true
				break
			}
		}
		maxToken := strconv.FormatInt(int64(math.Max(math.Round(maxSeconds), 0)), 10)
		for i, item := range args {
			item = strings.ReplaceAll(item, "{input}", filePath)
			item = strings.ReplaceAll(item, "{output}", outputPath)
			item = strings.ReplaceAll(item, "{max_seconds}", maxToken)
			item = strings.ReplaceAll(item, "{profile}", profilePath)
			args[i] = item
		}
		if !hasPlaceholder {
			args = append(args, filePath, outputPath)
		}
		if profilePath != "" {
			found := false
			for _, item := range args {
				if item == profilePath {
					found = true
					break
				}
			}
			if !found {
				args = append(args, profilePath)
			}
		}
		return args
	}

	if profilePath != "" {
		return []string{filePath, outputPath, profilePath}
	}
	return []string{filePath, outputPath}
}

// splitArgs tokenizes a shell-like template: whitespace-separated, with
// single/double quoting and backslash escapes.
func splitArgs(template string) []string {
	var args []string
	var current strings.Builder
	var inSingle, inDouble, escaped bool

	flush := func() {
		if current.Len() > 0 {
			args = append(args, current.String())
			current.Reset()
		}
	}

	for _, ch := range template {
		if escaped {
			current.WriteRune(ch)
			escaped = false
			continue
		}
		switch {
		case ch == '\\':
			escaped = true
		case ch == '\'' && !inDouble:
			inSingle = !inSingle
		case ch == '"' && !inSingle:
			inDouble = !inDouble
		case isSpace(ch) && !inSingle && !inDouble:
			flush()
		default:
			current.WriteRune(ch)
		}
	}
	flush()
	return args
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
