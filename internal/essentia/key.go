package essentia

import (
	"math"
	"strings"
)

var majorProfile = [12]float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
var minorProfile = [12]float64{6.33, 2.68, 3.52, 5.38, 2.6, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
var keyRootNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// normalizeChroma L2-normalizes a 12-bin chroma vector in place. A
// non-positive norm leaves the vector untouched.
func normalizeChroma(chroma []float64) {
	var sumSq float64
	for _, v := range chroma {
		sumSq += v * v
	}
	norm := math.Sqrt(sumSq)
	if norm <= 0 {
		return
	}
	for i := range chroma {
		chroma[i] /= norm
	}
}

// detectKeyFromChroma runs Krumhansl-Schmuckler profile correlation over a
// 12-bin chroma vector, trying every rotation of both the major and minor
// key profiles and returning the best-scoring (root, mode) as "<root>[m]".
func detectKeyFromChroma(chroma []float32) string {
	if len(chroma) < 12 {
		return ""
	}
	c := make([]float64, 12)
	var energy float64
	for i := 0; i < 12; i++ {
		c[i] = float64(chroma[i])
		energy += c[i] * c[i]
	}
	if energy <= 0 {
		return ""
	}

	bestScore := math.Inf(-1)
	bestRoot := 0
	bestMinor := false

	for rot := 0; rot < 12; rot++ {
		majorScore := cosineSimilarityRotated(c, majorProfile, rot)
		if majorScore > bestScore {
			bestScore = majorScore
			bestRoot = rot
			bestMinor = false
		}
		minorScore := cosineSimilarityRotated(c, minorProfile, rot)
		if minorScore > bestScore {
			bestScore = minorScore
			bestRoot = rot
			bestMinor = true
		}
	}

	root := keyRootNames[bestRoot]
	if bestMinor {
		return root + "m"
	}
	return root
}

func cosineSimilarityRotated(chroma []float64, profile [12]float64, rotation int) float64 {
	var dot, chromaNorm, profileNorm float64
	for i := 0; i < 12; i++ {
		p := profile[(i+12-rotation)%12]
		dot += chroma[i] * p
		chromaNorm += chroma[i] * chroma[i]
		profileNorm += p * p
	}
	denom := math.Sqrt(chromaNorm) * math.Sqrt(profileNorm)
	if denom <= 0 {
		return math.Inf(-1)
	}
	return dot / denom
}

// normalizeKeyLabel validates and formats a (root, scale) pair into
// "<root>[#|b][m]". Root must be a letter A-G optionally followed by '#',
// 'b', or 'B' (folded to 'b'); scale (or a trailing 'm' on root itself)
// selects minor.
func normalizeKeyLabel(root, scale string) string {
	root = strings.TrimSpace(root)
	scale = strings.TrimSpace(strings.ToLower(scale))
	if root == "" {
		return ""
	}

	minor := scale == "minor" || scale == "min" || scale == "m"
	letter := strings.ToUpper(root[:1])
	if letter < "A" || letter > "G" {
		return ""
	}

	rest := root[1:]
	accidental := ""
	if len(rest) > 0 {
		switch rest[0] {
		case '#':
			accidental = "#"
			rest = rest[1:]
		case 'b', 'B':
			accidental = "b"
			rest = rest[1:]
		}
	}
	if rest == "m" && scale == "" {
		minor = true
		rest = rest[1:]
	}
	if rest != "" {
		return ""
	}

	out := letter + accidental
	if minor {
		out += "m"
	}
	return out
}

// parseKeyLabel splits a raw "<root> <scale>" or bare "<root>m" label and
// normalizes it, trying an explicit scale first and falling back to an
// empty one.
func parseKeyLabel(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	fields := strings.Fields(raw)
	root := fields[0]
	scale := ""
	if len(fields) > 1 {
		scale = fields[1]
	}
	if out := normalizeKeyLabel(root, scale); out != "" {
		return out
	}
	return normalizeKeyLabel(root, "")
}
