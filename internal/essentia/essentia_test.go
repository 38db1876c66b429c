package essentia

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeatureVectorLengthMatchesNames(t *testing.T) {
	assert.Equal(t, FeatureVectorLength(), len(FeatureNames()))
}

func TestNormalizeKeyLabel(t *testing.T) {
	assert.Equal(t, "C", normalizeKeyLabel("C", "major"))
	assert.Equal(t, "C#m", normalizeKeyLabel("C#", "minor"))
	assert.Equal(t, "Db", normalizeKeyLabel("Db", ""))
	assert.Equal(t, "", normalizeKeyLabel("H", "major"))
}

func TestParseKeyLabel(t *testing.T) {
	assert.Equal(t, "Am", parseKeyLabel("A minor"))
	assert.Equal(t, "G", parseKeyLabel("G major"))
	assert.Equal(t, "Am", parseKeyLabel("Am"))
}

func TestDetectKeyFromChromaRequiresTwelveBins(t *testing.T) {
	assert.Equal(t, "", detectKeyFromChroma([]float32{1, 2, 3}))
}

func TestDetectKeyFromChromaCMajorPeak(t *testing.T) {
	// A chroma vector shaped like C major's tonic triad (C, E, G strong)
	// should correlate best with the C-rooted major profile.
	chroma := make([]float32, 12)
	chroma[0] = 1.0 // C
	chroma[4] = 0.8 // E
	chroma[7] = 0.9 // G
	key := detectKeyFromChroma(chroma)
	assert.Equal(t, "C", key)
}

func TestSplitArgsHandlesQuotingAndEscapes(t *testing.T) {
	got := splitArgs(`foo 'bar baz' "qux quux" esc\ aped`)
	assert.Equal(t, []string{"foo", "bar baz", "qux quux", "esc aped"}, got)
}

func TestBuildArgsDefaultsToInputOutputProfile(t *testing.T) {
	args := buildArgs("/in.mp3", "/out.json", 30, "/profile.yaml")
	assert.Equal(t, []string{"/in.mp3", "/out.json", "/profile.yaml"}, args)
}

func TestBuildBpmKeyProfileMarksShortSound(t *testing.T) {
	assert.Contains(t, buildBpmKeyProfile(1.0), "shortSound: true")
	assert.Contains(t, buildBpmKeyProfile(30.0), "shortSound: false")
}
