package essentia

import "strconv"

// highlevelClass pairs a classifier name with its declared class labels, in
// the fixed order the dense full-mode feature vector is built in.
type highlevelClass struct {
	group   string
	classes []string
}

var highlevelClassOrder = []highlevelClass{
	{"culture", []string{"non_western", "western"}},
	{"danceability", []string{"danceable", "not_danceable"}},
	{"mood_acoustic", []string{"acoustic", "not_acoustic"}},
	{"mood_aggressive", []string{"aggressive", "not_aggressive"}},
	{"mood_electronic", []string{"electronic", "not_electronic"}},
	{"mood_happy", []string{"happy", "not_happy"}},
	{"mood_party", []string{"party", "not_party"}},
	{"mood_relaxed", []string{"relaxed", "not_relaxed"}},
	{"mood_sad", []string{"sad", "not_sad"}},
	{"timbre", []string{"bright", "dark"}},
	{"voice_instrumental", []string{"instrumental", "voice"}},
	{"tonal_atonal", []string{"tonal", "atonal"}},
	{"genre_dortmund", []string{"alternative", "blues", "electronic", "folkcountry", "funksoulrnb", "jazz", "pop", "raphiphop", "rock"}},
	{"genre_electronic", []string{"ambient", "dnb", "house", "techno", "trance"}},
	{"genre_rosamerica", []string{"cla", "dan", "hip", "jaz", "pop", "rhy", "roc", "spe"}},
	{"genre_tzanetakis", []string{"blu", "cla", "cou", "dis", "hip", "jaz", "met", "pop", "reg", "roc"}},
	{"mirex_ballroom", []string{"ChaChaCha", "Jive", "Quickstep", "Rumba-American", "Rumba-International", "Rumba-Misc", "Samba", "Tango", "VienneseWaltz", "Waltz"}},
	{"moods_mirex", []string{"Cluster1", "Cluster2", "Cluster3", "Cluster4", "Cluster5"}},
}

var rhythmFeatureOrder = []string{
	"perceptual_tempo",
	"onset_rate",
	"beats_loudness_mean",
	"bpm_confidence",
	"bpm_histogram_first_peak",
	"bpm_histogram_first_peak_weight",
	"bpm_histogram_first_peak_spread",
	"bpm_histogram_second_peak",
	"bpm_histogram_second_peak_weight",
	"bpm_histogram_second_peak_spread",
}

var tonalFeatureOrder = []string{
	"key_strength",
	"chords_changes_rate",
	"chords_number_rate",
	"chords_strength",
}

var lowlevelFeatureOrder = []string{
	"average_loudness",
	"dynamic_complexity",
	"dissonance_mean",
	"spectral_centroid_mean",
	"spectral_flux_mean",
	"spectral_flatness_db_mean",
	"spectral_rolloff_mean",
	"spectral_rms_mean",
}

const (
	mfccDim = 13
	gfccDim = 13
)

// FeatureVectorLength is the fixed dimensionality of the dense full-mode
// feature vector.
func FeatureVectorLength() int {
	n := 0
	for _, c := range highlevelClassOrder {
		n += len(c.classes)
	}
	n += len(rhythmFeatureOrder) + len(tonalFeatureOrder) + len(lowlevelFeatureOrder)
	n += mfccDim + gfccDim
	return n
}

// FeatureNames returns the dotted names of every slot in the dense
// full-mode feature vector, in the same fixed order FeatureVectorLength
// and the vector builder use.
func FeatureNames() []string {
	names := make([]string, 0, FeatureVectorLength())
	for _, c := range highlevelClassOrder {
		for _, class := range c.classes {
			names = append(names, "hl."+c.group+"."+class)
		}
	}
	for _, k := range rhythmFeatureOrder {
		names = append(names, "rhythm."+k)
	}
	for _, k := range tonalFeatureOrder {
		names = append(names, "tonal."+k)
	}
	for _, k := range lowlevelFeatureOrder {
		names = append(names, "lowlevel."+k)
	}
	for i := 0; i < mfccDim; i++ {
		names = append(names, "lowlevel.mfcc_mean."+strconv.Itoa(i))
	}
	for i := 0; i < gfccDim; i++ {
		names = append(names, "lowlevel.gfcc_mean."+strconv.Itoa(i))
	}
	return names
}
