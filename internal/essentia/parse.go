package essentia

// Features is the result of one essentia run, covering both the bpmKey and
// full extraction modes.
type Features struct {
	RMSMean        *float64
	HPCP           []float32
	BPM            *float64
	Key            string
	DurationSec    *float64
	EssentiaVector []float32 // full mode only
}

func findValue(root map[string]any, path []string) any {
	var cur any = root
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := m[key]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

func jsonNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func jsonString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func findNumber(root map[string]any, paths [][]string) *float64 {
	for _, p := range paths {
		if v := findValue(root, p); v != nil {
			if n, ok := jsonNumber(v); ok {
				return &n
			}
		}
	}
	return nil
}

func findString(root map[string]any, paths [][]string) string {
	for _, p := range paths {
		if v := findValue(root, p); v != nil {
			if s, ok := jsonString(v); ok {
				return s
			}
		}
	}
	return ""
}

func meanFromArray(v any) (float64, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return 0, false
	}
	var sum float64
	for _, item := range arr {
		n, ok := jsonNumber(item)
		if !ok {
			return 0, false
		}
		sum += n
	}
	return sum / float64(len(arr)), true
}

func findStatMean(root map[string]any, path []string) *float64 {
	v := findValue(root, path)
	if v == nil {
		return nil
	}
	if n, ok := jsonNumber(v); ok {
		return &n
	}
	if m, ok := v.(map[string]any); ok {
		if mv, ok := m["mean"]; ok {
			if n, ok := jsonNumber(mv); ok {
				return &n
			}
			if n, ok := meanFromArray(mv); ok {
				return &n
			}
		}
	}
	if n, ok := meanFromArray(v); ok {
		return &n
	}
	return nil
}

func findArrayValues(root map[string]any, path []string) []float32 {
	v := findValue(root, path)
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return nil
	}
	out := make([]float32, len(arr))
	for i, item := range arr {
		n, ok := jsonNumber(item)
		if !ok {
			return nil
		}
		out[i] = float32(n)
	}
	return out
}

func findRMSMean(root map[string]any) *float64 {
	if v := findValue(root, []string{"lowlevel", "rms", "mean"}); v != nil {
		if n, ok := jsonNumber(v); ok {
			return &n
		}
	}
	if v := findValue(root, []string{"lowlevel", "rms"}); v != nil {
		if n, ok := meanFromArray(v); ok {
			return &n
		}
	}
	return nil
}

var hpcpCandidates = [][]string{
	{"tonal", "hpcp"},
	{"tonal", "hpcp_averaged"},
	{"tonal", "hpcp_mean"},
	{"tonal", "hpcp_highres"},
}

func findHPCP(root map[string]any) []float32 {
	for _, path := range hpcpCandidates {
		v := findValue(root, path)
		arr, ok := v.([]any)
		if !ok || len(arr) < 12 {
			continue
		}
		values := make([]float32, len(arr))
		ok2 := true
		for i, item := range arr {
			n, ok := jsonNumber(item)
			if !ok {
				ok2 = false
				break
			}
			values[i] = float32(n)
		}
		if !ok2 {
			continue
		}
		folded := foldToTwelve(values)
		chroma := make([]float64, 12)
		for i, v := range folded {
			chroma[i] = float64(v)
		}
		normalizeChroma(chroma)
		for i := range folded {
			folded[i] = float32(chroma[i])
		}
		return folded
	}
	return nil
}

func foldToTwelve(values []float32) []float32 {
	if len(values) == 12 {
		out := make([]float32, 12)
		copy(out, values)
		return out
	}
	folded := make([]float32, 12)
	for idx, v := range values {
		folded[idx%12] += v
	}
	return folded
}

func readHighlevelProb(root map[string]any, classifier, classKey string) *float64 {
	v := findValue(root, []string{"highlevel", classifier, "all", classKey})
	if v == nil {
		return nil
	}
	if n, ok := jsonNumber(v); ok {
		return &n
	}
	return nil
}

// parseFeatures extracts BpmKey (and, in full mode, the dense feature
// vector) from parsed essentia JSON output, per spec 4.F.
func parseFeatures(root map[string]any, full bool) Features {
	var f Features
	f.BPM = findNumber(root, [][]string{{"rhythm", "bpm"}, {"rhythm", "bpm_estimate"}, {"bpm"}})

	keyRoot := findString(root, [][]string{{"tonal", "key_key"}, {"tonal", "key_key_krumhansl"}})
	keyScale := findString(root, [][]string{{"tonal", "key_scale"}, {"tonal", "key_scale_krumhansl"}})
	if keyRoot != "" && keyScale != "" {
		f.Key = normalizeKeyLabel(keyRoot, keyScale)
	} else {
		raw := findString(root, [][]string{{"tonal", "key"}, {"tonal", "key_edma"}, {"key"}})
		if raw != "" {
			f.Key = parseKeyLabel(raw)
		}
	}

	f.HPCP = findHPCP(root)
	f.RMSMean = findRMSMean(root)
	f.DurationSec = findNumber(root, [][]string{
		{"metadata", "duration"},
		{"metadata", "audio_properties", "duration"},
		{"metadata", "audio_properties", "length"},
	})

	if f.Key == "" && f.HPCP != nil {
		if k := detectKeyFromChroma(f.HPCP); k != "" {
			f.Key = k
		}
	}

	if full {
		f.EssentiaVector = buildEssentiaVector(root)
	}
	return f
}

func buildEssentiaVector(root map[string]any) []float32 {
	out := make([]float32, 0, FeatureVectorLength())
	any_ := false

	for _, c := range highlevelClassOrder {
		for _, class := range c.classes {
			v := readHighlevelProb(root, c.group, class)
			if v != nil {
				any_ = true
				out = append(out, float32(*v))
			} else {
				out = append(out, 0)
			}
		}
	}

	for _, key := range rhythmFeatureOrder {
		var v *float64
		if key == "beats_loudness_mean" {
			v = findStatMean(root, []string{"rhythm", "beats_loudness"})
		} else {
			v = findNumber(root, [][]string{{"rhythm", key}})
		}
		if v != nil {
			any_ = true
			out = append(out, float32(*v))
		} else {
			out = append(out, 0)
		}
	}

	for _, key := range tonalFeatureOrder {
		v := findNumber(root, [][]string{{"tonal", key}})
		if v != nil {
			any_ = true
			out = append(out, float32(*v))
		} else {
			out = append(out, 0)
		}
	}

	for _, key := range lowlevelFeatureOrder {
		var v *float64
		switch key {
		case "dynamic_complexity":
			v = findNumber(root, [][]string{{"lowlevel", "dynamic_complexity"}})
		case "average_loudness":
			v = findNumber(root, [][]string{{"lowlevel", "average_loudness"}})
		case "dissonance_mean":
			v = findStatMean(root, []string{"lowlevel", "dissonance"})
		case "spectral_centroid_mean":
			v = findStatMean(root, []string{"lowlevel", "spectral_centroid"})
		case "spectral_flux_mean":
			v = findStatMean(root, []string{"lowlevel", "spectral_flux"})
		case "spectral_flatness_db_mean":
			v = findStatMean(root, []string{"lowlevel", "spectral_flatness_db"})
		case "spectral_rolloff_mean":
			v = findStatMean(root, []string{"lowlevel", "spectral_rolloff"})
		case "spectral_rms_mean":
			v = findStatMean(root, []string{"lowlevel", "spectral_rms"})
		}
		if v != nil {
			any_ = true
			out = append(out, float32(*v))
		} else {
			out = append(out, 0)
		}
	}

	mfcc := findArrayValues(root, []string{"lowlevel", "mfcc", "mean"})
	if mfcc == nil {
		mfcc = findArrayValues(root, []string{"lowlevel", "mfcc"})
	}
	gfcc := findArrayValues(root, []string{"lowlevel", "gfcc", "mean"})
	if gfcc == nil {
		gfcc = findArrayValues(root, []string{"lowlevel", "gfcc"})
	}

	pushVec := func(values []float32, dim int) {
		if len(values) > 0 {
			any_ = true
		}
		for i := 0; i < dim; i++ {
			if i < len(values) {
				out = append(out, values[i])
			} else {
				out = append(out, 0)
			}
		}
	}
	pushVec(mfcc, mfccDim)
	pushVec(gfcc, gfccDim)

	if !any_ {
		return nil
	}
	return out
}
