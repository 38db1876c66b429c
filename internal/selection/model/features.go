// Package model builds the selection GBDT's fixed feature vector from
// feature-store rows and wraps training/prediction around the gbdt
// package, per spec 4.K.
package model

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/coderdj/frkb-engine/internal/selection/featurestore"
)

// FeatureNames is the v1 feature vector's fixed column order.
var FeatureNames = []string{
	"hpcp_corr_max",
	"bpm_diff_min",
	"key_dist_min",
	"duration_diff_min_log1p",
	"bitrate_kbps",
	"rms_mean",
	"has_hpcp",
	"has_bpm",
	"has_key",
	"has_duration",
	"has_bitrate",
	"has_rms",
	"chromaprint_sim_max",
	"has_chromaprint",
	"openl3_sim_max",
	"openl3_sim_top5_mean",
	"openl3_sim_top20_mean",
	"openl3_sim_centroid",
	"has_openl3",
	"has_openl3_pos",
}

type positiveRef struct {
	id  string
	row featurestore.Row
}

type positiveChromaprint struct {
	id  string
	sig uint64
}

type positiveOpenL3 struct {
	id  string
	vec []float32
}

// positiveContext bundles the derived positive-set summaries shared across
// every candidate's feature build within one train/predict call.
type positiveContext struct {
	list         []positiveRef
	chromaprints []positiveChromaprint
	openl3       []positiveOpenL3
	centroid     []float32
}

func buildPositiveContext(positiveIDs []string, featuresByID map[string]featurestore.Row) positiveContext {
	var ctx positiveContext
	for _, id := range positiveIDs {
		if row, ok := featuresByID[id]; ok {
			ctx.list = append(ctx.list, positiveRef{id: id, row: row})
		}
	}
	for _, p := range ctx.list {
		if p.row.ChromaprintFingerprint == nil {
			continue
		}
		if sig, ok := chromaprintSimhash(*p.row.ChromaprintFingerprint); ok {
			ctx.chromaprints = append(ctx.chromaprints, positiveChromaprint{id: p.id, sig: sig})
		}
	}
	for _, p := range ctx.list {
		if len(p.row.OpenL3Vector) == 0 {
			continue
		}
		if nv, ok := normalizeVec(p.row.OpenL3Vector); ok {
			ctx.openl3 = append(ctx.openl3, positiveOpenL3{id: p.id, vec: nv})
		}
	}
	ctx.centroid = buildCentroid(ctx.openl3)
	return ctx
}

func buildCentroid(vectors []positiveOpenL3) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	dim := 0
	for _, v := range vectors {
		if len(v.vec) > 0 {
			dim = len(v.vec)
			break
		}
	}
	if dim == 0 {
		return nil
	}
	acc := make([]float64, dim)
	count := 0
	for _, v := range vectors {
		if len(v.vec) != dim {
			continue
		}
		for i, x := range v.vec {
			acc[i] += float64(x)
		}
		count++
	}
	if count == 0 {
		return nil
	}
	inv := 1.0 / float64(count)
	mean := make([]float32, dim)
	for i, x := range acc {
		mean[i] = float32(x * inv)
	}
	centroid, ok := normalizeVec(mean)
	if !ok {
		return nil
	}
	return centroid
}

// buildFeatureVector computes FeatureNames' values for one candidate row
// against a positive-set context. excludeID, when non-empty, removes a
// positive from its own comparison set during leave-one-out training.
func buildFeatureVector(candidate featurestore.Row, ctx positiveContext, excludeID string) []float32 {
	hpcpCorrMax, hasHPCP := featureHPCPCorrMax(candidate, ctx.list, excludeID)
	bpmDiffMin, hasBPM := featureBPMDiffMin(candidate, ctx.list, excludeID)
	keyDistMin, hasKey := featureKeyDistMin(candidate, ctx.list, excludeID)
	durationDiffMin, hasDuration := featureDurationDiffMin(candidate, ctx.list, excludeID)

	bitrateKbps := float32(0)
	hasBitrate := float32(0)
	if candidate.BitrateKbps != nil {
		bitrateKbps = float32(*candidate.BitrateKbps)
		hasBitrate = 1
	}

	rmsMean := float32(0)
	hasRMS := float32(0)
	if candidate.RMSMean != nil {
		rmsMean = float32(*candidate.RMSMean)
		hasRMS = 1
	}

	durationDiffMinLog1p := float32(math.Log(float64(maxFloat32(durationDiffMin, 0)) + 1))

	chromaSimMax, hasChroma := featureChromaprintSimMax(candidate, ctx.chromaprints, excludeID)
	openl3Max, openl3Top5, openl3Top20, openl3Centroid, hasOpenL3, hasOpenL3Pos :=
		featureOpenL3SimStats(candidate, ctx.openl3, ctx.centroid, excludeID)

	values := map[string]float32{
		"hpcp_corr_max":            hpcpCorrMax,
		"bpm_diff_min":             bpmDiffMin,
		"key_dist_min":             keyDistMin,
		"duration_diff_min_log1p":  durationDiffMinLog1p,
		"bitrate_kbps":             bitrateKbps,
		"rms_mean":                 rmsMean,
		"has_hpcp":                 hasHPCP,
		"has_bpm":                  hasBPM,
		"has_key":                  hasKey,
		"has_duration":             hasDuration,
		"has_bitrate":              hasBitrate,
		"has_rms":                  hasRMS,
		"chromaprint_sim_max":      chromaSimMax,
		"has_chromaprint":          hasChroma,
		"openl3_sim_max":           openl3Max,
		"openl3_sim_top5_mean":     openl3Top5,
		"openl3_sim_top20_mean":    openl3Top20,
		"openl3_sim_centroid":      openl3Centroid,
		"has_openl3":               hasOpenL3,
		"has_openl3_pos":           hasOpenL3Pos,
	}

	out := make([]float32, len(FeatureNames))
	for i, name := range FeatureNames {
		out[i] = values[name]
	}
	return out
}

func featureHPCPCorrMax(candidate featurestore.Row, positives []positiveRef, excludeID string) (float32, float32) {
	if len(candidate.HPCP) == 0 {
		return 0, 0
	}
	var best float32
	var any bool
	for _, p := range positives {
		if p.id == excludeID || len(p.row.HPCP) == 0 {
			continue
		}
		any = true
		if sim := cosineSimilarity(candidate.HPCP, p.row.HPCP); sim > best {
			best = sim
		}
	}
	return best, boolToF32(any)
}

func featureBPMDiffMin(candidate featurestore.Row, positives []positiveRef, excludeID string) (float32, float32) {
	if candidate.BPM == nil {
		return 999, 0
	}
	best := float32(math.Inf(1))
	var any bool
	for _, p := range positives {
		if p.id == excludeID || p.row.BPM == nil {
			continue
		}
		any = true
		best = minFloat32(best, float32(math.Abs(*candidate.BPM-*p.row.BPM)))
	}
	if math.IsInf(float64(best), 1) {
		best = 999
	}
	return best, boolToF32(any)
}

func featureKeyDistMin(candidate featurestore.Row, positives []positiveRef, excludeID string) (float32, float32) {
	if candidate.Key == nil {
		return 99, 0
	}
	candCode, ok := parseKeyCode(*candidate.Key)
	if !ok {
		return 99, 0
	}
	best := float32(math.Inf(1))
	var any bool
	for _, p := range positives {
		if p.id == excludeID || p.row.Key == nil {
			continue
		}
		posCode, ok := parseKeyCode(*p.row.Key)
		if !ok {
			continue
		}
		any = true
		best = minFloat32(best, keyDistance(candCode, posCode))
	}
	if math.IsInf(float64(best), 1) {
		best = 99
	}
	return best, boolToF32(any)
}

func featureDurationDiffMin(candidate featurestore.Row, positives []positiveRef, excludeID string) (float32, float32) {
	if candidate.DurationSec == nil {
		return 999999, 0
	}
	best := float32(math.Inf(1))
	var any bool
	for _, p := range positives {
		if p.id == excludeID || p.row.DurationSec == nil {
			continue
		}
		any = true
		best = minFloat32(best, float32(math.Abs(*candidate.DurationSec-*p.row.DurationSec)))
	}
	if math.IsInf(float64(best), 1) {
		best = 999999
	}
	return best, boolToF32(any)
}

func featureChromaprintSimMax(candidate featurestore.Row, positives []positiveChromaprint, excludeID string) (float32, float32) {
	if candidate.ChromaprintFingerprint == nil {
		return 0, 0
	}
	candSig, ok := chromaprintSimhash(*candidate.ChromaprintFingerprint)
	if !ok {
		return 0, 0
	}
	var best float32
	var any bool
	for _, p := range positives {
		if p.id == excludeID {
			continue
		}
		any = true
		if sim := simhashSimilarity64(candSig, p.sig); sim > best {
			best = sim
		}
	}
	return best, boolToF32(any)
}

func featureOpenL3SimStats(candidate featurestore.Row, positives []positiveOpenL3, centroid []float32, excludeID string) (
	simMax, top5Mean, top20Mean, centroidSim, hasOpenL3, hasOpenL3Pos float32) {

	hasOpenL3Pos = boolToF32(len(positives) > 0)
	if len(candidate.OpenL3Vector) == 0 {
		return 0, 0, 0, 0, 0, hasOpenL3Pos
	}
	cand, ok := normalizeVec(candidate.OpenL3Vector)
	if !ok {
		return 0, 0, 0, 0, 0, hasOpenL3Pos
	}

	var sims []float32
	for _, p := range positives {
		if p.id == excludeID {
			continue
		}
		sims = append(sims, dotSimilarity(cand, p.vec))
	}

	if centroid != nil {
		centroidSim = dotSimilarity(cand, centroid)
	}

	if len(sims) == 0 {
		return 0, 0, 0, centroidSim, 1, 0
	}

	sort.Slice(sims, func(i, j int) bool { return sims[i] > sims[j] })
	simMax = sims[0]
	top5Mean = meanOfFirst(sims, 5)
	top20Mean = meanOfFirst(sims, 20)
	return simMax, top5Mean, top20Mean, centroidSim, 1, 1
}

func meanOfFirst(sims []float32, n int) float32 {
	if n > len(sims) {
		n = len(sims)
	}
	var sum float32
	for _, s := range sims[:n] {
		sum += s
	}
	return sum / float32(n)
}

func cosineSimilarity(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	var dot, na, nb float32
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na <= 0 || nb <= 0 {
		return 0
	}
	return dot / (sqrtF32(na) * sqrtF32(nb))
}

func dotSimilarity(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float32
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	return dot
}

func normalizeVec(v []float32) ([]float32, bool) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if math.IsInf(sum, 0) || math.IsNaN(sum) || sum <= 0 {
		return nil, false
	}
	inv := float32(1.0 / math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * inv
	}
	return out, true
}

// parseKeyCode maps a "root[:mode]" or "<Root><m?>" style key label to a
// 0..23 code: 0-11 major by pitch class, 12-23 minor by pitch class.
func parseKeyCode(key string) (int, bool) {
	raw := strings.ToLower(strings.TrimSpace(key))
	if raw == "" {
		return 0, false
	}
	root, mode, hasMode := strings.Cut(raw, ":")
	bareMinor := false
	if !hasMode {
		if trimmed := strings.TrimSuffix(root, "m"); trimmed != root {
			root = trimmed
			bareMinor = true
		}
	} else if mode == "" {
		mode = "maj"
	}

	pitches := map[string]int{
		"c": 0, "c#": 1, "db": 1, "d": 2, "d#": 3, "eb": 3, "e": 4, "f": 5,
		"f#": 6, "gb": 6, "g": 7, "g#": 8, "ab": 8, "a": 9, "a#": 10, "bb": 10, "b": 11,
	}
	pitch, ok := pitches[root]
	if !ok {
		return 0, false
	}
	minor := bareMinor || mode == "min" || mode == "minor" || strings.HasSuffix(mode, "m")
	code := pitch
	if minor {
		code += 12
	}
	return code, true
}

func keyDistance(a, b int) float32 {
	aPitch, bPitch := a%12, b%12
	aMode, bMode := a/12, b/12
	diff := aPitch - bPitch
	if diff < 0 {
		diff = -diff
	}
	semitoneDist := diff
	if 12-diff < semitoneDist {
		semitoneDist = 12 - diff
	}
	modePenalty := 0
	if aMode != bMode {
		modePenalty = 1
	}
	return float32(semitoneDist + modePenalty)
}

// chromaprintSimhash compresses a comma-separated fpcalc fingerprint into a
// 64-bit SimHash for cheap approximate similarity comparisons.
func chromaprintSimhash(fingerprint string) (uint64, bool) {
	raw := strings.TrimSpace(fingerprint)
	if raw == "" {
		return 0, false
	}

	const maxTokens = 4096
	var acc [64]int32
	var any bool
	for i, part := range strings.Split(raw, ",") {
		if i >= maxTokens {
			break
		}
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}
		any = true
		h := mix64(uint64(uint32(v)))
		for bit := 0; bit < 64; bit++ {
			if (h>>uint(bit))&1 == 1 {
				acc[bit]++
			} else {
				acc[bit]--
			}
		}
	}
	if !any {
		return 0, false
	}
	var out uint64
	for bit := 0; bit < 64; bit++ {
		if acc[bit] >= 0 {
			out |= 1 << uint(bit)
		}
	}
	return out, true
}

func simhashSimilarity64(a, b uint64) float32 {
	dist := popcount64(a ^ b)
	return 1 - float32(dist)/64
}

func popcount64(x uint64) int {
	count := 0
	for x != 0 {
		x &= x - 1
		count++
	}
	return count
}

// mix64 is SplitMix64's mixing step: fast, dependency-free avalanche.
func mix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

func boolToF32(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

func minFloat32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxFloat32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func sqrtF32(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}
