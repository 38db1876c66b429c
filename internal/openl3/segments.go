package openl3

import (
	"math"
	"sort"
)

const (
	targetSampleRate = 48000
	windowSeconds    = 1.0
	hopSeconds       = 0.1

	defaultMaxSeconds = 120.0
	defaultMaxWindows = 200
	defaultBatch      = 16

	featureSegmentSeconds        = 12.0
	featureSegmentHopSeconds     = 4.0
	featureSegmentCount          = 3
	featureSegmentEdgeGuardSecs  = 6.0
	featureSegmentMinGapRatio    = 0.6
)

// featureSegment is one candidate high-energy window, shared by the
// RMS/HPCP/BPM/OpenL3 segment-selection policy.
type featureSegment struct {
	start, end int
	rms        float32
}

// sampleReflect indexes signal with reflect boundary handling, mirroring
// indices past either edge rather than clamping.
func sampleReflect(signal []float32, idx int) float32 {
	if len(signal) == 0 {
		return 0
	}
	n := len(signal)
	period := maxInt(n-1, 1) * 2
	i := idx
	if i < 0 {
		i = -i
	}
	m := i % period
	if m >= n {
		m = period - m
	}
	return signal[m]
}

func sliceReflect(signal []float32, start, length int) []float32 {
	out := make([]float32, length)
	for i := 0; i < length; i++ {
		out[i] = sampleReflect(signal, start+i)
	}
	return out
}

// resampleLinear linearly resamples input from srcSR to dstSR with
// reflect-boundary sampling for interpolation past either edge.
func resampleLinear(input []float32, srcSR, dstSR uint32) []float32 {
	if len(input) == 0 || srcSR == 0 || dstSR == 0 || srcSR == dstSR {
		return input
	}
	ratio := float64(dstSR) / float64(srcSR)
	outLen := int(float64(len(input))*ratio + 0.5)
	if outLen < 1 {
		outLen = 1
	}
	out := make([]float32, outLen)
	for i := 0; i < outLen; i++ {
		pos := float64(i) / ratio
		idx := int(pos)
		if pos < 0 {
			idx--
		}
		frac := float32(pos - float64(idx))
		a := sampleReflect(input, idx)
		b := sampleReflect(input, idx+1)
		out[i] = a*(1-frac) + b*frac
	}
	return out
}

func rmsOf(x []float32) float32 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	mean := sum / float64(len(x))
	if mean < 0 {
		mean = 0
	}
	return float32Sqrt(mean)
}

func float32Sqrt(x float64) float32 {
	if x <= 0 {
		return 0
	}
	return float32(math.Sqrt(x))
}

// selectFeatureSegments implements the shared segment-selection policy:
// slide a 12s window at 4s hop, excluding positions within 6s of either
// edge, pick up to 3 highest-RMS segments separated by ≥0.6×12s, falling
// back to the whole signal if none qualify.
func selectFeatureSegments(signal []float32, sampleRate uint32) []featureSegment {
	if len(signal) == 0 || sampleRate == 0 {
		return nil
	}

	segmentFrames := roundPositive(featureSegmentSeconds * float64(sampleRate))
	if len(signal) <= segmentFrames {
		return []featureSegment{{0, len(signal), rmsOf(signal)}}
	}

	hopFrames := roundPositive(featureSegmentHopSeconds * float64(sampleRate))
	edgeGuardFrames := roundPositive(featureSegmentEdgeGuardSecs * float64(sampleRate))
	lastStart := len(signal) - segmentFrames

	var candidates []featureSegment
	for start := 0; start <= lastStart; start += hopFrames {
		if edgeGuardFrames > 0 {
			maxStart := lastStart - edgeGuardFrames
			if start < edgeGuardFrames || start > maxStart {
				continue
			}
		}
		end := start + segmentFrames
		candidates = append(candidates, featureSegment{start, end, rmsOf(signal[start:end])})
	}

	if len(candidates) == 0 {
		return []featureSegment{{0, len(signal), rmsOf(signal)}}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].rms > candidates[j].rms })

	minGapFrames := roundPositive(float64(segmentFrames) * featureSegmentMinGapRatio)
	var selected []featureSegment
	for _, c := range candidates {
		if len(selected) >= featureSegmentCount {
			break
		}
		separated := true
		for _, s := range selected {
			if absInt(c.start-s.start) < minGapFrames {
				separated = false
				break
			}
		}
		if separated {
			selected = append(selected, c)
		}
	}

	if len(selected) == 0 {
		return []featureSegment{{0, len(signal), rmsOf(signal)}}
	}

	sort.Slice(selected, func(i, j int) bool { return selected[i].start < selected[j].start })
	return selected
}

// buildWindowStarts slides a hop-spaced window from startAt to len,
// uniformly subsampling down to maxWindows positions if the schedule
// overflows.
func buildWindowStarts(length, hop, maxWindows, startAt int) []int {
	if length == 0 {
		return nil
	}
	if maxWindows < 1 {
		maxWindows = 1
	}
	var starts []int
	if startAt >= length {
		startAt = 0
	}
	for s := startAt; s < length; s += maxInt(hop, 1) {
		starts = append(starts, s)
	}
	return subsampleUniform(starts, maxWindows)
}

// buildWindowStartsForSegments emits hop-spaced starts within each selected
// segment (clamped so the window fits), falling back to the unconstrained
// schedule if no segment yields a start.
func buildWindowStartsForSegments(length, windowLen, hop, maxWindows int, segments []featureSegment) []int {
	if length == 0 {
		return nil
	}
	if len(segments) == 0 {
		return buildWindowStarts(length, hop, maxWindows, 0)
	}

	var starts []int
	for _, seg := range segments {
		segStart := minInt(seg.start, length)
		segEnd := minInt(seg.end, length)
		if segEnd <= segStart {
			continue
		}
		last := segStart
		if segEnd > windowLen {
			last = segEnd - windowLen
		}
		for s := segStart; s <= last; s += maxInt(hop, 1) {
			starts = append(starts, s)
		}
	}

	if len(starts) == 0 {
		return buildWindowStarts(length, hop, maxWindows, 0)
	}

	sort.Ints(starts)
	starts = dedupInts(starts)
	return subsampleUniform(starts, maxWindows)
}

func subsampleUniform(starts []int, maxWindows int) []int {
	if len(starts) <= maxWindows {
		return starts
	}
	if maxWindows <= 1 {
		return []int{starts[len(starts)/2]}
	}
	n := len(starts)
	out := make([]int, maxWindows)
	denom := maxWindows - 1
	for i := 0; i < maxWindows; i++ {
		idx := i * (n - 1) / denom
		if idx > n-1 {
			idx = n - 1
		}
		out[i] = starts[idx]
	}
	return out
}

func dedupInts(sorted []int) []int {
	if len(sorted) == 0 {
		return sorted
	}
	out := sorted[:1]
	for _, v := range sorted[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

func roundPositive(x float64) int {
	v := int(x + 0.5)
	if v < 1 {
		v = 1
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func absInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
