// Package gbdt is a small gradient-boosted regression-tree ensemble for
// binary classification, fit with binomial-deviance ("LogLikelyhood")
// pseudo-residuals the way the selection model's training step needs:
// bagged, depth-capped trees boosted over many shrunk iterations. There is
// no general-purpose GBDT library anywhere in the example corpus, so this
// is a deliberately narrow, from-scratch implementation scoped to exactly
// the knobs the selection model uses — not a general ML toolkit.
package gbdt

import (
	"math"
	"math/rand"
)

// Sample is one training row: Features in the model's fixed feature order,
// Label +1 for positive, -1 for negative.
type Sample struct {
	Features []float32
	Label    float64
}

// Config mirrors the handful of hyperparameters the selection model pins.
type Config struct {
	MaxDepth           int
	MinLeafSize        int
	Iterations         int
	Shrinkage          float64
	DataSampleRatio    float64
	FeatureSampleRatio float64
	Seed               int64
}

// DefaultConfig matches the selection model's training call.
func DefaultConfig(featureSize int) Config {
	return Config{
		MaxDepth:           6,
		MinLeafSize:        1,
		Iterations:         400,
		Shrinkage:          0.05,
		DataSampleRatio:    0.8,
		FeatureSampleRatio: 0.8,
		Seed:               0,
	}
}

type treeNode struct {
	Leaf      bool
	Value     float64
	Feature   int
	Threshold float32
	Left      *treeNode
	Right     *treeNode
}

// Model is a fitted ensemble: a flat sequence of shrunk regression trees.
type Model struct {
	Trees     []*treeNode
	Shrinkage float64
}

// Fit trains an ensemble on samples per cfg. Samples must all share the
// same Features length.
func Fit(samples []Sample, cfg Config) *Model {
	n := len(samples)
	if n == 0 {
		return &Model{Shrinkage: cfg.Shrinkage}
	}
	featureSize := len(samples[0].Features)

	rng := rand.New(rand.NewSource(cfg.Seed))
	margins := make([]float64, n)
	model := &Model{Shrinkage: cfg.Shrinkage}

	for iter := 0; iter < cfg.Iterations; iter++ {
		residuals := make([]float64, n)
		for i, s := range samples {
			residuals[i] = binomialGradient(s.Label, margins[i])
		}

		rows := sampleRows(n, cfg.DataSampleRatio, rng)
		features := sampleFeatures(featureSize, cfg.FeatureSampleRatio, rng)

		tree := fitTree(samples, residuals, rows, features, cfg.MaxDepth, cfg.MinLeafSize)
		model.Trees = append(model.Trees, tree)

		for i, s := range samples {
			margins[i] += cfg.Shrinkage * evalTree(tree, s.Features)
		}
	}
	return model
}

// Predict returns the ensemble's raw margin for one feature vector. Higher
// is a stronger positive-class signal; callers rank by this value rather
// than treating it as a calibrated probability.
func (m *Model) Predict(features []float32) float32 {
	var margin float64
	for _, t := range m.Trees {
		margin += m.Shrinkage * evalTree(t, features)
	}
	return float32(margin)
}

// binomialGradient is the negative gradient of binomial deviance loss for
// label y in {-1, +1} at current margin F, i.e. 2y / (1 + exp(2yF)).
func binomialGradient(y, f float64) float64 {
	return 2 * y / (1 + math.Exp(2*y*f))
}

func sampleRows(n int, ratio float64, rng *rand.Rand) []int {
	if ratio <= 0 || ratio >= 1 {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	k := int(float64(n) * ratio)
	if k < 1 {
		k = 1
	}
	perm := rng.Perm(n)
	return perm[:k]
}

func sampleFeatures(total int, ratio float64, rng *rand.Rand) []int {
	if ratio <= 0 || ratio >= 1 {
		out := make([]int, total)
		for i := range out {
			out[i] = i
		}
		return out
	}
	k := int(float64(total) * ratio)
	if k < 1 {
		k = 1
	}
	perm := rng.Perm(total)
	return perm[:k]
}

func evalTree(node *treeNode, features []float32) float64 {
	for !node.Leaf {
		if int(node.Feature) < len(features) && features[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

func fitTree(samples []Sample, residuals []float64, rows, features []int, maxDepth, minLeafSize int) *treeNode {
	return buildNode(samples, residuals, rows, features, 0, maxDepth, minLeafSize)
}

func buildNode(samples []Sample, residuals []float64, rows, features []int, depth, maxDepth, minLeafSize int) *treeNode {
	if depth >= maxDepth || len(rows) <= minLeafSize*2 {
		return leafFrom(residuals, rows)
	}

	bestFeature := -1
	var bestThreshold float32
	bestGain := 0.0
	bestLeft, bestRight := []int{}, []int{}

	parentSSE := sse(residuals, rows)

	for _, f := range features {
		sortedRows := append([]int(nil), rows...)
		sortRowsByFeature(samples, sortedRows, f)

		for i := minLeafSize; i < len(sortedRows)-minLeafSize; i++ {
			left := sortedRows[:i]
			right := sortedRows[i:]
			threshold := samples[sortedRows[i-1]].Features[f]

			gain := parentSSE - sse(residuals, left) - sse(residuals, right)
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = threshold
				bestLeft = append([]int(nil), left...)
				bestRight = append([]int(nil), right...)
			}
		}
	}

	if bestFeature < 0 {
		return leafFrom(residuals, rows)
	}

	return &treeNode{
		Leaf:      false,
		Feature:   bestFeature,
		Threshold: bestThreshold,
		Left:      buildNode(samples, residuals, bestLeft, features, depth+1, maxDepth, minLeafSize),
		Right:     buildNode(samples, residuals, bestRight, features, depth+1, maxDepth, minLeafSize),
	}
}

func leafFrom(residuals []float64, rows []int) *treeNode {
	if len(rows) == 0 {
		return &treeNode{Leaf: true, Value: 0}
	}
	var sum float64
	for _, r := range rows {
		sum += residuals[r]
	}
	return &treeNode{Leaf: true, Value: sum / float64(len(rows))}
}

func sse(residuals []float64, rows []int) float64 {
	if len(rows) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rows {
		sum += residuals[r]
	}
	mean := sum / float64(len(rows))
	var total float64
	for _, r := range rows {
		d := residuals[r] - mean
		total += d * d
	}
	return total
}

func sortRowsByFeature(samples []Sample, rows []int, feature int) {
	// Small inputs (selection-model sample counts): insertion sort keeps
	// this allocation-free and avoids pulling in sort.Slice's closure cost
	// for what is, per node, a tiny re-sort.
	for i := 1; i < len(rows); i++ {
		j := i
		for j > 0 && samples[rows[j-1]].Features[feature] > samples[rows[j]].Features[feature] {
			rows[j-1], rows[j] = rows[j], rows[j-1]
			j--
		}
	}
}
