package model

import (
	"sort"
	"strings"

	"github.com/coderdj/frkb-engine/internal/errors"
	"github.com/coderdj/frkb-engine/internal/selection/featurestore"
	"github.com/coderdj/frkb-engine/internal/selection/gbdt"
)

// ModelVersion and ModelFileName match the concrete scenario/serialization
// constants resolved for OQ-1 in the paths package.
const (
	ModelVersion  = "selection_gbdt_v1"
	ModelFileName = "selection_gbdt_v1.bin"

	minPositiveSamples   = 20
	negativeToPositiveMin = 4
)

// TrainedModel is the full serializable artifact: the fitted ensemble plus
// the training-time provenance needed to rebuild features identically at
// predict time.
type TrainedModel struct {
	FormatVersion int
	ModelRevision int64
	TrainedAtMs   string
	PositiveIDs   []string
	FeatureNames  []string
	GBDT          *gbdt.Model
}

// PredictItem is one scored candidate.
type PredictItem struct {
	ID       string
	Score    float32
	FileHash string
}

// DedupeIDs trims/drops blanks, dedupes, and resolves positive/negative
// conflicts in favor of the positive label. Both outputs are sorted.
func DedupeIDs(positiveIDs, negativeIDs []string) (positives, negatives []string) {
	posSet := map[string]struct{}{}
	for _, id := range positiveIDs {
		if t := strings.TrimSpace(id); t != "" {
			posSet[t] = struct{}{}
		}
	}
	negSet := map[string]struct{}{}
	for _, id := range negativeIDs {
		if t := strings.TrimSpace(id); t != "" {
			negSet[t] = struct{}{}
		}
	}
	for id := range posSet {
		delete(negSet, id)
	}

	positives = make([]string, 0, len(posSet))
	for id := range posSet {
		positives = append(positives, id)
	}
	negatives = make([]string, 0, len(negSet))
	for id := range negSet {
		negatives = append(negatives, id)
	}
	sort.Strings(positives)
	sort.Strings(negatives)
	return positives, negatives
}

// TrainOutcome distinguishes "trained" from the non-error
// insufficient-samples result, mirroring errors.StatusInsufficientSamples.
type TrainOutcome struct {
	Trained          bool
	InsufficientData bool
	Model            *TrainedModel
}

// Train fits a new model revision from labeled song ids, requiring at least
// minPositiveSamples positives and negativeToPositiveMin times as many
// negatives as positives. Every labeled id must already have a
// featurestore row; a missing row is a hard db_error, not a training
// failure to be silently skipped.
func Train(
	positiveIDsIn, negativeIDsIn []string,
	modelRevision int64,
	featuresByID map[string]featurestore.Row,
	trainedAtMs string,
) (TrainOutcome, error) {
	positiveIDs, negativeIDs := DedupeIDs(positiveIDsIn, negativeIDsIn)

	if len(positiveIDs) < minPositiveSamples || len(negativeIDs) < negativeToPositiveMin*len(positiveIDs) {
		return TrainOutcome{InsufficientData: true}, nil
	}

	var missing []string
	for _, id := range positiveIDs {
		if _, ok := featuresByID[id]; !ok {
			missing = append(missing, id)
		}
	}
	for _, id := range negativeIDs {
		if _, ok := featuresByID[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return TrainOutcome{}, errors.Newf("song_features missing for %d labeled ids", len(missing)).
			Component("selection_model").Category(errors.CategoryDatabase).Build()
	}

	ctx := buildPositiveContext(positiveIDs, featuresByID)

	samples := make([]gbdt.Sample, 0, len(positiveIDs)+len(negativeIDs))
	for _, id := range positiveIDs {
		feat := buildFeatureVector(featuresByID[id], ctx, id)
		samples = append(samples, gbdt.Sample{Features: feat, Label: 1})
	}
	for _, id := range negativeIDs {
		feat := buildFeatureVector(featuresByID[id], ctx, "")
		samples = append(samples, gbdt.Sample{Features: feat, Label: -1})
	}

	cfg := gbdt.DefaultConfig(len(FeatureNames))
	fitted := gbdt.Fit(samples, cfg)

	return TrainOutcome{
		Trained: true,
		Model: &TrainedModel{
			FormatVersion: 1,
			ModelRevision: modelRevision,
			TrainedAtMs:   trainedAtMs,
			PositiveIDs:   positiveIDs,
			FeatureNames:  append([]string(nil), FeatureNames...),
			GBDT:          fitted,
		},
	}, nil
}

// Predict scores candidateIDs against a trained model, using
// positiveFeaturesByID to rebuild the model's positive-set comparison
// context (it may be a superset/subset of what candidateFeaturesByID
// holds, e.g. when positives were re-scanned since training). Results are
// sorted by score, descending.
func Predict(
	m *TrainedModel,
	candidateIDs []string,
	candidateFeaturesByID map[string]featurestore.Row,
	positiveFeaturesByID map[string]featurestore.Row,
) []PredictItem {
	ctx := buildPositiveContext(m.PositiveIDs, positiveFeaturesByID)

	type candidate struct {
		id  string
		row featurestore.Row
	}
	var candidates []candidate
	for _, id := range candidateIDs {
		if row, ok := candidateFeaturesByID[id]; ok {
			candidates = append(candidates, candidate{id: id, row: row})
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	items := make([]PredictItem, len(candidates))
	for i, c := range candidates {
		feat := buildFeatureVector(c.row, ctx, "")
		items[i] = PredictItem{
			ID:       c.id,
			Score:    m.GBDT.Predict(feat),
			FileHash: c.row.FileHash,
		}
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	return items
}
