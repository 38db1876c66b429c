package api

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/coderdj/frkb-engine/internal/conf"
	"github.com/coderdj/frkb-engine/internal/errors"
	"github.com/coderdj/frkb-engine/internal/selection/featurestore"
	"github.com/coderdj/frkb-engine/internal/selection/model"
	"github.com/coderdj/frkb-engine/internal/selection/paths"
)

// TrainResult is the status envelope spec 4.M mandates: "trained",
// "insufficient_samples", or "failed" with a Failed detail.
type TrainResult struct {
	Status        string
	ModelRevision *int64
	ModelPath     *string
	Failed        *Failed
}

func trainFailed(err error) TrainResult {
	return TrainResult{Status: "failed", Failed: failedFrom(err)}
}

// TrainSelectionGBDT trains a new model revision from the given label sets,
// writes the artifact and manifest under featureStorePath's library root,
// and evicts any prediction-cache rows for stale revisions. Never returns a
// Go error: every failure mode is reported through the Status/Failed
// fields, per spec 4.M's "no exceptions escape to the API boundary".
func TrainSelectionGBDT(ctx context.Context, positiveIDs, negativeIDs []string, featureStorePath string) TrainResult {
	if err := ctx.Err(); err != nil {
		return trainFailed(err)
	}

	dbPath := paths.NormalizeFeatureStorePath(featureStorePath)
	if dbPath == "" {
		return trainFailed(errors.Newf("featureStorePath must not be empty").
			Component("selection_api").Category(errors.CategoryInternal).Build())
	}
	libraryRoot := paths.LibraryRootFromFeatureStorePath(dbPath)
	modelDir := paths.SelectionModelDir(libraryRoot)
	manifestPath := paths.SelectionManifestPath(libraryRoot)
	modelPath := paths.SelectionGbdtModelPath(libraryRoot)

	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return trainFailed(errors.New(err).Component("selection_api").Category(errors.CategoryInternal).Build())
	}

	existing, err := ReadManifest(manifestPath)
	if err != nil {
		return trainFailed(errors.New(err).Component("selection_api").Category(errors.CategoryModelLoad).Build())
	}
	var oldRevision int64
	if existing != nil {
		oldRevision = existing.ModelRevision
	}
	newRevision := oldRevision + 1

	store, err := openFeatureStore(featureStorePath)
	if err != nil {
		return trainFailed(err)
	}
	defer store.Close()

	allIDs := dedupeSorted(append(append([]string{}, positiveIDs...), negativeIDs...))
	featuresByID, err := store.GetMap(allIDs)
	if err != nil {
		return trainFailed(err)
	}

	trainedAtMs := strconv.FormatInt(time.Now().UnixMilli(), 10)
	outcome, err := model.Train(positiveIDs, negativeIDs, newRevision, featuresByID, trainedAtMs)
	if err != nil {
		return trainFailed(err)
	}
	if outcome.InsufficientData {
		return TrainResult{Status: "insufficient_samples"}
	}

	blob, err := model.Serialize(outcome.Model)
	if err != nil {
		return trainFailed(err)
	}
	if err := os.WriteFile(modelPath, blob, 0o644); err != nil {
		return trainFailed(errors.New(err).Component("selection_api").Category(errors.CategoryInternal).Build())
	}

	var openl3Version *string
	if v := conf.Load().OpenL3ModelVersion; v != "" {
		openl3Version = &v
	}
	manifest := &SelectionManifest{
		SchemaVersion:      1,
		ModelRevision:      newRevision,
		GBDTModelVersion:   model.ModelVersion,
		GBDTModelFile:      model.ModelFileName,
		OpenL3ModelVersion: openl3Version,
		UpdatedAt:          trainedAtMs,
	}
	if err := WriteManifest(manifestPath, manifest); err != nil {
		return trainFailed(err)
	}

	// Best-effort: stale-revision cache eviction never blocks a successful train.
	_, _ = store.DeletePredictionCacheExceptRevision(newRevision)

	return TrainResult{Status: "trained", ModelRevision: &newRevision, ModelPath: &modelPath}
}

// PredictItem is one scored candidate.
type PredictItem struct {
	ID    string
	Score float64
}

// PredictResult is the status envelope for PredictSelectionCandidates:
// "ok", "not_trained" (no model on disk yet), or "failed".
type PredictResult struct {
	Status        string
	ModelRevision *int64
	Items         []PredictItem
	Failed        *Failed
}

func predictFailed(err error) PredictResult {
	return PredictResult{Status: "failed", Failed: failedFrom(err)}
}

// PredictSelectionCandidates scores candidateIDs against the trained model
// at modelPathOverride (or featureStorePath's default location), applying
// the prediction cache and truncating to topK (default 100), highest score
// first.
func PredictSelectionCandidates(ctx context.Context, candidateIDs []string, featureStorePath string, modelPathOverride string, topK int) PredictResult {
	if err := ctx.Err(); err != nil {
		return predictFailed(err)
	}

	dbPath := paths.NormalizeFeatureStorePath(featureStorePath)
	if dbPath == "" {
		return predictFailed(errors.Newf("featureStorePath must not be empty").
			Component("selection_api").Category(errors.CategoryInternal).Build())
	}
	libraryRoot := paths.LibraryRootFromFeatureStorePath(dbPath)
	resolvedModelPath := resolveModelPath(libraryRoot, modelPathOverride)

	if _, err := os.Stat(resolvedModelPath); err != nil {
		if os.IsNotExist(err) {
			return PredictResult{Status: "not_trained"}
		}
		return predictFailed(errors.New(err).Component("selection_api").Category(errors.CategoryModelLoad).Build())
	}

	blob, err := os.ReadFile(resolvedModelPath)
	if err != nil {
		return predictFailed(errors.New(err).Component("selection_api").Category(errors.CategoryModelLoad).Build())
	}
	trained, err := model.Deserialize(blob)
	if err != nil {
		return predictFailed(err)
	}

	store, err := openFeatureStore(featureStorePath)
	if err != nil {
		return predictFailed(err)
	}
	defer store.Close()

	queryIDs := dedupeSorted(candidateIDs)
	candidateFeatures, err := store.GetMap(queryIDs)
	if err != nil {
		return predictFailed(err)
	}
	positiveFeatures, err := store.GetMap(trained.PositiveIDs)
	if err != nil {
		return predictFailed(err)
	}

	scored := model.Predict(trained, candidateIDs, candidateFeatures, positiveFeatures)

	// Cache lookup is best-effort: a failure just forces every score to be
	// recomputed rather than blocking the prediction.
	cached, _ := store.PredictionCacheMap(trained.ModelRevision, queryIDs)

	items := make([]PredictItem, 0, len(scored))
	var toCache []featurestore.PredictionCacheEntry
	for _, it := range scored {
		if score, ok := cached[[2]string{it.ID, it.FileHash}]; ok {
			items = append(items, PredictItem{ID: it.ID, Score: float64(score)})
			continue
		}
		items = append(items, PredictItem{ID: it.ID, Score: float64(it.Score)})
		toCache = append(toCache, featurestore.PredictionCacheEntry{
			SongID: it.ID, ModelRevision: trained.ModelRevision, FileHash: it.FileHash, Score: it.Score,
		})
	}
	if len(toCache) > 0 {
		_, _ = store.UpsertPredictionCache(toCache) // best-effort write-back
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	if topK <= 0 {
		topK = 100
	}
	if len(items) > topK {
		items = items[:topK]
	}

	rev := trained.ModelRevision
	return PredictResult{Status: "ok", ModelRevision: &rev, Items: items}
}

func resolveModelPath(libraryRoot, override string) string {
	if override == "" {
		return paths.SelectionGbdtModelPath(libraryRoot)
	}
	if filepath.IsAbs(override) {
		return override
	}
	return filepath.Join(libraryRoot, override)
}
