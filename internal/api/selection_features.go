package api

import (
	"context"
	"sort"
	"strings"

	"github.com/coderdj/frkb-engine/internal/selection/featurestore"
	"github.com/coderdj/frkb-engine/internal/selection/paths"
)

// SongFeaturePatch is one caller-supplied partial update to a song's
// feature row; nil fields leave the stored value untouched.
type SongFeaturePatch struct {
	SongID                 string
	FileHash               string
	ModelVersion           string
	OpenL3Vector           []float32
	ChromaprintFingerprint *string
	RMSMean                *float64
	HPCP                   []float32
	BPM                    *float64
	Key                    *string
	DurationSec            *float64
	BitrateKbps            *float64
}

// FeatureStatusItem reports whether a song already has any feature data on
// file.
type FeatureStatusItem struct {
	SongID      string
	HasFeatures bool
}

func openFeatureStore(featureStorePath string) (*featurestore.Store, error) {
	return featurestore.Open(paths.NormalizeFeatureStorePath(featureStorePath))
}

// UpsertSongFeatures writes items into featureStorePath's feature store,
// returning the number of rows affected.
func UpsertSongFeatures(ctx context.Context, featureStorePath string, items []SongFeaturePatch) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	store, err := openFeatureStore(featureStorePath)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	patches := make([]featurestore.Patch, len(items))
	for i, it := range items {
		patches[i] = featurestore.Patch{
			SongID: it.SongID, FileHash: it.FileHash, ModelVersion: it.ModelVersion,
			OpenL3Vector: it.OpenL3Vector, ChromaprintFingerprint: it.ChromaprintFingerprint,
			RMSMean: it.RMSMean, HPCP: it.HPCP, BPM: it.BPM, Key: it.Key,
			DurationSec: it.DurationSec, BitrateKbps: it.BitrateKbps,
		}
	}
	return store.Upsert(patches)
}

// GetSelectionFeatureStatus reports, for every (deduplicated, sorted)
// songID, whether any feature field is already on file.
func GetSelectionFeatureStatus(ctx context.Context, featureStorePath string, songIDs []string) ([]FeatureStatusItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids := dedupeSorted(songIDs)

	store, err := openFeatureStore(featureStorePath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	statusMap, err := store.FeatureStatusMap(ids)
	if err != nil {
		return nil, err
	}

	out := make([]FeatureStatusItem, len(ids))
	for i, id := range ids {
		out[i] = FeatureStatusItem{SongID: id, HasFeatures: statusMap[id]}
	}
	return out, nil
}

// DeleteSelectionPredictionCache removes any cached prediction rows for
// songIDs.
func DeleteSelectionPredictionCache(ctx context.Context, featureStorePath string, songIDs []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	store, err := openFeatureStore(featureStorePath)
	if err != nil {
		return 0, err
	}
	defer store.Close()
	return store.DeletePredictionCacheForSongIDs(songIDs)
}

// ClearSelectionPredictionCache removes every cached prediction row.
func ClearSelectionPredictionCache(ctx context.Context, featureStorePath string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	store, err := openFeatureStore(featureStorePath)
	if err != nil {
		return 0, err
	}
	defer store.Close()
	return store.ClearPredictionCache()
}

// dedupeSorted trims, drops blanks, deduplicates, and sorts ids. Shared by
// every entry point that accepts a song-id/path-key list, matching the
// original implementation's uniform id-list normalization.
func dedupeSorted(ids []string) []string {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if t := strings.TrimSpace(id); t != "" {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
