package api

import (
	"context"

	"github.com/coderdj/frkb-engine/internal/errors"
	"github.com/coderdj/frkb-engine/internal/selection/labelstore"
	"github.com/coderdj/frkb-engine/internal/selection/paths"
)

// SetLabelsResult reports the outcome of a bulk label assignment.
type SetLabelsResult struct {
	Total             int
	Changed           int
	SampleChangeCount int64
}

// LabelSnapshot is the full positive/negative training set plus the
// counter that gates retraining.
type LabelSnapshot struct {
	PositiveIDs       []string
	NegativeIDs       []string
	SampleChangeCount int64
}

func openLabelStore(labelStorePath string) (*labelstore.Store, error) {
	return labelstore.Open(paths.NormalizeLabelStorePath(labelStorePath))
}

// SetSelectionLabels assigns label ("liked"/"disliked"/"neutral") to every
// songID, bumping the sample-change counter by however many rows actually
// changed.
func SetSelectionLabels(ctx context.Context, labelStorePath string, songIDs []string, label string) (SetLabelsResult, error) {
	if err := ctx.Err(); err != nil {
		return SetLabelsResult{}, err
	}
	parsed, ok := labelstore.ParseLabel(label)
	if !ok {
		return SetLabelsResult{}, errors.Newf("label must be liked/disliked/neutral, got %q", label).
			Component("selection_api").Category(errors.CategoryInternal).Build()
	}

	store, err := openLabelStore(labelStorePath)
	if err != nil {
		return SetLabelsResult{}, err
	}
	defer store.Close()

	total, changed, count, err := store.SetLabelsBulk(songIDs, parsed)
	if err != nil {
		return SetLabelsResult{}, err
	}
	return SetLabelsResult{Total: total, Changed: changed, SampleChangeCount: count}, nil
}

// GetSelectionLabel returns songID's current label, defaulting to
// "neutral" when unlabeled.
func GetSelectionLabel(ctx context.Context, labelStorePath, songID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	store, err := openLabelStore(labelStorePath)
	if err != nil {
		return "", err
	}
	defer store.Close()

	label, err := store.LabelForSongID(songID)
	if err != nil {
		return "", err
	}
	return label.String(), nil
}

// GetSelectionLabelSnapshot returns the full positive/negative id sets and
// the current sample-change counter.
func GetSelectionLabelSnapshot(ctx context.Context, labelStorePath string) (LabelSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return LabelSnapshot{}, err
	}
	store, err := openLabelStore(labelStorePath)
	if err != nil {
		return LabelSnapshot{}, err
	}
	defer store.Close()

	count, err := store.SampleChangeCount()
	if err != nil {
		return LabelSnapshot{}, err
	}
	positives, negatives, err := store.Snapshot()
	if err != nil {
		return LabelSnapshot{}, err
	}
	return LabelSnapshot{PositiveIDs: positives, NegativeIDs: negatives, SampleChangeCount: count}, nil
}

// BumpSelectionSampleChangeCount adjusts the sample-change counter by
// delta, floored at zero, and returns the new value.
func BumpSelectionSampleChangeCount(ctx context.Context, labelStorePath string, delta int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	store, err := openLabelStore(labelStorePath)
	if err != nil {
		return 0, err
	}
	defer store.Close()
	return store.BumpSampleChangeCount(delta)
}

// ResetSelectionSampleChangeCount zeroes the sample-change counter without
// touching any label rows.
func ResetSelectionSampleChangeCount(ctx context.Context, labelStorePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	store, err := openLabelStore(labelStorePath)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.ResetSampleChangeCount()
}

// ResetSelectionLabels deletes every label row and resets the counter.
func ResetSelectionLabels(ctx context.Context, labelStorePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	store, err := openLabelStore(labelStorePath)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.ResetAll()
}
