package api

import (
	"context"

	"github.com/coderdj/frkb-engine/internal/selection/pathindex"
	"github.com/coderdj/frkb-engine/internal/selection/paths"
)

// sqliteVarLimit bounds how many placeholders one IN(...) clause carries.
// pathindex.RowsByPathKeys puts every key it is given into one clause, so
// the chunking happens here, as in the original implementation's host-side
// chunking of this same call.
const sqliteVarLimit = 900

// PathIndexEntry mirrors one fully materialized path_song_map row.
type PathIndexEntry struct {
	PathKey    string
	FilePath   string
	Size       int64
	MtimeMs    int64
	SongID     string
	FileHash   string
	UpdatedAt  int64
	LastSeenAt int64
}

// UpsertPathIndexEntry is a caller-supplied row to upsert; UpdatedAt and
// LastSeenAt are always stamped with the nowMs passed to
// UpsertSelectionPathIndexEntries.
type UpsertPathIndexEntry struct {
	PathKey  string
	FilePath string
	Size     int64
	MtimeMs  int64
	SongID   string
	FileHash string
}

// PathIndexGCOptions configures GCSelectionPathIndex; unset or too-small
// values fall back to the same defaults as the original implementation:
// TTLDays ≤ 0 → 30 day TTL, MaxRows < 10k → 200k row cap, DeleteLimit < 100
// → 5k per-pass delete limit, MinIntervalMs ≤ 0 → 24h debounce.
type PathIndexGCOptions struct {
	TTLDays       int
	MaxRows       int64
	DeleteLimit   int64
	MinIntervalMs int64
}

// PathIndexGCResult reports what GCSelectionPathIndex actually did.
type PathIndexGCResult struct {
	Skipped         bool
	Before          int64
	After           int64
	DeletedOld      int64
	DeletedOverflow int64
	LastGCAt        int64
}

func openPathIndexStore(pathIndexStorePath string) (*pathindex.Store, error) {
	return pathindex.Open(paths.NormalizePathIndexStorePath(pathIndexStorePath))
}

// GetSelectionPathIndexEntries looks up every (deduplicated, sorted)
// pathKey, chunked under the SQLite IN(...) placeholder limit.
func GetSelectionPathIndexEntries(ctx context.Context, pathIndexStorePath string, pathKeys []string) ([]PathIndexEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys := dedupeSorted(pathKeys)

	store, err := openPathIndexStore(pathIndexStorePath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	var out []PathIndexEntry
	for start := 0; start < len(keys); start += sqliteVarLimit {
		end := start + sqliteVarLimit
		if end > len(keys) {
			end = len(keys)
		}
		rows, err := store.RowsByPathKeys(keys[start:end])
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, PathIndexEntry{
				PathKey: r.PathKey, FilePath: r.FilePath, Size: r.Size, MtimeMs: r.MtimeMs,
				SongID: r.SongID, FileHash: r.FileHash, UpdatedAt: r.UpdatedAt, LastSeenAt: r.LastSeenAt,
			})
		}
	}
	return out, nil
}

// UpsertSelectionPathIndexEntries writes items, stamping nowMs into
// UpdatedAt/LastSeenAt for every row, and returns the affected count.
func UpsertSelectionPathIndexEntries(ctx context.Context, pathIndexStorePath string, items []UpsertPathIndexEntry, nowMs int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	store, err := openPathIndexStore(pathIndexStorePath)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	rows := make([]pathindex.Row, len(items))
	for i, it := range items {
		rows[i] = pathindex.Row{
			PathKey: it.PathKey, FilePath: it.FilePath, Size: it.Size, MtimeMs: it.MtimeMs,
			SongID: it.SongID, FileHash: it.FileHash, UpdatedAt: nowMs, LastSeenAt: nowMs,
		}
	}
	return store.UpsertRows(rows)
}

// TouchSelectionPathIndexEntries bumps LastSeenAt for every (deduplicated,
// sorted) pathKey without otherwise modifying the row.
func TouchSelectionPathIndexEntries(ctx context.Context, pathIndexStorePath string, pathKeys []string, nowMs int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	keys := dedupeSorted(pathKeys)

	store, err := openPathIndexStore(pathIndexStorePath)
	if err != nil {
		return 0, err
	}
	defer store.Close()
	return store.TouchByPathKeys(keys, nowMs)
}

// DeleteSelectionPathIndexEntries removes every (deduplicated, sorted)
// pathKey's row.
func DeleteSelectionPathIndexEntries(ctx context.Context, pathIndexStorePath string, pathKeys []string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	keys := dedupeSorted(pathKeys)

	store, err := openPathIndexStore(pathIndexStorePath)
	if err != nil {
		return 0, err
	}
	defer store.Close()
	return store.DeleteByPathKeys(keys)
}

// GCSelectionPathIndex runs the debounced TTL/overflow garbage collection
// pass described by spec 4.J, applying opts' defaults where unset.
func GCSelectionPathIndex(ctx context.Context, pathIndexStorePath string, nowMs int64, opts PathIndexGCOptions) (PathIndexGCResult, error) {
	if err := ctx.Err(); err != nil {
		return PathIndexGCResult{}, err
	}
	ttlDays := opts.TTLDays
	if ttlDays <= 0 {
		ttlDays = 30
	}
	ttlMs := int64(ttlDays) * 24 * 60 * 60 * 1000

	maxRows := opts.MaxRows
	if maxRows < 10_000 {
		maxRows = 200_000
	}
	deleteLimit := opts.DeleteLimit
	if deleteLimit < 100 {
		deleteLimit = 5_000
	}
	minIntervalMs := opts.MinIntervalMs
	if minIntervalMs <= 0 {
		minIntervalMs = 24 * 60 * 60 * 1000
	}

	store, err := openPathIndexStore(pathIndexStorePath)
	if err != nil {
		return PathIndexGCResult{}, err
	}
	defer store.Close()

	res, err := store.GC(nowMs, minIntervalMs, ttlMs, maxRows, deleteLimit)
	if err != nil {
		return PathIndexGCResult{}, err
	}
	return PathIndexGCResult{
		Skipped: res.Skipped, Before: res.Before, After: res.After,
		DeletedOld: res.DeletedOld, DeletedOverflow: res.DeletedOverflow, LastGCAt: res.LastGCAt,
	}, nil
}
