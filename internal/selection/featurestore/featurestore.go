// Package featurestore is the SQLite-backed store of per-song audio
// features and cached model predictions, per spec 4.H.
package featurestore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/coderdj/frkb-engine/internal/errors"
)

const schemaVersion = 2

// Patch is a partial update to one song's feature row. Nil fields leave the
// existing stored value untouched (COALESCE semantics); FileHash and
// ModelVersion are always overwritten.
type Patch struct {
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

// Row is a fully materialized song_features row.
type Row struct {
	SongID                 string
	FileHash               string
	OpenL3Vector           []float32
	ChromaprintFingerprint *string
	RMSMean                *float64
	HPCP                   []float32
	BPM                    *float64
	Key                    *string
	DurationSec            *float64
	BitrateKbps            *float64
}

// Store wraps a single features.db connection.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the features.db at path and applies any
// pending schema migration.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.New(err).Component("featurestore").
				Category(errors.CategoryDatabase).Context("operation", "mkdir").Build()
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.New(err).Component("featurestore").
			Category(errors.CategoryDatabase).Context("operation", "open").Build()
	}
	db.SetMaxOpenConns(1) // SQLite + WAL: serialize writers through one handle

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.New(err).Component("featurestore").
				Category(errors.CategoryDatabase).Context("pragma", pragma).Build()
		}
	}

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func ensureSchema(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_meta (
		key TEXT PRIMARY KEY,
		value TEXT
	)`); err != nil {
		return errors.New(err).Component("featurestore").
			Category(errors.CategoryDatabase).Context("operation", "create_schema_meta").Build()
	}

	var existing sql.NullString
	err := db.QueryRow(`SELECT value FROM schema_meta WHERE key = 'schemaVersion' LIMIT 1`).Scan(&existing)
	if err != nil && err != sql.ErrNoRows {
		return errors.New(err).Component("featurestore").
			Category(errors.CategoryDatabase).Context("operation", "read_schema_version").Build()
	}

	if !existing.Valid {
		if _, err := db.Exec(`
			CREATE TABLE IF NOT EXISTS song_features (
				songId TEXT PRIMARY KEY,
				fileHash TEXT,
				modelVersion TEXT,
				openl3_vector BLOB,
				chromaprintFingerprint TEXT,
				rmsMean REAL,
				hpcp BLOB,
				bpm REAL,
				key TEXT,
				durationSec REAL,
				bitrateKbps REAL,
				updatedAt TEXT
			);

			CREATE TABLE IF NOT EXISTS song_prediction_cache (
				songId TEXT,
				modelRevision INTEGER,
				fileHash TEXT,
				score REAL,
				updatedAt TEXT,
				PRIMARY KEY(songId, modelRevision, fileHash)
			);

			CREATE INDEX IF NOT EXISTS idx_song_features_fileHash ON song_features(fileHash);
			CREATE INDEX IF NOT EXISTS idx_song_features_modelVersion ON song_features(modelVersion);
			CREATE INDEX IF NOT EXISTS idx_song_features_updatedAt ON song_features(updatedAt);
			CREATE INDEX IF NOT EXISTS idx_pred_cache_modelRevision ON song_prediction_cache(modelRevision);
			CREATE INDEX IF NOT EXISTS idx_pred_cache_songId ON song_prediction_cache(songId);
		`); err != nil {
			return errors.New(err).Component("featurestore").
				Category(errors.CategoryDatabase).Context("operation", "init_schema").Build()
		}
		_, err := db.Exec(`INSERT INTO schema_meta(key, value) VALUES('schemaVersion', ?)`,
			strconv.Itoa(schemaVersion))
		if err != nil {
			return errors.New(err).Component("featurestore").
				Category(errors.CategoryDatabase).Context("operation", "write_schema_version").Build()
		}
		return nil
	}

	current, convErr := strconv.Atoi(existing.String)
	if convErr != nil {
		current = 0
	}
	if current > schemaVersion {
		return errors.Newf("features.db schemaVersion %d is newer than supported %d", current, schemaVersion).
			Component("featurestore").Category(errors.CategoryDatabase).Build()
	}

	version := current
	if version < 2 {
		if err := migrateToV2(db); err != nil {
			return err
		}
		version = 2
	}

	if version != current {
		_, err := db.Exec(`INSERT INTO schema_meta(key, value) VALUES('schemaVersion', ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, strconv.Itoa(version))
		if err != nil {
			return errors.New(err).Component("featurestore").
				Category(errors.CategoryDatabase).Context("operation", "write_schema_version").Build()
		}
	}
	return nil
}

func migrateToV2(db *sql.DB) error {
	_, err := db.Exec(`ALTER TABLE song_features ADD COLUMN chromaprintFingerprint TEXT`)
	if err != nil && !strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
		return errors.New(err).Component("featurestore").
			Category(errors.CategoryDatabase).Context("operation", "migrate_v2").Build()
	}
	return nil
}

// Upsert writes items in a single transaction, leaving any nil optional
// field at its previously-stored value. Returns the number of rows affected.
func (s *Store) Upsert(items []Patch) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, errors.New(err).Component("featurestore").
			Category(errors.CategoryDatabase).Context("operation", "begin_tx").Build()
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	stmt, err := tx.Prepare(`
		INSERT INTO song_features (
			songId, fileHash, modelVersion, openl3_vector, chromaprintFingerprint,
			rmsMean, hpcp, bpm, key, durationSec, bitrateKbps, updatedAt
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(songId) DO UPDATE SET
			fileHash = excluded.fileHash,
			modelVersion = excluded.modelVersion,
			openl3_vector = COALESCE(excluded.openl3_vector, song_features.openl3_vector),
			chromaprintFingerprint = COALESCE(excluded.chromaprintFingerprint, song_features.chromaprintFingerprint),
			rmsMean = COALESCE(excluded.rmsMean, song_features.rmsMean),
			hpcp = COALESCE(excluded.hpcp, song_features.hpcp),
			bpm = COALESCE(excluded.bpm, song_features.bpm),
			key = COALESCE(excluded.key, song_features.key),
			durationSec = COALESCE(excluded.durationSec, song_features.durationSec),
			bitrateKbps = COALESCE(excluded.bitrateKbps, song_features.bitrateKbps),
			updatedAt = excluded.updatedAt
	`)
	if err != nil {
		return 0, errors.New(err).Component("featurestore").
			Category(errors.CategoryDatabase).Context("operation", "prepare_upsert").Build()
	}
	defer stmt.Close()

	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	affected := 0
	for _, it := range items {
		res, err := stmt.Exec(
			it.SongID, it.FileHash, it.ModelVersion,
			encodeF32Blob(it.OpenL3Vector), nullableString(it.ChromaprintFingerprint),
			nullableFloat(it.RMSMean), encodeF32Blob(it.HPCP),
			nullableFloat(it.BPM), nullableString(it.Key),
			nullableFloat(it.DurationSec), nullableFloat(it.BitrateKbps), now,
		)
		if err != nil {
			return affected, errors.New(err).Component("featurestore").
				Category(errors.CategoryDatabase).Context("operation", "upsert").
				Context("songId", it.SongID).Build()
		}
		n, _ := res.RowsAffected()
		affected += int(n)
	}

	if err := tx.Commit(); err != nil {
		return affected, errors.New(err).Component("featurestore").
			Category(errors.CategoryDatabase).Context("operation", "commit").Build()
	}
	return affected, nil
}

// GetMap returns the stored feature rows for songIDs, keyed by song id.
// Song ids with no stored row are simply absent from the result.
func (s *Store) GetMap(songIDs []string) (map[string]Row, error) {
	out := make(map[string]Row)
	if len(songIDs) == 0 {
		return out, nil
	}

	query, args := inClauseQuery(`SELECT songId, fileHash, openl3_vector, chromaprintFingerprint,
		rmsMean, hpcp, bpm, key, durationSec, bitrateKbps FROM song_features WHERE songId IN (%s)`, songIDs)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.New(err).Component("featurestore").
			Category(errors.CategoryDatabase).Context("operation", "query_features").Build()
	}
	defer rows.Close()

	for rows.Next() {
		var r Row
		var openl3Blob, hpcpBlob []byte
		var chroma sql.NullString
		var rmsMean, bpm, duration, bitrate sql.NullFloat64
		var key sql.NullString
		if err := rows.Scan(&r.SongID, &r.FileHash, &openl3Blob, &chroma,
			&rmsMean, &hpcpBlob, &bpm, &key, &duration, &bitrate); err != nil {
			return nil, errors.New(err).Component("featurestore").
				Category(errors.CategoryDatabase).Context("operation", "scan_features").Build()
		}
		r.OpenL3Vector = decodeF32Blob(openl3Blob)
		r.HPCP = decodeF32Blob(hpcpBlob)
		r.ChromaprintFingerprint = nullStringPtr(chroma)
		r.RMSMean = nullFloatPtr(rmsMean)
		r.BPM = nullFloatPtr(bpm)
		r.Key = nullStringPtr(key)
		r.DurationSec = nullFloatPtr(duration)
		r.BitrateKbps = nullFloatPtr(bitrate)
		out[r.SongID] = r
	}
	return out, rows.Err()
}

// FeatureStatusMap reports, per song id, whether any feature column is populated.
func (s *Store) FeatureStatusMap(songIDs []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if len(songIDs) == 0 {
		return out, nil
	}

	query, args := inClauseQuery(`SELECT songId, openl3_vector, chromaprintFingerprint, rmsMean,
		hpcp, bpm, key, durationSec, bitrateKbps FROM song_features WHERE songId IN (%s)`, songIDs)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.New(err).Component("featurestore").
			Category(errors.CategoryDatabase).Context("operation", "query_feature_status").Build()
	}
	defer rows.Close()

	for rows.Next() {
		var songID string
		var openl3Blob, hpcpBlob []byte
		var chroma, key sql.NullString
		var rmsMean, bpm, duration, bitrate sql.NullFloat64
		if err := rows.Scan(&songID, &openl3Blob, &chroma, &rmsMean, &hpcpBlob, &bpm, &key, &duration, &bitrate); err != nil {
			return nil, errors.New(err).Component("featurestore").
				Category(errors.CategoryDatabase).Context("operation", "scan_feature_status").Build()
		}
		out[songID] = len(openl3Blob) > 0 ||
			len(hpcpBlob) > 0 ||
			(chroma.Valid && strings.TrimSpace(chroma.String) != "") ||
			rmsMean.Valid || bpm.Valid ||
			(key.Valid && strings.TrimSpace(key.String) != "") ||
			duration.Valid || bitrate.Valid
	}
	return out, rows.Err()
}

// PredictionCacheMap returns cached (songId, fileHash) -> score entries for
// the given model revision and song ids.
func (s *Store) PredictionCacheMap(modelRevision int64, songIDs []string) (map[[2]string]float32, error) {
	out := make(map[[2]string]float32)
	if len(songIDs) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(songIDs)), ",")
	query := fmt.Sprintf(`SELECT songId, fileHash, score FROM song_prediction_cache
		WHERE modelRevision = ? AND songId IN (%s)`, placeholders)
	args := make([]any, 0, len(songIDs)+1)
	args = append(args, modelRevision)
	for _, id := range songIDs {
		args = append(args, id)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.New(err).Component("featurestore").
			Category(errors.CategoryDatabase).Context("operation", "query_prediction_cache").Build()
	}
	defer rows.Close()

	for rows.Next() {
		var songID, fileHash string
		var score float64
		if err := rows.Scan(&songID, &fileHash, &score); err != nil {
			return nil, errors.New(err).Component("featurestore").
				Category(errors.CategoryDatabase).Context("operation", "scan_prediction_cache").Build()
		}
		out[[2]string{songID, fileHash}] = float32(score)
	}
	return out, rows.Err()
}

// PredictionCacheEntry is one row written by UpsertPredictionCache.
type PredictionCacheEntry struct {
	SongID        string
	ModelRevision int64
	FileHash      string
	Score         float32
}

// UpsertPredictionCache writes cached scores in a single transaction.
func (s *Store) UpsertPredictionCache(items []PredictionCacheEntry) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return 0, errors.New(err).Component("featurestore").
			Category(errors.CategoryDatabase).Context("operation", "begin_tx").Build()
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.Prepare(`
		INSERT INTO song_prediction_cache (songId, modelRevision, fileHash, score, updatedAt)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(songId, modelRevision, fileHash) DO UPDATE SET
			score = excluded.score,
			updatedAt = excluded.updatedAt
	`)
	if err != nil {
		return 0, errors.New(err).Component("featurestore").
			Category(errors.CategoryDatabase).Context("operation", "prepare_prediction_cache_upsert").Build()
	}
	defer stmt.Close()

	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	affected := 0
	for _, it := range items {
		res, err := stmt.Exec(it.SongID, it.ModelRevision, it.FileHash, float64(it.Score), now)
		if err != nil {
			return affected, errors.New(err).Component("featurestore").
				Category(errors.CategoryDatabase).Context("operation", "upsert_prediction_cache").Build()
		}
		n, _ := res.RowsAffected()
		affected += int(n)
	}

	if err := tx.Commit(); err != nil {
		return affected, errors.New(err).Component("featurestore").
			Category(errors.CategoryDatabase).Context("operation", "commit").Build()
	}
	return affected, nil
}

// DeletePredictionCacheExceptRevision drops every cached score not belonging
// to keepRevision, used after a model retrain bumps the revision.
func (s *Store) DeletePredictionCacheExceptRevision(keepRevision int64) (int, error) {
	res, err := s.db.Exec(`DELETE FROM song_prediction_cache WHERE modelRevision != ?`, keepRevision)
	if err != nil {
		return 0, errors.New(err).Component("featurestore").
			Category(errors.CategoryDatabase).Context("operation", "delete_prediction_cache_except_revision").Build()
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// DeletePredictionCacheForSongIDs drops cached scores for specific songs.
func (s *Store) DeletePredictionCacheForSongIDs(songIDs []string) (int, error) {
	if len(songIDs) == 0 {
		return 0, nil
	}
	query, args := inClauseQuery(`DELETE FROM song_prediction_cache WHERE songId IN (%s)`, songIDs)
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, errors.New(err).Component("featurestore").
			Category(errors.CategoryDatabase).Context("operation", "delete_prediction_cache_for_song_ids").Build()
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ClearPredictionCache drops every cached score.
func (s *Store) ClearPredictionCache() (int, error) {
	res, err := s.db.Exec(`DELETE FROM song_prediction_cache`)
	if err != nil {
		return 0, errors.New(err).Component("featurestore").
			Category(errors.CategoryDatabase).Context("operation", "clear_prediction_cache").Build()
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func inClauseQuery(template string, ids []string) (string, []any) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return fmt.Sprintf(template, placeholders), args
}

func nullableString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullStringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullFloatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
