// Package labelstore is the SQLite-backed store of user-assigned song
// labels and the training sample-change counter, per spec 4.I.
package labelstore

import (
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"os"
	"path/filepath"

	"github.com/coderdj/frkb-engine/internal/errors"
)

const schemaVersion = 1

// Label is one of the three states a song can carry.
type Label int

const (
	Neutral Label = iota
	Liked
	Disliked
)

// ParseLabel maps the on-disk string form to a Label, defaulting to Neutral
// for anything unrecognized.
func ParseLabel(s string) (Label, bool) {
	switch strings.TrimSpace(s) {
	case "liked":
		return Liked, true
	case "disliked":
		return Disliked, true
	case "neutral":
		return Neutral, true
	default:
		return Neutral, false
	}
}

func (l Label) String() string {
	switch l {
	case Liked:
		return "liked"
	case Disliked:
		return "disliked"
	default:
		return "neutral"
	}
}

// Store wraps a single selection_labels.db connection.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the label store at path and ensures its schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.New(err).Component("labelstore").
				Category(errors.CategoryDatabase).Context("operation", "mkdir").Build()
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.New(err).Component("labelstore").
			Category(errors.CategoryDatabase).Context("operation", "open").Build()
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.New(err).Component("labelstore").
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
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_meta (
			key TEXT PRIMARY KEY,
			value TEXT
		);

		CREATE TABLE IF NOT EXISTS song_labels (
			songId TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			updatedAt TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_song_labels_label ON song_labels(label);
	`); err != nil {
		return errors.New(err).Component("labelstore").
			Category(errors.CategoryDatabase).Context("operation", "init_schema").Build()
	}

	var existing sql.NullString
	err := db.QueryRow(`SELECT value FROM schema_meta WHERE key = 'schemaVersion' LIMIT 1`).Scan(&existing)
	if err != nil && err != sql.ErrNoRows {
		return errors.New(err).Component("labelstore").
			Category(errors.CategoryDatabase).Context("operation", "read_schema_version").Build()
	}

	if !existing.Valid {
		if _, err := db.Exec(`INSERT INTO schema_meta(key, value) VALUES('schemaVersion', ?)`,
			strconv.Itoa(schemaVersion)); err != nil {
			return errors.New(err).Component("labelstore").
				Category(errors.CategoryDatabase).Context("operation", "write_schema_version").Build()
		}
	} else {
		current, convErr := strconv.Atoi(existing.String)
		if convErr != nil {
			current = 0
		}
		if current > schemaVersion {
			return errors.Newf("labels db schemaVersion %d is newer than supported %d", current, schemaVersion).
				Component("labelstore").Category(errors.CategoryDatabase).Build()
		}
	}

	var scc sql.NullString
	err = db.QueryRow(`SELECT value FROM schema_meta WHERE key = 'sampleChangeCount' LIMIT 1`).Scan(&scc)
	if err != nil && err != sql.ErrNoRows {
		return errors.New(err).Component("labelstore").
			Category(errors.CategoryDatabase).Context("operation", "read_sample_change_count").Build()
	}
	if !scc.Valid {
		if _, err := db.Exec(`INSERT INTO schema_meta(key, value) VALUES('sampleChangeCount', '0')`); err != nil {
			return errors.New(err).Component("labelstore").
				Category(errors.CategoryDatabase).Context("operation", "write_sample_change_count").Build()
		}
	}
	return nil
}

func getSampleChangeCount(q querier) (int64, error) {
	var v sql.NullString
	err := q.QueryRow(`SELECT value FROM schema_meta WHERE key = 'sampleChangeCount' LIMIT 1`).Scan(&v)
	if err != nil && err != sql.ErrNoRows {
		return 0, errors.New(err).Component("labelstore").Category(errors.CategoryDatabase).Build()
	}
	if !v.Valid {
		return 0, nil
	}
	n, convErr := strconv.ParseInt(v.String, 10, 64)
	if convErr != nil {
		return 0, nil
	}
	return n, nil
}

func setSampleChangeCount(q querier, value int64) error {
	_, err := q.Exec(`INSERT INTO schema_meta(key, value) VALUES('sampleChangeCount', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, strconv.FormatInt(value, 10))
	if err != nil {
		return errors.New(err).Component("labelstore").Category(errors.CategoryDatabase).Build()
	}
	return nil
}

// querier is the subset of *sql.DB / *sql.Tx used by the counter helpers.
type querier interface {
	QueryRow(query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
}

// SampleChangeCount returns the current counter value.
func (s *Store) SampleChangeCount() (int64, error) {
	return getSampleChangeCount(s.db)
}

// BumpSampleChangeCount adds delta to the counter (floored at 0) and returns
// the new value.
func (s *Store) BumpSampleChangeCount(delta int64) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, errors.New(err).Component("labelstore").Category(errors.CategoryDatabase).Build()
	}
	defer tx.Rollback() //nolint:errcheck

	old, err := getSampleChangeCount(tx)
	if err != nil {
		return 0, err
	}
	next := old + delta
	if next < 0 {
		next = 0
	}
	if err := setSampleChangeCount(tx, next); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.New(err).Component("labelstore").Category(errors.CategoryDatabase).Build()
	}
	return next, nil
}

// LabelForSongID returns the stored label, defaulting to Neutral when absent
// or unparseable.
func (s *Store) LabelForSongID(songID string) (Label, error) {
	var raw sql.NullString
	err := s.db.QueryRow(`SELECT label FROM song_labels WHERE songId = ? LIMIT 1`, songID).Scan(&raw)
	if err != nil && err != sql.ErrNoRows {
		return Neutral, errors.New(err).Component("labelstore").Category(errors.CategoryDatabase).Build()
	}
	if !raw.Valid {
		return Neutral, nil
	}
	label, _ := ParseLabel(raw.String)
	return label, nil
}

// Snapshot returns all liked and disliked song ids, each sorted ascending.
func (s *Store) Snapshot() (positiveIDs, negativeIDs []string, err error) {
	rows, err := s.db.Query(`SELECT songId, label FROM song_labels`)
	if err != nil {
		return nil, nil, errors.New(err).Component("labelstore").Category(errors.CategoryDatabase).Build()
	}
	defer rows.Close()

	for rows.Next() {
		var id, label string
		if err := rows.Scan(&id, &label); err != nil {
			return nil, nil, errors.New(err).Component("labelstore").Category(errors.CategoryDatabase).Build()
		}
		switch label {
		case "liked":
			positiveIDs = append(positiveIDs, id)
		case "disliked":
			negativeIDs = append(negativeIDs, id)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.New(err).Component("labelstore").Category(errors.CategoryDatabase).Build()
	}
	sort.Strings(positiveIDs)
	sort.Strings(negativeIDs)
	return positiveIDs, negativeIDs, nil
}

// ResetAll deletes every label and resets the sample-change counter to 0.
func (s *Store) ResetAll() error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.New(err).Component("labelstore").Category(errors.CategoryDatabase).Build()
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM song_labels`); err != nil {
		return errors.New(err).Component("labelstore").Category(errors.CategoryDatabase).Build()
	}
	if err := setSampleChangeCount(tx, 0); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.New(err).Component("labelstore").Category(errors.CategoryDatabase).Build()
	}
	return nil
}

// ResetSampleChangeCount resets only the counter, leaving labels intact.
func (s *Store) ResetSampleChangeCount() error {
	return setSampleChangeCount(s.db, 0)
}

// SetLabelsBulk applies label to the unique, non-blank trimmed song ids.
// Rows whose current label already matches are skipped. Setting Neutral
// deletes the row (neutral is the absence of a row). Returns the number of
// unique ids processed, the number of rows actually changed, and the new
// sample-change counter value.
func (s *Store) SetLabelsBulk(songIDs []string, label Label) (processed, changed int, newCount int64, err error) {
	unique := map[string]struct{}{}
	for _, raw := range songIDs {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		unique[trimmed] = struct{}{}
	}
	if len(unique) == 0 {
		current, cErr := s.SampleChangeCount()
		return 0, 0, current, cErr
	}
	ids := make([]string, 0, len(unique))
	for id := range unique {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tx, err := s.db.Begin()
	if err != nil {
		return 0, 0, 0, errors.New(err).Component("labelstore").Category(errors.CategoryDatabase).Build()
	}
	defer tx.Rollback() //nolint:errcheck

	existing, err := loadExistingLabels(tx, ids)
	if err != nil {
		return 0, 0, 0, err
	}

	upsertStmt, err := tx.Prepare(`
		INSERT INTO song_labels(songId, label, updatedAt)
		VALUES (?, ?, ?)
		ON CONFLICT(songId) DO UPDATE SET label = excluded.label, updatedAt = excluded.updatedAt
	`)
	if err != nil {
		return 0, 0, 0, errors.New(err).Component("labelstore").Category(errors.CategoryDatabase).Build()
	}
	defer upsertStmt.Close()

	deleteStmt, err := tx.Prepare(`DELETE FROM song_labels WHERE songId = ?`)
	if err != nil {
		return 0, 0, 0, errors.New(err).Component("labelstore").Category(errors.CategoryDatabase).Build()
	}
	defer deleteStmt.Close()

	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	delta := 0
	for _, id := range ids {
		old := Neutral
		if raw, ok := existing[id]; ok {
			if parsed, ok2 := ParseLabel(raw); ok2 {
				old = parsed
			}
		}
		if old == label {
			continue
		}
		if label == Neutral {
			if _, err := deleteStmt.Exec(id); err != nil {
				return 0, 0, 0, errors.New(err).Component("labelstore").Category(errors.CategoryDatabase).Build()
			}
		} else {
			if _, err := upsertStmt.Exec(id, label.String(), now); err != nil {
				return 0, 0, 0, errors.New(err).Component("labelstore").Category(errors.CategoryDatabase).Build()
			}
		}
		delta++
	}

	old, err := getSampleChangeCount(tx)
	if err != nil {
		return 0, 0, 0, err
	}
	next := old + int64(delta)
	if err := setSampleChangeCount(tx, next); err != nil {
		return 0, 0, 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, 0, errors.New(err).Component("labelstore").Category(errors.CategoryDatabase).Build()
	}
	return len(ids), delta, next, nil
}

func loadExistingLabels(tx *sql.Tx, songIDs []string) (map[string]string, error) {
	out := make(map[string]string)
	if len(songIDs) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(songIDs)), ",")
	args := make([]any, len(songIDs))
	for i, id := range songIDs {
		args[i] = id
	}
	rows, err := tx.Query(fmt.Sprintf(`SELECT songId, label FROM song_labels WHERE songId IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, errors.New(err).Component("labelstore").Category(errors.CategoryDatabase).Build()
	}
	defer rows.Close()
	for rows.Next() {
		var id, label string
		if err := rows.Scan(&id, &label); err != nil {
			return nil, errors.New(err).Component("labelstore").Category(errors.CategoryDatabase).Build()
		}
		out[id] = label
	}
	return out, rows.Err()
}
