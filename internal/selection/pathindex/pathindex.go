// Package pathindex is the SQLite-backed cache mapping a file's identity
// key (path + size + mtime) to its previously computed song id and content
// hash, so re-scans can skip re-decoding unchanged files, per spec 4.J.
package pathindex

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/coderdj/frkb-engine/internal/errors"
)

const schemaVersion = 1

// Row is one path_song_map record.
type Row struct {
	PathKey    string
	FilePath   string
	Size       int64
	MtimeMs    int64
	SongID     string
	FileHash   string
	UpdatedAt  int64
	LastSeenAt int64
}

// Store wraps a single selection_path_index.db connection.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the path index store at path and ensures its schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.New(err).Component("pathindex").
				Category(errors.CategoryDatabase).Context("operation", "mkdir").Build()
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.New(err).Component("pathindex").
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
			return nil, errors.New(err).Component("pathindex").
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

// underlying returns the store's *sql.DB connection.
func (s *Store) underlying() *sql.DB { return s.db }

func ensureSchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_meta (
			key TEXT PRIMARY KEY,
			value TEXT
		);

		CREATE TABLE IF NOT EXISTS path_song_map (
			pathKey TEXT PRIMARY KEY,
			filePath TEXT NOT NULL,
			size INTEGER NOT NULL,
			mtimeMs INTEGER NOT NULL,
			songId TEXT NOT NULL,
			fileHash TEXT NOT NULL,
			updatedAt INTEGER NOT NULL,
			lastSeenAt INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_path_song_map_songId ON path_song_map(songId);
		CREATE INDEX IF NOT EXISTS idx_path_song_map_lastSeenAt ON path_song_map(lastSeenAt);
	`); err != nil {
		return errors.New(err).Component("pathindex").
			Category(errors.CategoryDatabase).Context("operation", "init_schema").Build()
	}

	var existing sql.NullString
	err := db.QueryRow(`SELECT value FROM schema_meta WHERE key = 'schemaVersion' LIMIT 1`).Scan(&existing)
	if err != nil && err != sql.ErrNoRows {
		return errors.New(err).Component("pathindex").
			Category(errors.CategoryDatabase).Context("operation", "read_schema_version").Build()
	}
	if !existing.Valid {
		if _, err := db.Exec(`INSERT INTO schema_meta(key, value) VALUES('schemaVersion', ?)`,
			strconv.Itoa(schemaVersion)); err != nil {
			return errors.New(err).Component("pathindex").
				Category(errors.CategoryDatabase).Context("operation", "write_schema_version").Build()
		}
	} else {
		current, convErr := strconv.Atoi(existing.String)
		if convErr != nil {
			current = 0
		}
		if current > schemaVersion {
			return errors.Newf("path index db schemaVersion %d is newer than supported %d", current, schemaVersion).
				Component("pathindex").Category(errors.CategoryDatabase).Build()
		}
	}

	var lastGC sql.NullString
	err = db.QueryRow(`SELECT value FROM schema_meta WHERE key = 'lastGcAt' LIMIT 1`).Scan(&lastGC)
	if err != nil && err != sql.ErrNoRows {
		return errors.New(err).Component("pathindex").
			Category(errors.CategoryDatabase).Context("operation", "read_last_gc_at").Build()
	}
	if !lastGC.Valid {
		if _, err := db.Exec(`INSERT INTO schema_meta(key, value) VALUES('lastGcAt', '0')`); err != nil {
			return errors.New(err).Component("pathindex").
				Category(errors.CategoryDatabase).Context("operation", "write_last_gc_at").Build()
		}
	}
	return nil
}

// RowsByPathKeys looks up cached rows for the given path keys.
func (s *Store) RowsByPathKeys(pathKeys []string) ([]Row, error) {
	if len(pathKeys) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(pathKeys)), ",")
	args := make([]any, len(pathKeys))
	for i, k := range pathKeys {
		args[i] = k
	}
	rows, err := s.db.Query(fmt.Sprintf(
		`SELECT pathKey, filePath, size, mtimeMs, songId, fileHash, updatedAt, lastSeenAt
		 FROM path_song_map WHERE pathKey IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, errors.New(err).Component("pathindex").Category(errors.CategoryDatabase).Build()
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.PathKey, &r.FilePath, &r.Size, &r.MtimeMs, &r.SongID,
			&r.FileHash, &r.UpdatedAt, &r.LastSeenAt); err != nil {
			return nil, errors.New(err).Component("pathindex").Category(errors.CategoryDatabase).Build()
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertRows writes rows in a single transaction, returning the number affected.
func (s *Store) UpsertRows(rows []Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return 0, errors.New(err).Component("pathindex").Category(errors.CategoryDatabase).Build()
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.Prepare(`
		INSERT INTO path_song_map(pathKey, filePath, size, mtimeMs, songId, fileHash, updatedAt, lastSeenAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pathKey) DO UPDATE SET
			filePath = excluded.filePath,
			size = excluded.size,
			mtimeMs = excluded.mtimeMs,
			songId = excluded.songId,
			fileHash = excluded.fileHash,
			updatedAt = excluded.updatedAt,
			lastSeenAt = excluded.lastSeenAt
	`)
	if err != nil {
		return 0, errors.New(err).Component("pathindex").Category(errors.CategoryDatabase).Build()
	}
	defer stmt.Close()

	var affected int64
	for _, r := range rows {
		res, err := stmt.Exec(r.PathKey, r.FilePath, r.Size, r.MtimeMs, r.SongID, r.FileHash, r.UpdatedAt, r.LastSeenAt)
		if err != nil {
			return affected, errors.New(err).Component("pathindex").
				Category(errors.CategoryDatabase).Context("pathKey", r.PathKey).Build()
		}
		n, _ := res.RowsAffected()
		affected += n
	}
	if err := tx.Commit(); err != nil {
		return affected, errors.New(err).Component("pathindex").Category(errors.CategoryDatabase).Build()
	}
	return affected, nil
}

// TouchByPathKeys bumps lastSeenAt for existing rows, used during scans to
// mark files as still present without rewriting their song identity.
func (s *Store) TouchByPathKeys(pathKeys []string, nowMs int64) (int64, error) {
	if len(pathKeys) == 0 {
		return 0, nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return 0, errors.New(err).Component("pathindex").Category(errors.CategoryDatabase).Build()
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.Prepare(`UPDATE path_song_map SET lastSeenAt = ? WHERE pathKey = ?`)
	if err != nil {
		return 0, errors.New(err).Component("pathindex").Category(errors.CategoryDatabase).Build()
	}
	defer stmt.Close()

	var affected int64
	for _, k := range pathKeys {
		res, err := stmt.Exec(nowMs, k)
		if err != nil {
			return affected, errors.New(err).Component("pathindex").Category(errors.CategoryDatabase).Build()
		}
		n, _ := res.RowsAffected()
		affected += n
	}
	if err := tx.Commit(); err != nil {
		return affected, errors.New(err).Component("pathindex").Category(errors.CategoryDatabase).Build()
	}
	return affected, nil
}

// DeleteByPathKeys removes rows outright, e.g. when a file was deleted.
func (s *Store) DeleteByPathKeys(pathKeys []string) (int64, error) {
	if len(pathKeys) == 0 {
		return 0, nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return 0, errors.New(err).Component("pathindex").Category(errors.CategoryDatabase).Build()
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.Prepare(`DELETE FROM path_song_map WHERE pathKey = ?`)
	if err != nil {
		return 0, errors.New(err).Component("pathindex").Category(errors.CategoryDatabase).Build()
	}
	defer stmt.Close()

	var affected int64
	for _, k := range pathKeys {
		res, err := stmt.Exec(k)
		if err != nil {
			return affected, errors.New(err).Component("pathindex").Category(errors.CategoryDatabase).Build()
		}
		n, _ := res.RowsAffected()
		affected += n
	}
	if err := tx.Commit(); err != nil {
		return affected, errors.New(err).Component("pathindex").Category(errors.CategoryDatabase).Build()
	}
	return affected, nil
}

func getMetaInt64(db *sql.DB, key string) (int64, error) {
	var v sql.NullString
	err := db.QueryRow(`SELECT value FROM schema_meta WHERE key = ? LIMIT 1`, key).Scan(&v)
	if err != nil && err != sql.ErrNoRows {
		return 0, errors.New(err).Component("pathindex").Category(errors.CategoryDatabase).Build()
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

func setMetaInt64(tx *sql.Tx, key string, value int64) error {
	_, err := tx.Exec(`INSERT INTO schema_meta(key, value) VALUES(?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, strconv.FormatInt(value, 10))
	if err != nil {
		return errors.New(err).Component("pathindex").Category(errors.CategoryDatabase).Build()
	}
	return nil
}

func countRows(q interface {
	QueryRow(string, ...any) *sql.Row
}) (int64, error) {
	var n int64
	if err := q.QueryRow(`SELECT COUNT(1) FROM path_song_map`).Scan(&n); err != nil {
		return 0, errors.New(err).Component("pathindex").Category(errors.CategoryDatabase).Build()
	}
	return n, nil
}

// GCResult summarizes one GC pass.
type GCResult struct {
	Skipped         bool
	Before          int64
	After           int64
	DeletedOld      int64
	DeletedOverflow int64
	LastGCAt        int64
}

// GC is a no-op if the last pass ran within minIntervalMs of nowMs
// (debounce). Otherwise it deletes rows with lastSeenAt older than
// ttlMs, then trims down to maxRows (oldest first), bounded by
// deleteLimit per phase.
func (s *Store) GC(nowMs, minIntervalMs, ttlMs, maxRows, deleteLimit int64) (GCResult, error) {
	lastGCAt, err := getMetaInt64(s.db, "lastGcAt")
	if err != nil {
		return GCResult{}, err
	}
	if nowMs-lastGCAt < minIntervalMs {
		before, err := countRows(s.db)
		if err != nil {
			return GCResult{}, err
		}
		return GCResult{Skipped: true, Before: before, After: before, LastGCAt: lastGCAt}, nil
	}

	before, err := countRows(s.db)
	if err != nil {
		return GCResult{}, err
	}
	cutoff := nowMs - ttlMs

	tx, err := s.db.Begin()
	if err != nil {
		return GCResult{}, errors.New(err).Component("pathindex").Category(errors.CategoryDatabase).Build()
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`
		DELETE FROM path_song_map
		WHERE rowid IN (
			SELECT rowid FROM path_song_map WHERE lastSeenAt < ? ORDER BY lastSeenAt ASC LIMIT ?
		)
	`, cutoff, deleteLimit)
	if err != nil {
		return GCResult{}, errors.New(err).Component("pathindex").Category(errors.CategoryDatabase).Build()
	}
	deletedOld, _ := res.RowsAffected()

	current, err := countRows(tx)
	if err != nil {
		return GCResult{}, err
	}

	var deletedOverflow int64
	if maxRows > 0 && current > maxRows {
		overflow := current - maxRows
		limit := deleteLimit
		if limit < 1 {
			limit = 1
		}
		if overflow > limit {
			overflow = limit
		}
		res, err := tx.Exec(`
			DELETE FROM path_song_map
			WHERE rowid IN (
				SELECT rowid FROM path_song_map ORDER BY lastSeenAt ASC LIMIT ?
			)
		`, overflow)
		if err != nil {
			return GCResult{}, errors.New(err).Component("pathindex").Category(errors.CategoryDatabase).Build()
		}
		deletedOverflow, _ = res.RowsAffected()
		current -= deletedOverflow
	}

	if err := setMetaInt64(tx, "lastGcAt", nowMs); err != nil {
		return GCResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return GCResult{}, errors.New(err).Component("pathindex").Category(errors.CategoryDatabase).Build()
	}

	return GCResult{
		Skipped:         false,
		Before:          before,
		After:           current,
		DeletedOld:      deletedOld,
		DeletedOverflow: deletedOverflow,
		LastGCAt:        nowMs,
	}, nil
}
