package pathindex

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/coderdj/frkb-engine/internal/errors"
)

// pathSongMapRecord is GORM's read-only view of path_song_map. It is never
// used to write; UpsertRows/TouchByPathKeys/DeleteByPathKeys/GC stay on the
// raw database/sql connection so there is exactly one writer's worth of
// transaction semantics to reason about.
type pathSongMapRecord struct {
	PathKey    string `gorm:"column:pathKey;primaryKey"`
	FilePath   string `gorm:"column:filePath"`
	Size       int64  `gorm:"column:size"`
	MtimeMs    int64  `gorm:"column:mtimeMs"`
	SongID     string `gorm:"column:songId"`
	FileHash   string `gorm:"column:fileHash"`
	UpdatedAt  int64  `gorm:"column:updatedAt"`
	LastSeenAt int64  `gorm:"column:lastSeenAt"`
}

func (pathSongMapRecord) TableName() string { return "path_song_map" }

// ReadModel is an ad hoc, read-only query surface over an already-migrated
// path index database, for host-side tooling that wants Scopes-style
// filtering instead of hand-written SQL.
type ReadModel struct {
	gormDB *gorm.DB
}

// NewReadModel opens a second, read-oriented connection to the same SQLite
// file a *Store already migrated. It does not create or alter schema.
func NewReadModel(path string) (*ReadModel, error) {
	gormDB, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.New(err).Component("pathindex").
			Category(errors.CategoryDatabase).Context("operation", "open_read_model").Build()
	}
	return &ReadModel{gormDB: gormDB}, nil
}

// Close releases the read-model connection.
func (r *ReadModel) Close() error {
	sqlDB, err := r.gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// BySongID scopes to rows for one song id, newest-first.
func BySongID(songID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("songId = ?", songID).Order("lastSeenAt DESC")
	}
}

// SeenSince scopes to rows whose lastSeenAt is at or after sinceMs.
func SeenSince(sinceMs int64) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("lastSeenAt >= ?", sinceMs)
	}
}

// CountMatching returns the row count for the given composition of scopes,
// e.g. ReadModel.CountMatching(BySongID(id), SeenSince(cutoff)).
func (r *ReadModel) CountMatching(scopes ...func(*gorm.DB) *gorm.DB) (int64, error) {
	var count int64
	q := r.gormDB.Model(&pathSongMapRecord{}).Scopes(scopes...)
	if err := q.Count(&count).Error; err != nil {
		return 0, errors.New(err).Component("pathindex").
			Category(errors.CategoryDatabase).Context("operation", "count_matching").Build()
	}
	return count, nil
}

// FilePathsMatching returns the filePath column for rows matching scopes,
// capped at limit (0 means unbounded).
func (r *ReadModel) FilePathsMatching(limit int, scopes ...func(*gorm.DB) *gorm.DB) ([]string, error) {
	var records []pathSongMapRecord
	q := r.gormDB.Model(&pathSongMapRecord{}).Scopes(scopes...)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, errors.New(err).Component("pathindex").
			Category(errors.CategoryDatabase).Context("operation", "file_paths_matching").Build()
	}
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.FilePath
	}
	return out, nil
}
