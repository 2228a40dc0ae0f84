package fpstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/landmarkfp/fpengine/pkg/fpcore"
)

const DefaultDBFile = "fpengine.sqlite3"

// trackRow is the gorm model backing TrackMeta.
type trackRow struct {
	SongID      uint64 `gorm:"primaryKey;autoIncrement;column:song_id"`
	Title       string
	Artist      string
	Album       string
	DurationMs  int
	SourceType  string `gorm:"uniqueIndex:idx_source,priority:1"`
	SourceID    string `gorm:"uniqueIndex:idx_source,priority:2"`
	CoverURL    string
	ReleaseDate string
	SpotifyURL  string
	YouTubeURL  string
	YouTubeID   string
	ContentHash uint64 `gorm:"index:idx_content_hash"`
	CreatedAt   time.Time
}

func (trackRow) TableName() string { return "tracks" }

// fingerprintRow is the gorm model backing a single index entry.
type fingerprintRow struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	Hash       uint32 `gorm:"index:idx_hash"`
	SongID     uint64 `gorm:"index:idx_song_id"`
	AnchorTIdx uint32
}

func (fingerprintRow) TableName() string { return "fingerprints" }

// SQLiteStore is a Store backed by gorm over glebarez/sqlite (pure Go, no
// cgo). It is safe for concurrent use: readers never observe a partially
// inserted track, since PutTrack + PutFingerprints for a given track are
// only ever called in sequence by a single ingestion worker (see
// pkg/fpengine), and PutFingerprints itself runs inside one transaction.
type SQLiteStore struct {
	db *gorm.DB
	sq *sql.DB
}

// Open creates or opens a SQLite-backed index at path, creating parent
// directories and running schema migration as needed.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("fpstore: creating db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("fpstore: opening sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("fpstore: getting sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&trackRow{}, &fingerprintRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("fpstore: auto migrate: %w", err)
	}

	return &SQLiteStore{db: db, sq: sqlDB}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.sq == nil {
		return nil
	}
	return s.sq.Close()
}

// ContentHash computes the xxhash digest used for the supplementary
// content-addressed dedupe check (SPEC_FULL.md §3).
func ContentHash(samples []fpcore.Sample) uint64 {
	h := xxhash.New64()
	buf := make([]byte, 4)
	for _, s := range samples {
		bits := math.Float32bits(float32(s))
		buf[0] = byte(bits)
		buf[1] = byte(bits >> 8)
		buf[2] = byte(bits >> 16)
		buf[3] = byte(bits >> 24)
		h.Write(buf)
	}
	return h.Sum64()
}

func (s *SQLiteStore) PutTrack(ctx context.Context, meta TrackMeta) (uint64, error) {
	row := trackRow{
		Title:       meta.Title,
		Artist:      meta.Artist,
		Album:       meta.Album,
		DurationMs:  meta.DurationMs,
		SourceType:  meta.SourceType,
		SourceID:    meta.SourceID,
		CoverURL:    meta.CoverURL,
		ReleaseDate: meta.ReleaseDate,
		SpotifyURL:  meta.SpotifyURL,
		YouTubeURL:  meta.YouTubeURL,
		YouTubeID:   meta.YouTubeID,
		ContentHash: meta.ContentHash,
	}

	err := withRetry(ctx, func() error {
		return s.db.WithContext(ctx).Create(&row).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateTrack
		}
		return 0, fmt.Errorf("fpstore: creating track: %w", err)
	}
	return row.SongID, nil
}

func (s *SQLiteStore) PutFingerprints(ctx context.Context, songID uint64, fps []fpcore.Fingerprint) error {
	if len(fps) == 0 {
		return nil
	}
	rows := make([]fingerprintRow, len(fps))
	for i, fp := range fps {
		rows[i] = fingerprintRow{Hash: fp.Hash, SongID: songID, AnchorTIdx: fp.AnchorTIdx}
	}

	return withRetry(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.CreateInBatches(rows, 500).Error
		})
	})
}

func (s *SQLiteStore) DeleteTrack(ctx context.Context, songID uint64) error {
	return withRetry(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("song_id = ?", songID).Delete(&fingerprintRow{}).Error; err != nil {
				return err
			}
			res := tx.Where("song_id = ?", songID).Delete(&trackRow{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrNotFound
			}
			return nil
		})
	})
}

func (s *SQLiteStore) Lookup(ctx context.Context, hashes []uint32) (map[uint32][]Occurrence, error) {
	result := make(map[uint32][]Occurrence)
	if len(hashes) == 0 {
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []fingerprintRow
	err := withRetry(ctx, func() error {
		return s.db.WithContext(ctx).Where("hash IN ?", hashes).Find(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("fpstore: lookup: %w", err)
	}

	for _, r := range rows {
		result[r.Hash] = append(result[r.Hash], Occurrence{SongID: r.SongID, AnchorTIdx: r.AnchorTIdx})
	}
	return result, nil
}

func (s *SQLiteStore) TrackByID(ctx context.Context, songID uint64) (TrackMeta, error) {
	var row trackRow
	err := s.db.WithContext(ctx).First(&row, "song_id = ?", songID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TrackMeta{}, ErrNotFound
	}
	if err != nil {
		return TrackMeta{}, fmt.Errorf("fpstore: get track: %w", err)
	}
	return rowToMeta(row), nil
}

func (s *SQLiteStore) TrackBySource(ctx context.Context, sourceType, sourceID string) (TrackMeta, error) {
	var row trackRow
	err := s.db.WithContext(ctx).
		Where("source_type = ? AND source_id = ?", sourceType, sourceID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TrackMeta{}, ErrNotFound
	}
	if err != nil {
		return TrackMeta{}, fmt.Errorf("fpstore: get track by source: %w", err)
	}
	return rowToMeta(row), nil
}

func (s *SQLiteStore) TrackByContentHash(ctx context.Context, hash uint64) (TrackMeta, error) {
	var row trackRow
	err := s.db.WithContext(ctx).Where("content_hash = ?", hash).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TrackMeta{}, ErrNotFound
	}
	if err != nil {
		return TrackMeta{}, fmt.Errorf("fpstore: get track by content hash: %w", err)
	}
	return rowToMeta(row), nil
}

func (s *SQLiteStore) ListTracks(ctx context.Context) ([]TrackMeta, error) {
	var rows []trackRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fpstore: list tracks: %w", err)
	}
	out := make([]TrackMeta, len(rows))
	for i, r := range rows {
		out[i] = rowToMeta(r)
	}
	return out, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&trackRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("fpstore: count: %w", err)
	}
	return n, nil
}

func rowToMeta(r trackRow) TrackMeta {
	return TrackMeta{
		SongID:      r.SongID,
		Title:       r.Title,
		Artist:      r.Artist,
		Album:       r.Album,
		DurationMs:  r.DurationMs,
		SourceType:  r.SourceType,
		SourceID:    r.SourceID,
		CoverURL:    r.CoverURL,
		ReleaseDate: r.ReleaseDate,
		SpotifyURL:  r.SpotifyURL,
		YouTubeURL:  r.YouTubeURL,
		YouTubeID:   r.YouTubeID,
		ContentHash: r.ContentHash,
		CreatedAt:   r.CreatedAt,
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed")
}

// withRetry retries transient SQLITE_BUSY/SQLITE_LOCKED faults with a small
// bounded backoff, per spec.md §7's IndexUnavailable policy, before
// surfacing the error.
func withRetry(ctx context.Context, fn func() error) error {
	const maxAttempts = 3
	backoff := 10 * time.Millisecond

	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = fn()
		if err == nil || !isTransient(err) {
			return err
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func isTransient(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
