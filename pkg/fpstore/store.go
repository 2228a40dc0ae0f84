// Package fpstore is the durable fingerprint index: a hash-indexed mapping
// from fingerprint hash to the (song_id, anchor_t_idx) occurrences it was
// seen at, plus per-track bulk insert and cascading delete.
package fpstore

import (
	"context"
	"time"

	"github.com/landmarkfp/fpengine/pkg/fpcore"
)

// TrackMeta is free-form track metadata the store persists opaquely; it
// never interprets title/artist/album/etc beyond storing and returning them.
type TrackMeta struct {
	SongID      uint64
	Title       string
	Artist      string
	Album       string
	DurationMs  int
	SourceType  string
	SourceID    string
	CoverURL    string
	ReleaseDate string
	SpotifyURL  string
	YouTubeURL  string
	YouTubeID   string
	ContentHash uint64
	CreatedAt   time.Time
}

// Occurrence is one stored (song_id, anchor_t_idx) pair returned by Lookup.
type Occurrence struct {
	SongID     uint64
	AnchorTIdx uint32
}

// Store is the fingerprint index contract described by spec.md §4.5.
type Store interface {
	// PutTrack inserts a new track and returns its assigned song_id.
	// Returns ErrDuplicateTrack if (SourceType, SourceID) already exists.
	PutTrack(ctx context.Context, meta TrackMeta) (songID uint64, err error)

	// PutFingerprints appends fingerprints for songID. Either all rows
	// become visible or none do.
	PutFingerprints(ctx context.Context, songID uint64, fps []fpcore.Fingerprint) error

	// DeleteTrack removes the track and all of its fingerprints atomically.
	// Returns ErrNotFound if songID is unknown.
	DeleteTrack(ctx context.Context, songID uint64) error

	// Lookup returns every stored occurrence of any of the given hashes,
	// keyed by hash. Duplicates are preserved.
	Lookup(ctx context.Context, hashes []uint32) (map[uint32][]Occurrence, error)

	// TrackByID returns a track's metadata or ErrNotFound.
	TrackByID(ctx context.Context, songID uint64) (TrackMeta, error)

	// TrackBySource looks up a track by its (SourceType, SourceID) unique
	// key, for ingestion-time idempotency checks. Returns ErrNotFound if
	// none exists.
	TrackBySource(ctx context.Context, sourceType, sourceID string) (TrackMeta, error)

	// TrackByContentHash looks up a track by its ContentHash, the
	// supplementary idempotency check for callers that don't have a stable
	// (SourceType, SourceID) pair (SPEC_FULL.md §3). Returns ErrNotFound if
	// none exists.
	TrackByContentHash(ctx context.Context, hash uint64) (TrackMeta, error)

	// ListTracks returns all tracks.
	ListTracks(ctx context.Context) ([]TrackMeta, error)

	// Count returns the number of tracks in the index.
	Count(ctx context.Context) (int64, error)

	Close() error
}
