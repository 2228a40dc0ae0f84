package fpengine

import (
	"context"

	"github.com/landmarkfp/fpengine/pkg/fpstore"
)

// IngestRequest carries everything needed to fingerprint and register one
// track. PCM is already-decoded audio at SourceRate/Channels; decoding
// container formats is the decoder collaborator's job (pkg/audiodecode),
// not the engine's.
type IngestRequest struct {
	PCM        []float64
	SourceRate int
	Channels   int

	SourceType string
	SourceID   string

	Title       string
	Artist      string
	Album       string
	CoverURL    string
	ReleaseDate string
	SpotifyURL  string
	YouTubeURL  string
	YouTubeID   string
}

// MatchResult is a scored candidate enriched with the metadata the query
// endpoint needs to respond with (spec.md §6).
type MatchResult struct {
	SongID        uint64
	Score         int
	OffsetSeconds float64
	TimestampSec  int
	Title         string
	Artist        string
	Album         string
	CoverURL      string
	YouTubeID     string
}

// TaskState is the lifecycle of one asynchronous ingestion task.
type TaskState string

const (
	TaskPending TaskState = "pending"
	TaskRunning TaskState = "running"
	TaskDone    TaskState = "done"
	TaskFailed  TaskState = "failed"
)

// TaskStatus is what GET /api/songs/tasks/{id} returns.
type TaskStatus struct {
	ID     string
	State  TaskState
	SongID uint64
	Err    string
}

// Service is the engine's public surface: ingest, match, and manage the
// track library.
type Service interface {
	Ingest(ctx context.Context, req IngestRequest) (songID uint64, err error)
	EnqueueIngest(ctx context.Context, req IngestRequest) (taskID string, err error)
	TaskStatus(taskID string) (TaskStatus, error)

	Match(ctx context.Context, pcm []float64, sourceRate, channels int) ([]MatchResult, error)

	GetTrack(ctx context.Context, songID uint64) (fpstore.TrackMeta, error)
	ListTracks(ctx context.Context) ([]fpstore.TrackMeta, error)
	DeleteTrack(ctx context.Context, songID uint64) error
	Stats(ctx context.Context) (songCount int64, err error)

	Close() error
}
