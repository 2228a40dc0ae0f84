package fpengine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/landmarkfp/fpengine/pkg/audiodecode"
	"github.com/landmarkfp/fpengine/pkg/fetch"
	"github.com/landmarkfp/fpengine/pkg/fpcore"
	"github.com/landmarkfp/fpengine/pkg/fplog"
	"github.com/landmarkfp/fpengine/pkg/fpmatch"
	"github.com/landmarkfp/fpengine/pkg/fpstore"
	"github.com/landmarkfp/fpengine/pkg/utils"
)

// service is the default Service implementation: DSP via pkg/fpcore,
// alignment via pkg/fpmatch, durability via pkg/fpstore.
type service struct {
	store  fpstore.Store
	log    Logger
	config *Config
	tasks  *taskRunner
}

// NewService wires a Service per the supplied Options, opening a SQLite
// store at Config.DBPath unless an explicit Store is provided.
func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = fplog.GetLogger()
	}

	store := cfg.Store
	if store == nil {
		s, err := fpstore.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("fpengine: opening store: %w", err)
		}
		store = s
	}

	svc := &service{store: store, log: cfg.Logger, config: cfg}
	svc.tasks = newTaskRunner(cfg.IngestWorkers, cfg.IngestQueueSize, svc.ingestAsync, cfg.Logger)
	return svc, nil
}

// ingestAsync is what the background worker pool actually runs. A request
// enqueued without PCM (the YouTube path: the caller only has a URL, not
// decoded audio) is fetched and transcoded here, the same sequence a local
// upload goes through before reaching Ingest, rather than handing
// fpcore.Preprocess a request it can only reject.
func (s *service) ingestAsync(ctx context.Context, req IngestRequest) (uint64, error) {
	if len(req.PCM) == 0 && req.YouTubeURL != "" {
		resolved, err := s.fetchYouTube(ctx, req)
		if err != nil {
			return 0, err
		}
		req = resolved
	}
	return s.Ingest(ctx, req)
}

// fetchYouTube downloads, transcodes, and decodes a YouTube source into
// req.PCM, filling in title/artist from the video's metadata when the
// caller didn't supply them.
func (s *service) fetchYouTube(ctx context.Context, req IngestRequest) (IngestRequest, error) {
	downloadedPath, meta, err := fetch.DownloadYouTubeAudio(ctx, req.YouTubeURL, s.config.TempDir)
	if err != nil {
		return req, fmt.Errorf("%w: downloading from YouTube: %v", ErrInvalidInput, err)
	}
	defer utils.DeleteFile(downloadedPath)

	wavPath, err := fetch.Transcode(ctx, downloadedPath, s.config.TempDir, s.config.SampleRate)
	if err != nil {
		return req, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	defer utils.DeleteFile(wavPath)

	f, err := os.Open(wavPath)
	if err != nil {
		return req, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	defer f.Close()

	pcm, rate, channels, err := audiodecode.DecodeWAV(f)
	if err != nil {
		return req, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}

	req.PCM, req.SourceRate, req.Channels = pcm, rate, channels
	if req.Title == "" {
		req.Title = meta.Title
	}
	if req.Artist == "" {
		req.Artist = meta.Artist
	}
	return req, nil
}

// Ingest runs the full preprocess -> spectrogram -> peaks -> hash pipeline
// and registers the track, synchronously.
func (s *service) Ingest(ctx context.Context, req IngestRequest) (uint64, error) {
	samples, err := fpcore.Preprocess(req.PCM, req.SourceRate, req.Channels)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	spec := fpcore.Spectrogram(samples)
	if spec == nil {
		return 0, fmt.Errorf("%w: audio shorter than one analysis window", ErrInvalidInput)
	}

	peaks := fpcore.ExtractPeaks(spec)
	fps := fpcore.Fingerprints(peaks)
	s.log.Debugf("ingest: %d samples -> %d peaks -> %d fingerprints", len(samples), len(peaks), len(fps))

	contentHash := fpstore.ContentHash(samples)

	// (SourceType, SourceID) is a stable key only when the caller has one;
	// handleAddSongFile's SourceID is a generated upload filename, so the
	// content hash is the only thing that actually catches a re-uploaded
	// duplicate. Check it before PutTrack rather than relying on the
	// source-pair unique index alone.
	if _, err := s.store.TrackByContentHash(ctx, contentHash); err == nil {
		return 0, ErrDuplicateTrack
	} else if !errors.Is(err, fpstore.ErrNotFound) {
		return 0, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	meta := fpstore.TrackMeta{
		Title:       req.Title,
		Artist:      req.Artist,
		Album:       req.Album,
		DurationMs:  int(float64(len(samples)) / float64(fpcore.SampleRate) * 1000),
		SourceType:  req.SourceType,
		SourceID:    req.SourceID,
		CoverURL:    req.CoverURL,
		ReleaseDate: req.ReleaseDate,
		SpotifyURL:  req.SpotifyURL,
		YouTubeURL:  req.YouTubeURL,
		YouTubeID:   req.YouTubeID,
		ContentHash: contentHash,
	}

	songID, err := s.store.PutTrack(ctx, meta)
	if err != nil {
		if errors.Is(err, fpstore.ErrDuplicateTrack) {
			return 0, ErrDuplicateTrack
		}
		return 0, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	if err := s.store.PutFingerprints(ctx, songID, fps); err != nil {
		// ctx may be the reason PutFingerprints failed; the compensating
		// delete must still run so the track row is not left behind.
		_ = s.store.DeleteTrack(context.WithoutCancel(ctx), songID)
		return 0, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	s.log.Infof("ingested song_id=%d title=%q (%d fingerprints)", songID, req.Title, len(fps))
	return songID, nil
}

// EnqueueIngest hands req to the background worker pool and returns
// immediately with a task ID, per the asynchronous ingestion API.
func (s *service) EnqueueIngest(ctx context.Context, req IngestRequest) (string, error) {
	return s.tasks.enqueue(ctx, req)
}

func (s *service) TaskStatus(taskID string) (TaskStatus, error) {
	return s.tasks.status(taskID)
}

// Match runs the query pipeline against the deadline configured for this
// service, enriching surviving candidates with track metadata.
func (s *service) Match(ctx context.Context, pcm []float64, sourceRate, channels int) ([]MatchResult, error) {
	deadline := s.config.MatchDeadline
	if deadline <= 0 {
		deadline = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	samples, err := fpcore.Preprocess(pcm, sourceRate, channels)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	spec := fpcore.Spectrogram(samples)
	if spec == nil {
		// Internal numeric failure on too-short input translates to
		// no_match for queries, per the error taxonomy.
		return nil, nil
	}

	peaks := fpcore.ExtractPeaks(spec)
	query := fpcore.Fingerprints(peaks)
	if len(query) == 0 {
		return nil, nil
	}

	candidates, err := fpmatch.Match(ctx, s.store, query, s.config.MatchOptions)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	results := make([]MatchResult, 0, len(candidates))
	for _, c := range candidates {
		track, err := s.store.TrackByID(ctx, c.SongID)
		if err != nil {
			s.log.Warnf("match: metadata lookup failed for song_id=%d: %v", c.SongID, err)
			continue
		}
		results = append(results, MatchResult{
			SongID:        c.SongID,
			Score:         c.Score,
			OffsetSeconds: c.OffsetSeconds,
			TimestampSec:  int(math.Max(0, math.Floor(c.OffsetSeconds))),
			Title:         track.Title,
			Artist:        track.Artist,
			Album:         track.Album,
			CoverURL:      track.CoverURL,
			YouTubeID:     track.YouTubeID,
		})
	}
	return results, nil
}

func (s *service) GetTrack(ctx context.Context, songID uint64) (fpstore.TrackMeta, error) {
	track, err := s.store.TrackByID(ctx, songID)
	if errors.Is(err, fpstore.ErrNotFound) {
		return fpstore.TrackMeta{}, ErrNotFound
	}
	return track, err
}

func (s *service) ListTracks(ctx context.Context) ([]fpstore.TrackMeta, error) {
	return s.store.ListTracks(ctx)
}

func (s *service) DeleteTrack(ctx context.Context, songID uint64) error {
	err := s.store.DeleteTrack(ctx, songID)
	if errors.Is(err, fpstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *service) Stats(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

func (s *service) Close() error {
	s.tasks.stop()
	return s.store.Close()
}
