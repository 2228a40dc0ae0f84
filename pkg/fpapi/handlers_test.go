package fpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/landmarkfp/fpengine/pkg/fpengine"
	"github.com/landmarkfp/fpengine/pkg/fpstore"
)

// fakeService is a scriptable fpengine.Service for handler tests, so HTTP
// wiring can be tested without a real store, DSP pipeline, or external
// fetch/transcode tooling.
type fakeService struct {
	ingestSongID  uint64
	ingestErr     error
	enqueueTaskID string
	enqueueErr    error
	enqueuedReq   fpengine.IngestRequest
	taskStatus    fpengine.TaskStatus
	taskStatusErr error
	matchResults  []fpengine.MatchResult
	matchErr      error
	track         fpstore.TrackMeta
	trackErr      error
	tracks        []fpstore.TrackMeta
	listErr       error
	deleteErr     error
	songCount     int64
	statsErr      error
}

func (f *fakeService) Ingest(ctx context.Context, req fpengine.IngestRequest) (uint64, error) {
	return f.ingestSongID, f.ingestErr
}

func (f *fakeService) EnqueueIngest(ctx context.Context, req fpengine.IngestRequest) (string, error) {
	f.enqueuedReq = req
	return f.enqueueTaskID, f.enqueueErr
}

func (f *fakeService) TaskStatus(taskID string) (fpengine.TaskStatus, error) {
	return f.taskStatus, f.taskStatusErr
}

func (f *fakeService) Match(ctx context.Context, pcm []float64, sourceRate, channels int) ([]fpengine.MatchResult, error) {
	return f.matchResults, f.matchErr
}

func (f *fakeService) GetTrack(ctx context.Context, songID uint64) (fpstore.TrackMeta, error) {
	return f.track, f.trackErr
}

func (f *fakeService) ListTracks(ctx context.Context) ([]fpstore.TrackMeta, error) {
	return f.tracks, f.listErr
}

func (f *fakeService) DeleteTrack(ctx context.Context, songID uint64) error {
	return f.deleteErr
}

func (f *fakeService) Stats(ctx context.Context) (int64, error) {
	return f.songCount, f.statsErr
}

func (f *fakeService) Close() error { return nil }

func newTestServer(svc *fakeService) *Server {
	return NewServer(svc, &ServerConfig{Port: 0, TempDir: "", SampleRate: 11025, AllowedOrigins: []string{"*"}})
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(&fakeService{})
	rec := httptest.NewRecorder()
	s.setupRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestHandleStats(t *testing.T) {
	s := newTestServer(&fakeService{songCount: 42})
	rec := httptest.NewRecorder()
	s.setupRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	var resp StatsResponse
	decodeJSON(t, rec, &resp)
	if resp.SongCount != 42 {
		t.Errorf("SongCount = %d, want 42", resp.SongCount)
	}
}

func TestHandleListSongs(t *testing.T) {
	svc := &fakeService{tracks: []fpstore.TrackMeta{
		{SongID: 1, Title: "A", Artist: "Artist A"},
		{SongID: 2, Title: "B", Artist: "Artist B"},
	}}
	s := newTestServer(svc)
	rec := httptest.NewRecorder()
	s.setupRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/songs", nil))

	var resp ListTracksResponse
	decodeJSON(t, rec, &resp)
	if resp.Count != 2 || len(resp.Songs) != 2 {
		t.Fatalf("resp = %+v, want 2 songs", resp)
	}
	if resp.Songs[0].Title != "A" {
		t.Errorf("Songs[0].Title = %q, want A", resp.Songs[0].Title)
	}
}

func TestHandleGetSongNotFound(t *testing.T) {
	svc := &fakeService{trackErr: fpengine.ErrNotFound}
	s := newTestServer(svc)
	rec := httptest.NewRecorder()
	s.setupRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/songs/99", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleDeleteSong(t *testing.T) {
	s := newTestServer(&fakeService{})
	rec := httptest.NewRecorder()
	s.setupRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/songs/5", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestHandleAddSongYouTubeAccepted(t *testing.T) {
	svc := &fakeService{enqueueTaskID: "task-123"}
	s := newTestServer(svc)

	body, _ := json.Marshal(AddSongYouTubeRequest{YouTubeURL: "https://youtube.com/watch?v=abc123", Title: "Song", Artist: "Artist"})
	req := httptest.NewRequest(http.MethodPost, "/api/songs/youtube", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.setupRoutes().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d, body=%s", rec.Code, http.StatusAccepted, rec.Body.String())
	}
	var resp IngestAcceptedResponse
	decodeJSON(t, rec, &resp)
	if resp.TaskID != "task-123" {
		t.Errorf("TaskID = %q, want task-123", resp.TaskID)
	}

	// The handler must not try to decode audio itself: it enqueues the raw
	// request (PCM empty) and lets the background worker fetch it.
	if svc.enqueuedReq.YouTubeURL == "" {
		t.Error("expected YouTubeURL to be passed through to EnqueueIngest")
	}
	if len(svc.enqueuedReq.PCM) != 0 {
		t.Error("expected no PCM on a youtube ingest request; fetching is the worker's job")
	}
}

func TestHandleAddSongYouTubeMissingURL(t *testing.T) {
	s := newTestServer(&fakeService{})
	body, _ := json.Marshal(AddSongYouTubeRequest{Title: "Song"})
	req := httptest.NewRequest(http.MethodPost, "/api/songs/youtube", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.setupRoutes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleAddSongYouTubeQueueFull(t *testing.T) {
	svc := &fakeService{enqueueErr: errors.New("fpengine: ingestion queue full")}
	s := newTestServer(svc)
	body, _ := json.Marshal(AddSongYouTubeRequest{YouTubeURL: "https://youtube.com/watch?v=abc123"})
	req := httptest.NewRequest(http.MethodPost, "/api/songs/youtube", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.setupRoutes().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestHandleTaskStatus(t *testing.T) {
	svc := &fakeService{taskStatus: fpengine.TaskStatus{ID: "t1", State: fpengine.TaskDone, SongID: 7}}
	s := newTestServer(svc)
	rec := httptest.NewRecorder()
	s.setupRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/songs/tasks/t1", nil))

	var resp TaskStatusResponse
	decodeJSON(t, rec, &resp)
	if resp.State != "done" || resp.SongID != 7 {
		t.Errorf("resp = %+v, want state=done song_id=7", resp)
	}
}

func TestStatusForErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fpengine.ErrInvalidInput, http.StatusBadRequest},
		{fpengine.ErrDecodeFailure, http.StatusBadRequest},
		{fpengine.ErrNotFound, http.StatusNotFound},
		{fpengine.ErrDuplicateTrack, http.StatusConflict},
		{fpengine.ErrTimeout, http.StatusRequestTimeout},
		{fpengine.ErrIndexUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusForError(tc.err); got != tc.want {
			t.Errorf("statusForError(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decoding response body: %v (body=%s)", err, rec.Body.String())
	}
}
