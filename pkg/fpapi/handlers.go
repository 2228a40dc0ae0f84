package fpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/landmarkfp/fpengine/pkg/audiodecode"
	"github.com/landmarkfp/fpengine/pkg/fetch"
	"github.com/landmarkfp/fpengine/pkg/fpengine"
	"github.com/landmarkfp/fpengine/pkg/fplog"
	"github.com/landmarkfp/fpengine/pkg/fpstore"
	"github.com/landmarkfp/fpengine/pkg/utils"
)

// Server encapsulates the HTTP server and its dependencies.
type Server struct {
	service fpengine.Service
	config  *ServerConfig
	log     *fplog.Logger
}

type ServerConfig struct {
	Port           int
	TempDir        string
	SampleRate     int
	AllowedOrigins []string
}

func NewServer(service fpengine.Service, config *ServerConfig) *Server {
	return &Server{service: service, config: config, log: fplog.GetLogger()}
}

func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("failed to encode JSON response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{Error: http.StatusText(statusCode), Message: message, Code: statusCode})
}

// statusForError maps the engine's sentinel taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, fpengine.ErrInvalidInput), errors.Is(err, fpengine.ErrDecodeFailure):
		return http.StatusBadRequest
	case errors.Is(err, fpengine.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, fpengine.ErrDuplicateTrack):
		return http.StatusConflict
	case errors.Is(err, fpengine.ErrTimeout):
		return http.StatusRequestTimeout
	case errors.Is(err, fpengine.ErrIndexUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy", "time": time.Now().Format(time.RFC3339)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	count, err := s.service.Stats(r.Context())
	if err != nil {
		s.respondError(w, statusForError(err), fmt.Sprintf("failed to retrieve stats: %v", err))
		return
	}
	s.respondJSON(w, http.StatusOK, StatsResponse{SongCount: count})
}

func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	tracks, err := s.service.ListTracks(r.Context())
	if err != nil {
		s.respondError(w, statusForError(err), fmt.Sprintf("failed to list songs: %v", err))
		return
	}
	dtos := make([]TrackDTO, len(tracks))
	for i, t := range tracks {
		dtos[i] = trackToDTO(t)
	}
	s.respondJSON(w, http.StatusOK, ListTracksResponse{Songs: dtos, Count: len(dtos)})
}

func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request, songID uint64) {
	track, err := s.service.GetTrack(r.Context(), songID)
	if err != nil {
		s.respondError(w, statusForError(err), fmt.Sprintf("song %d not found", songID))
		return
	}
	s.respondJSON(w, http.StatusOK, trackToDTO(track))
}

func (s *Server) handleDeleteSong(w http.ResponseWriter, r *http.Request, songID uint64) {
	if err := s.service.DeleteTrack(r.Context(), songID); err != nil {
		s.respondError(w, statusForError(err), fmt.Sprintf("failed to delete song %d: %v", songID, err))
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"message": "song deleted", "song_id": songID})
}

// saveUpload writes a multipart file field to TempDir and returns its path.
func (s *Server) saveUpload(r *http.Request, field, prefix string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", fmt.Errorf("%s file is required: %w", field, err)
	}
	defer file.Close()

	tempPath := filepath.Join(s.config.TempDir, fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixNano(), header.Filename))
	out, err := os.Create(tempPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		return "", err
	}
	return tempPath, nil
}

// decodeAudioFile transcodes path to WAV via ffmpeg and decodes it into PCM.
func (s *Server) decodeAudioFile(ctx context.Context, path string) (pcm []float64, rate, channels int, err error) {
	wavPath, err := fetch.Transcode(ctx, path, s.config.TempDir, s.config.SampleRate)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %v", fpengine.ErrDecodeFailure, err)
	}
	defer os.Remove(wavPath)

	f, err := os.Open(wavPath)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %v", fpengine.ErrDecodeFailure, err)
	}
	defer f.Close()

	pcm, rate, channels, err = audiodecode.DecodeWAV(f)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %v", fpengine.ErrDecodeFailure, err)
	}
	return pcm, rate, channels, nil
}

func (s *Server) handleAddSongFile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(100 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to parse form data")
		return
	}

	title := r.FormValue("title")
	artist := r.FormValue("artist")
	album := r.FormValue("album")

	uploadPath, err := s.saveUpload(r, "audio", "upload")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(uploadPath)

	if title == "" || artist == "" {
		if localMeta, metaErr := fetch.ReadEmbeddedMetadata(uploadPath); metaErr == nil {
			if title == "" {
				title = localMeta.Title
			}
			if artist == "" {
				artist = localMeta.Artist
			}
			if album == "" {
				album = localMeta.Album
			}
		}
	}

	pcm, rate, channels, err := s.decodeAudioFile(ctx, uploadPath)
	if err != nil {
		s.respondError(w, statusForError(err), err.Error())
		return
	}

	songID, err := s.service.Ingest(ctx, fpengine.IngestRequest{
		PCM: pcm, SourceRate: rate, Channels: channels,
		SourceType: "local", SourceID: filepath.Base(uploadPath),
		Title: title, Artist: artist, Album: album,
	})
	if err != nil {
		s.respondError(w, statusForError(err), err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, AddSongResponse{Message: "song added", SongID: songID, Title: title, Artist: artist})
}

func (s *Server) handleAddSongYouTube(w http.ResponseWriter, r *http.Request) {
	var req AddSongYouTubeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	youtubeID, _ := utils.ExtractYouTubeID(req.YouTubeURL)

	taskID, err := s.service.EnqueueIngest(r.Context(), fpengine.IngestRequest{
		SourceType: "youtube", SourceID: youtubeID,
		Title: req.Title, Artist: req.Artist, YouTubeURL: req.YouTubeURL, YouTubeID: youtubeID,
	})
	if err != nil {
		s.respondError(w, statusForError(err), err.Error())
		return
	}

	s.respondJSON(w, http.StatusAccepted, IngestAcceptedResponse{Message: "ingestion queued", TaskID: taskID})
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request, taskID string) {
	st, err := s.service.TaskStatus(taskID)
	if err != nil {
		s.respondError(w, statusForError(err), fmt.Sprintf("task %s not found", taskID))
		return
	}
	s.respondJSON(w, http.StatusOK, TaskStatusResponse{TaskID: st.ID, State: string(st.State), SongID: st.SongID, Error: st.Err})
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(50 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to parse form data")
		return
	}

	uploadPath, err := s.saveUpload(r, "audio_data", "query")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(uploadPath)

	pcm, rate, channels, err := s.decodeAudioFile(ctx, uploadPath)
	if err != nil {
		s.respondJSON(w, http.StatusBadRequest, MatchResponse{Success: false, MatchFound: false, Error: err.Error()})
		return
	}

	results, err := s.service.Match(ctx, pcm, rate, channels)
	if err != nil {
		s.respondJSON(w, statusForError(err), MatchResponse{Success: false, MatchFound: false, Error: err.Error()})
		return
	}
	if len(results) == 0 {
		s.respondJSON(w, http.StatusOK, MatchResponse{Success: true, MatchFound: false})
		return
	}

	best := results[0]
	s.respondJSON(w, http.StatusOK, MatchResponse{
		Success: true, MatchFound: true,
		SongID: best.SongID, Score: best.Score, Timestamp: best.TimestampSec,
		Title: best.Title, Artist: best.Artist, Album: best.Album,
		CoverArt: best.CoverURL, YouTubeID: best.YouTubeID,
	})
}

func trackToDTO(t fpstore.TrackMeta) TrackDTO {
	return TrackDTO{
		SongID:      t.SongID,
		Title:       t.Title,
		Artist:      t.Artist,
		Album:       t.Album,
		DurationMs:  t.DurationMs,
		CoverURL:    t.CoverURL,
		ReleaseDate: t.ReleaseDate,
		SpotifyURL:  t.SpotifyURL,
		YouTubeID:   t.YouTubeID,
		YouTubeURL:  t.YouTubeURL,
	}
}

// handleSongs routes requests to /api/songs.
func (s *Server) handleSongs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListSongs(w, r)
	case http.MethodPost:
		s.handleAddSongFile(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleSong routes requests to /api/songs/{id} and /api/songs/tasks/{id}.
func (s *Server) handleSong(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/songs/")
	if idStr == "" {
		s.respondError(w, http.StatusBadRequest, "song id required")
		return
	}
	if strings.HasPrefix(idStr, "tasks/") {
		s.handleTaskStatus(w, r, strings.TrimPrefix(idStr, "tasks/"))
		return
	}

	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid song id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetSong(w, r, id)
	case http.MethodDelete:
		s.handleDeleteSong(w, r, id)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
