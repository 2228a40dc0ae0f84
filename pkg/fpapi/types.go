package fpapi

import "fmt"

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type TrackDTO struct {
	SongID      uint64 `json:"song_id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	DurationMs  int    `json:"duration_ms"`
	CoverURL    string `json:"coverArt,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
	SpotifyURL  string `json:"spotify_url,omitempty"`
	YouTubeID   string `json:"youtubeId,omitempty"`
	YouTubeURL  string `json:"youtube_url,omitempty"`
}

type ListTracksResponse struct {
	Songs []TrackDTO `json:"songs"`
	Count int        `json:"count"`
}

type MatchResponse struct {
	Success    bool   `json:"success"`
	MatchFound bool   `json:"match_found"`
	SongID     uint64 `json:"song_id,omitempty"`
	Score      int    `json:"score,omitempty"`
	Timestamp  int    `json:"timestamp,omitempty"`
	Title      string `json:"title,omitempty"`
	Artist     string `json:"artist,omitempty"`
	Album      string `json:"album,omitempty"`
	CoverArt   string `json:"coverArt,omitempty"`
	YouTubeID  string `json:"youtubeId,omitempty"`
	Error      string `json:"error,omitempty"`
}

type AddSongResponse struct {
	Message string `json:"message"`
	SongID  uint64 `json:"song_id"`
	Title   string `json:"title"`
	Artist  string `json:"artist"`
}

type IngestAcceptedResponse struct {
	Message string `json:"message"`
	TaskID  string `json:"task_id"`
}

type TaskStatusResponse struct {
	TaskID string `json:"task_id"`
	State  string `json:"state"`
	SongID uint64 `json:"song_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

type StatsResponse struct {
	SongCount int64 `json:"song_count"`
}

type AddSongYouTubeRequest struct {
	YouTubeURL string `json:"youtube_url"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
}

func (r AddSongYouTubeRequest) Validate() error {
	if r.YouTubeURL == "" {
		return fmt.Errorf("youtube_url is required")
	}
	return nil
}
