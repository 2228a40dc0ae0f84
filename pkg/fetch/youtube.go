// Package fetch collects the ingestion-time collaborators that sit outside
// the matching core: pulling audio from external sources, transcoding it to
// the engine's native WAV format, and prefilling metadata.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/landmarkfp/fpengine/pkg/utils"
)

// YouTubeMetadata is the subset of yt-dlp's JSON dump the ingester needs to
// prefill a track's title/artist fields.
type YouTubeMetadata struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Uploader   string  `json:"uploader"`
	Channel    string  `json:"channel"`
	Duration   float64 `json:"duration"`
	WebpageURL string  `json:"webpage_url"`
}

func (m YouTubeMetadata) resolvedArtist() string {
	for _, candidate := range []string{m.Artist, m.Channel, m.Uploader} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return "Unknown Artist"
}

// DownloadYouTubeAudio fetches the best available audio stream for
// youtubeURL into outputDir via go-ytdlp, returning the downloaded file's
// path and its metadata. The caller transcodes the result with Transcode.
func DownloadYouTubeAudio(ctx context.Context, youtubeURL, outputDir string) (audioPath string, meta *YouTubeMetadata, err error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 3*time.Minute)
		defer cancel()
	}
	if err := utils.MakeDir(outputDir); err != nil {
		return "", nil, fmt.Errorf("fetch: creating output dir: %w", err)
	}

	ytdlp.MustInstall(ctx, nil)

	metaResult, err := ytdlp.New().
		DumpSingleJSON().
		NoWarnings().
		NoPlaylist().
		Run(ctx, youtubeURL)
	if err != nil {
		return "", nil, fmt.Errorf("fetch: yt-dlp metadata: %w", err)
	}

	var m YouTubeMetadata
	if err := json.Unmarshal([]byte(metaResult.Stdout), &m); err != nil {
		return "", nil, fmt.Errorf("fetch: parsing yt-dlp JSON: %w", err)
	}
	if strings.TrimSpace(m.ID) == "" || strings.TrimSpace(m.Title) == "" {
		return "", nil, fmt.Errorf("fetch: yt-dlp metadata missing id/title")
	}
	m.Artist = m.resolvedArtist()

	// yt-dlp is free to drop thumbnails, .info.json, and .part files next to
	// the audio it downloads. Isolate each download in its own scratch
	// directory so those can be discarded in one shot once the audio file
	// has been pulled out.
	scratchDir := filepath.Join(outputDir, "ytdl-"+m.ID)
	if err := utils.MakeDir(scratchDir); err != nil {
		return "", nil, fmt.Errorf("fetch: creating scratch dir: %w", err)
	}
	defer utils.DeleteDir(scratchDir)

	outputTemplate := filepath.Join(scratchDir, m.ID+".%(ext)s")
	_, err = ytdlp.New().
		FormatSort("res,ext:m4a:mp3").
		NoPlaylist().
		NoWarnings().
		Output(outputTemplate).
		Run(ctx, youtubeURL)
	if err != nil {
		return "", nil, fmt.Errorf("fetch: yt-dlp download: %w", err)
	}

	for _, ext := range []string{".m4a", ".webm", ".opus", ".mp3", ".aac", ".ogg"} {
		candidate := filepath.Join(scratchDir, m.ID+ext)
		if _, statErr := os.Stat(candidate); statErr != nil {
			continue
		}
		audioPath = filepath.Join(outputDir, m.ID+ext)
		if err := utils.MoveFile(candidate, audioPath); err != nil {
			return "", nil, err
		}
		return audioPath, &m, nil
	}
	return "", nil, fmt.Errorf("fetch: downloaded audio for %s not found in %s", m.ID, scratchDir)
}
