package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/landmarkfp/fpengine/pkg/fetch"
	"github.com/landmarkfp/fpengine/pkg/fpengine"
	"github.com/landmarkfp/fpengine/pkg/utils"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Add a track to the library",
}

var (
	ingestTitle  string
	ingestArtist string
	ingestAlbum  string
)

func init() {
	ingestFileCmd.Flags().StringVar(&ingestTitle, "title", "", "track title")
	ingestFileCmd.Flags().StringVar(&ingestArtist, "artist", "", "artist name")
	ingestFileCmd.Flags().StringVar(&ingestAlbum, "album", "", "album name")
	ingestYouTubeCmd.Flags().StringVar(&ingestTitle, "title", "", "override the title detected from YouTube")
	ingestYouTubeCmd.Flags().StringVar(&ingestArtist, "artist", "", "override the artist detected from YouTube")
	ingestCmd.AddCommand(ingestFileCmd, ingestYouTubeCmd)
}

var ingestFileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Ingest a local audio file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if ingestTitle == "" || ingestArtist == "" {
			if meta, err := fetch.ReadEmbeddedMetadata(path); err == nil {
				if ingestTitle == "" {
					ingestTitle = meta.Title
				}
				if ingestArtist == "" {
					ingestArtist = meta.Artist
				}
				if ingestAlbum == "" {
					ingestAlbum = meta.Album
				}
			}
		}
		if ingestTitle == "" || ingestArtist == "" {
			return fmt.Errorf("--title and --artist are required (no embedded tags found on %s)", path)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		pcm, rate, channels, err := decodeAudioFile(ctx, path)
		if err != nil {
			return err
		}

		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		color.Cyan("fingerprinting %s...", path)
		songID, err := svc.Ingest(ctx, fpengine.IngestRequest{
			PCM: pcm, SourceRate: rate, Channels: channels,
			SourceType: "local", SourceID: path,
			Title: ingestTitle, Artist: ingestArtist, Album: ingestAlbum,
		})
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", path, err)
		}

		color.Green("added song_id=%d %q by %q", songID, ingestTitle, ingestArtist)
		return nil
	},
}

var ingestYouTubeCmd = &cobra.Command{
	Use:   "youtube <url>",
	Short: "Download a track from YouTube and ingest it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		color.Cyan("downloading %s...", url)
		downloadedPath, meta, err := fetch.DownloadYouTubeAudio(ctx, url, tempDir())
		if err != nil {
			return fmt.Errorf("downloading from YouTube: %w", err)
		}

		title := ingestTitle
		if title == "" {
			title = meta.Title
		}
		artist := ingestArtist
		if artist == "" {
			artist = meta.Artist
		}

		pcm, rate, channels, err := decodeAudioFile(ctx, downloadedPath)
		if err != nil {
			return err
		}

		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		youtubeID, _ := utils.ExtractYouTubeID(url)
		color.Cyan("fingerprinting %q by %q...", title, artist)
		songID, err := svc.Ingest(ctx, fpengine.IngestRequest{
			PCM: pcm, SourceRate: rate, Channels: channels,
			SourceType: "youtube", SourceID: youtubeID,
			Title: title, Artist: artist, YouTubeURL: url, YouTubeID: youtubeID,
		})
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", url, err)
		}

		color.Green("added song_id=%d %q by %q (youtube=%s)", songID, title, artist, youtubeID)
		return nil
	},
}
