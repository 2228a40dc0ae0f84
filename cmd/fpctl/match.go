package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match <audio_file>",
	Short: "Match an audio file against the library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
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

		color.Cyan("analyzing %s...", path)
		results, err := svc.Match(ctx, pcm, rate, channels)
		if err != nil {
			return fmt.Errorf("matching %s: %w", path, err)
		}

		if len(results) == 0 {
			color.Yellow("no match found")
			return nil
		}

		for i, r := range results {
			fmt.Printf("%d. %q by %q\n", i+1, r.Title, r.Artist)
			fmt.Printf("   score=%s offset=%ds\n", humanize.Comma(int64(r.Score)), r.TimestampSec)
			if r.YouTubeID != "" {
				fmt.Printf("   https://youtube.com/watch?v=%s\n", r.YouTubeID)
			}
		}
		return nil
	},
}
