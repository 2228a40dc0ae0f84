package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every track in the library",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		tracks, err := svc.ListTracks(cmd.Context())
		if err != nil {
			return err
		}
		if len(tracks) == 0 {
			color.Yellow("library is empty")
			return nil
		}

		for _, t := range tracks {
			fmt.Printf("%d. %q by %q", t.SongID, t.Title, t.Artist)
			if t.DurationMs > 0 {
				fmt.Printf(" (%s)", (time.Duration(t.DurationMs) * time.Millisecond).String())
			}
			fmt.Println()
			if t.YouTubeID != "" {
				fmt.Printf("   https://youtube.com/watch?v=%s\n", t.YouTubeID)
			}
		}
		color.Cyan("%s track(s)", humanize.Comma(int64(len(tracks))))
		return nil
	},
}
