package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <song_id>",
	Short: "Remove a track and its fingerprints from the library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		songID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid song id %q: %w", args[0], err)
		}

		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		track, err := svc.GetTrack(cmd.Context(), songID)
		if err != nil {
			return fmt.Errorf("song %d not found: %w", songID, err)
		}
		if err := svc.DeleteTrack(cmd.Context(), songID); err != nil {
			return fmt.Errorf("deleting song %d: %w", songID, err)
		}

		color.Green("removed song_id=%d %q by %q", songID, track.Title, track.Artist)
		return nil
	},
}
