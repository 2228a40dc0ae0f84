// Command fpctl is the operator CLI for the fingerprinting engine: ingest
// tracks, run ad-hoc queries, inspect the library, and serve the HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/landmarkfp/fpengine/pkg/fpcore"
)

var rootCmd = &cobra.Command{
	Use:   "fpctl",
	Short: "Audio fingerprinting engine CLI",
}

func init() {
	rootCmd.PersistentFlags().String("db", "fpengine.sqlite3", "path to the SQLite fingerprint index")
	rootCmd.PersistentFlags().String("temp", os.TempDir(), "temporary directory for audio conversion")
	rootCmd.PersistentFlags().Int("rate", fpcore.SampleRate, "audio sample rate for processing")

	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("temp", rootCmd.PersistentFlags().Lookup("temp"))
	viper.BindPFlag("rate", rootCmd.PersistentFlags().Lookup("rate"))
	viper.SetEnvPrefix("FPENGINE")
	viper.AutomaticEnv()

	rootCmd.AddCommand(ingestCmd, matchCmd, listCmd, rmCmd, serveCmd, vizCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}

func dbPath() string  { return viper.GetString("db") }
func tempDir() string { return viper.GetString("temp") }
func sampleRate() int { return viper.GetInt("rate") }
