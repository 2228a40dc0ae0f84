package main

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"time"

	"github.com/eligwz/spectrogram"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	vizOutput string
	vizBins   int
)

func init() {
	vizCmd.Flags().StringVarP(&vizOutput, "output", "o", "", "output PNG path (defaults to <input>.png)")
	vizCmd.Flags().IntVar(&vizBins, "bins", 512, "frequency bins (image height)")
}

var vizCmd = &cobra.Command{
	Use:   "viz <audio_file>",
	Short: "Render a spectrogram PNG for an audio file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		outPath := vizOutput
		if outPath == "" {
			outPath = path + ".png"
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		pcm, rate, channels, err := decodeAudioFile(ctx, path)
		if err != nil {
			return err
		}
		if channels > 1 {
			pcm = downmixMono(pcm, channels)
		}

		width := 2048
		height := vizBins
		img := spectrogram.NewImage128(image.Rect(0, 0, width, height))

		black := spectrogram.ParseColor("000000")
		draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

		spectrogram.Drawfft(
			img,
			pcm,
			uint32(rate),
			uint32(height),
			false, // Hamming window
			false, // use FFT
			true,  // magnitude
			false, // linear scale
		)

		if err := spectrogram.SavePng(img, outPath); err != nil {
			return fmt.Errorf("rendering spectrogram: %w", err)
		}

		color.Green("wrote %s", outPath)
		return nil
	},
}

func downmixMono(pcm []float64, channels int) []float64 {
	out := make([]float64, len(pcm)/channels)
	for i := range out {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += pcm[i*channels+c]
		}
		out[i] = sum / float64(channels)
	}
	return out
}
