package main

import (
	"context"
	"fmt"
	"os"

	"github.com/landmarkfp/fpengine/pkg/audiodecode"
	"github.com/landmarkfp/fpengine/pkg/fetch"
	"github.com/landmarkfp/fpengine/pkg/fpengine"
)

func newService() (fpengine.Service, error) {
	return fpengine.NewService(
		fpengine.WithDBPath(dbPath()),
		fpengine.WithTempDir(tempDir()),
		fpengine.WithSampleRate(sampleRate()),
	)
}

// decodeAudioFile transcodes an arbitrary-container file to WAV via ffmpeg
// and decodes it to PCM, for use by the ingest/match subcommands.
func decodeAudioFile(ctx context.Context, path string) ([]float64, int, int, error) {
	wavPath, err := fetch.Transcode(ctx, path, tempDir(), sampleRate())
	if err != nil {
		return nil, 0, 0, fmt.Errorf("transcoding %s: %w", path, err)
	}
	defer os.Remove(wavPath)

	f, err := os.Open(wavPath)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()

	return audiodecode.DecodeWAV(f)
}
