// Package audiodecode turns container formats into the raw
// (pcm []float64, sample_rate, channels) triple pkg/fpcore.Preprocess
// expects. It sits outside the core: the core never touches a container
// format directly.
package audiodecode

import (
	"fmt"
	"io"

	"github.com/go-audio/wav"
)

// DecodeWAV reads a RIFF/WAVE stream and returns interleaved PCM samples
// normalized to [-1, 1], along with the stream's native sample rate and
// channel count.
func DecodeWAV(r io.Reader) (pcm []float64, sampleRate, channels int, err error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		return nil, 0, 0, fmt.Errorf("audiodecode: DecodeWAV requires a seekable reader")
	}

	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, 0, 0, fmt.Errorf("audiodecode: not a valid WAV file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("audiodecode: reading PCM buffer: %w", err)
	}

	bitDepth := dec.BitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	maxVal := float64(int(1) << (bitDepth - 1))

	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float64(v) / maxVal
	}

	return samples, int(dec.SampleRate), int(dec.NumChans), nil
}
