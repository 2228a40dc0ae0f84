package fpcore

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/window"
)

const epsilon = 1e-10

// hannWindow returns a Hann window of length n, computed via gonum's
// dsp/window package (which applies the window in place to an all-ones
// sequence rather than exposing the coefficients directly).
func hannWindow(n int) []float64 {
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	return window.Hann(ones)
}

// Spectrogram computes the T x F dB-magnitude short-time Fourier transform
// of mono samples, with T = 1 + max(0, (N-WindowSize)/HopSize) and
// F = WindowSize/2 + 1. If N < WindowSize, T is zero.
func Spectrogram(samples []Sample) [][]float32 {
	n := len(samples)
	if n < WindowSize {
		return nil
	}

	win := hannWindow(WindowSize)
	frames := 1 + (n-WindowSize)/HopSize
	spec := make([][]float32, frames)

	frame := make([]float64, WindowSize)
	for t := 0; t < frames; t++ {
		start := t * HopSize
		for i := 0; i < WindowSize; i++ {
			frame[i] = float64(samples[start+i]) * win[i]
		}

		bins := fft.FFTReal(frame)
		row := make([]float32, freqBins)
		for f := 0; f < freqBins; f++ {
			mag := cmplx.Abs(bins[f])
			row[f] = float32(20 * math.Log10(math.Max(mag, epsilon)))
		}
		spec[t] = row
	}
	return spec
}
