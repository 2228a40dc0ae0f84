package fpcore

import (
	"fmt"
	"math"
)

// ErrInvalidInput is returned by Preprocess for malformed PCM input.
type ErrInvalidInput struct {
	Reason string
}

func (e *ErrInvalidInput) Error() string {
	return fmt.Sprintf("fpcore: invalid input: %s", e.Reason)
}

// Preprocess downmixes arbitrary PCM to mono, resamples it to SampleRate,
// and normalizes it to [-1, 1]. pcm holds interleaved samples already
// converted to float64 by the caller's decoder; samples beyond ±1.0 are
// treated as already-floating-point input and rescaled by their observed
// peak rather than a fixed integer range.
func Preprocess(pcm []float64, sourceRate, channels int) ([]Sample, error) {
	if sourceRate <= 0 {
		return nil, &ErrInvalidInput{Reason: "sample rate must be positive"}
	}
	if channels <= 0 {
		return nil, &ErrInvalidInput{Reason: "channel count must be positive"}
	}
	if len(pcm) == 0 {
		return nil, &ErrInvalidInput{Reason: "empty buffer"}
	}

	mono := downmix(pcm, channels)
	mono = normalize(mono)

	if sourceRate != SampleRate {
		mono = resample(mono, sourceRate, SampleRate)
	}

	out := make([]Sample, len(mono))
	for i, v := range mono {
		out[i] = Sample(v)
	}
	return out, nil
}

func downmix(pcm []float64, channels int) []float64 {
	if channels == 1 {
		return pcm
	}
	n := len(pcm) / channels
	mono := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += pcm[i*channels+c]
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}

func normalize(x []float64) []float64 {
	peak := 0.0
	for _, v := range x {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak <= 1.0 {
		return x
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v / peak
	}
	return out
}

// resample performs a deterministic, linear-phase windowed-sinc low-pass
// filter at the Nyquist frequency of the lower of the two rates, followed by
// fractional linear interpolation to the target rate. It generalizes the
// fixed-ratio decimating low-pass filter used elsewhere in this family of
// fingerprinting implementations to an arbitrary source/target rate pair.
func resample(x []float64, srcRate, dstRate int) []float64 {
	cutoff := float64(dstRate) / 2.0
	if srcRate < dstRate {
		cutoff = float64(srcRate) / 2.0
	}
	filtered := lowPassFIR(x, float64(srcRate), cutoff)

	ratio := float64(dstRate) / float64(srcRate)
	outLen := int(float64(len(filtered)) * ratio)
	if outLen < 1 {
		return nil
	}
	out := make([]float64, outLen)
	for i := range out {
		srcPos := float64(i) / ratio
		i0 := int(math.Floor(srcPos))
		frac := srcPos - float64(i0)
		if i0+1 < len(filtered) {
			out[i] = filtered[i0]*(1-frac) + filtered[i0+1]*frac
		} else if i0 < len(filtered) {
			out[i] = filtered[i0]
		}
	}
	return out
}

// lowPassFIR applies a windowed-sinc low-pass filter with a Hamming taper,
// cutoff frequency fc at sample rate fs.
func lowPassFIR(x []float64, fs, fc float64) []float64 {
	const n = 101
	h := make([]float64, n)
	m := (n - 1) / 2

	for i := 0; i < n; i++ {
		if i == m {
			h[i] = 2 * fc / fs
		} else {
			t := float64(i - m)
			h[i] = math.Sin(2*math.Pi*fc*t/fs) / (math.Pi * t)
		}
		h[i] *= 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}

	y := make([]float64, len(x))
	for i := range x {
		for j := 0; j < n; j++ {
			if i-j >= 0 {
				y[i] += x[i-j] * h[j]
			}
		}
	}
	return y
}
