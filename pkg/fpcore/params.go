package fpcore

// Parameter block. These are bit-exact constants shared by ingestion and
// query processing — changing any of them changes every hash produced by
// the system, so they are not runtime-configurable.
const (
	SampleRate = 11025
	WindowSize = 4096
	HopSize    = 1024

	// Rectangular neighborhood (time frames x frequency bins) used by the
	// peak extractor's local-maximum test, and the amplitude floor below
	// which a local maximum is discarded.
	Neighborhood   = 20
	MinAmplitudeDB = -70.0

	// Hasher fan-out and target zone, in STFT frames relative to the anchor.
	TargetZoneStart = 1
	TargetZoneLen   = 100
	FanValue        = 15

	// Matcher threshold.
	MinAbsoluteMatches = 2
)

// freqBins is F = window_size/2 + 1.
const freqBins = WindowSize/2 + 1
