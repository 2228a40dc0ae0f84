package fpengine

import "errors"

// Sentinel errors per the error taxonomy. Ingest and Match failures wrap one
// of these with fmt.Errorf("...: %w", ...) (or return it directly), and
// GetTrack/DeleteTrack/TaskStatus report a missing item as ErrNotFound, so
// callers can branch on kind with errors.Is. Other store errors from
// ListTracks, Stats, GetTrack and DeleteTrack are returned unwrapped.
var (
	ErrInvalidInput     = errors.New("fpengine: invalid input")
	ErrDecodeFailure    = errors.New("fpengine: decode failure")
	ErrTimeout          = errors.New("fpengine: timeout")
	ErrDuplicateTrack   = errors.New("fpengine: duplicate track")
	ErrIndexUnavailable = errors.New("fpengine: index unavailable")
	ErrInternalNumeric  = errors.New("fpengine: internal numeric failure")
	ErrNotFound         = errors.New("fpengine: not found")
)
