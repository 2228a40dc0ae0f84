package fpstore

import "errors"

var (
	// ErrDuplicateTrack is returned by PutTrack when the (SourceType,
	// SourceID) tuple already exists.
	ErrDuplicateTrack = errors.New("fpstore: track already exists")

	// ErrNotFound is returned by DeleteTrack, TrackByID, and TrackBySource
	// when the requested track does not exist.
	ErrNotFound = errors.New("fpstore: track not found")

	// ErrUnavailable wraps transient store I/O faults after the bounded
	// retry in sqlite.go has been exhausted.
	ErrUnavailable = errors.New("fpstore: index unavailable")
)
