package fetch

import (
	"fmt"
	"os"

	"github.com/dhowden/tag"
)

// LocalMetadata is the subset of embedded tag data used to prefill a
// locally-ingested track's metadata when the caller supplies none.
type LocalMetadata struct {
	Title  string
	Artist string
	Album  string
}

// ReadEmbeddedMetadata reads ID3/M4A/FLAC tags from path, returning
// whatever title/artist/album fields the file carries. A file without
// readable tags yields a zero LocalMetadata, not an error, since metadata
// prefill is always best-effort; only a failure to open path is an error.
func ReadEmbeddedMetadata(path string) (LocalMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return LocalMetadata{}, fmt.Errorf("fetch: opening %s: %w", path, err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return LocalMetadata{}, nil
	}
	return LocalMetadata{Title: m.Title(), Artist: m.Artist(), Album: m.Album()}, nil
}
