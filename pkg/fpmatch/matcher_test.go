package fpmatch

import (
	"context"
	"testing"

	"github.com/landmarkfp/fpengine/pkg/fpcore"
	"github.com/landmarkfp/fpengine/pkg/fpstore"
)

// memStore is a minimal in-memory fpstore.Store for matcher tests.
type memStore struct {
	byHash map[uint32][]fpstore.Occurrence
}

func (m *memStore) PutTrack(context.Context, fpstore.TrackMeta) (uint64, error) { return 0, nil }
func (m *memStore) PutFingerprints(context.Context, uint64, []fpcore.Fingerprint) error {
	return nil
}
func (m *memStore) DeleteTrack(context.Context, uint64) error { return nil }
func (m *memStore) Lookup(_ context.Context, hashes []uint32) (map[uint32][]fpstore.Occurrence, error) {
	out := make(map[uint32][]fpstore.Occurrence)
	for _, h := range hashes {
		if occ, ok := m.byHash[h]; ok {
			out[h] = occ
		}
	}
	return out, nil
}
func (m *memStore) TrackByID(context.Context, uint64) (fpstore.TrackMeta, error) {
	return fpstore.TrackMeta{}, nil
}
func (m *memStore) TrackBySource(context.Context, string, string) (fpstore.TrackMeta, error) {
	return fpstore.TrackMeta{}, nil
}
func (m *memStore) TrackByContentHash(context.Context, uint64) (fpstore.TrackMeta, error) {
	return fpstore.TrackMeta{}, nil
}
func (m *memStore) ListTracks(context.Context) ([]fpstore.TrackMeta, error) { return nil, nil }
func (m *memStore) Count(context.Context) (int64, error)                    { return 0, nil }
func (m *memStore) Close() error                                            { return nil }

func TestMatchFindsAlignedTrack(t *testing.T) {
	store := &memStore{byHash: map[uint32][]fpstore.Occurrence{
		100: {{SongID: 1, AnchorTIdx: 500}},
		101: {{SongID: 1, AnchorTIdx: 501}},
		102: {{SongID: 1, AnchorTIdx: 502}},
	}}
	query := []fpcore.Fingerprint{
		{Hash: 100, AnchorTIdx: 0},
		{Hash: 101, AnchorTIdx: 1},
		{Hash: 102, AnchorTIdx: 2},
	}

	candidates, err := Match(context.Background(), store, query, DefaultOptions())
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("len(candidates) = %d, want 1", len(candidates))
	}
	if candidates[0].SongID != 1 {
		t.Errorf("SongID = %d, want 1", candidates[0].SongID)
	}
	if candidates[0].Score != 3 {
		t.Errorf("Score = %d, want 3", candidates[0].Score)
	}
	wantOffset := 500.0 * fpcore.HopSize / fpcore.SampleRate
	if diff := candidates[0].OffsetSeconds - wantOffset; diff > 0.01 || diff < -0.01 {
		t.Errorf("OffsetSeconds = %v, want ~%v", candidates[0].OffsetSeconds, wantOffset)
	}
}

func TestMatchBelowThresholdIsDropped(t *testing.T) {
	store := &memStore{byHash: map[uint32][]fpstore.Occurrence{
		1: {{SongID: 1, AnchorTIdx: 10}},
	}}
	query := []fpcore.Fingerprint{{Hash: 1, AnchorTIdx: 0}}

	candidates, err := Match(context.Background(), store, query, DefaultOptions())
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("expected no candidates below min_absolute_matches, got %d", len(candidates))
	}
}

func TestMatchEmptyQueryIsNoMatch(t *testing.T) {
	store := &memStore{byHash: map[uint32][]fpstore.Occurrence{}}
	candidates, err := Match(context.Background(), store, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if candidates != nil {
		t.Errorf("expected nil candidates for empty query, got %v", candidates)
	}
}

func TestMatchTiesBreakBySmallerSongID(t *testing.T) {
	store := &memStore{byHash: map[uint32][]fpstore.Occurrence{
		1: {{SongID: 5, AnchorTIdx: 10}, {SongID: 5, AnchorTIdx: 10}, {SongID: 2, AnchorTIdx: 10}, {SongID: 2, AnchorTIdx: 10}},
	}}
	query := []fpcore.Fingerprint{{Hash: 1, AnchorTIdx: 0}}

	candidates, err := Match(context.Background(), store, query, Options{TopK: 2, MinAbsoluteMatches: 2})
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("len(candidates) = %d, want 2", len(candidates))
	}
	if candidates[0].SongID != 2 {
		t.Errorf("first candidate SongID = %d, want 2 (tie broken by smaller song_id)", candidates[0].SongID)
	}
}

func TestMatchScansManyHashesInBatches(t *testing.T) {
	byHash := make(map[uint32][]fpstore.Occurrence)
	var query []fpcore.Fingerprint
	for i := uint32(0); i < 600; i++ {
		byHash[i] = []fpstore.Occurrence{{SongID: 1, AnchorTIdx: i}}
		query = append(query, fpcore.Fingerprint{Hash: i, AnchorTIdx: i})
	}
	store := &memStore{byHash: byHash}

	candidates, err := Match(context.Background(), store, query, DefaultOptions())
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(candidates) != 1 || candidates[0].Score != 600 {
		t.Fatalf("candidates = %+v, want single candidate with score 600", candidates)
	}
}
