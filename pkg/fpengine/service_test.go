package fpengine

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/landmarkfp/fpengine/pkg/fpcore"
	"github.com/landmarkfp/fpengine/pkg/fpstore"
)

// memStore is a minimal in-memory fpstore.Store for engine tests.
type memStore struct {
	nextID    uint64
	tracks    map[uint64]fpstore.TrackMeta
	bySource  map[string]uint64
	byContent map[uint64]uint64
	byHash    map[uint32][]fpstore.Occurrence
}

func newMemStore() *memStore {
	return &memStore{
		tracks:    make(map[uint64]fpstore.TrackMeta),
		bySource:  make(map[string]uint64),
		byContent: make(map[uint64]uint64),
		byHash:    make(map[uint32][]fpstore.Occurrence),
	}
}

func (m *memStore) PutTrack(_ context.Context, meta fpstore.TrackMeta) (uint64, error) {
	key := meta.SourceType + "|" + meta.SourceID
	if _, ok := m.bySource[key]; ok {
		return 0, fpstore.ErrDuplicateTrack
	}
	m.nextID++
	meta.SongID = m.nextID
	m.tracks[meta.SongID] = meta
	m.bySource[key] = meta.SongID
	m.byContent[meta.ContentHash] = meta.SongID
	return meta.SongID, nil
}

func (m *memStore) PutFingerprints(_ context.Context, songID uint64, fps []fpcore.Fingerprint) error {
	for _, fp := range fps {
		m.byHash[fp.Hash] = append(m.byHash[fp.Hash], fpstore.Occurrence{SongID: songID, AnchorTIdx: fp.AnchorTIdx})
	}
	return nil
}

func (m *memStore) DeleteTrack(_ context.Context, songID uint64) error {
	if _, ok := m.tracks[songID]; !ok {
		return fpstore.ErrNotFound
	}
	delete(m.tracks, songID)
	return nil
}

func (m *memStore) Lookup(_ context.Context, hashes []uint32) (map[uint32][]fpstore.Occurrence, error) {
	out := make(map[uint32][]fpstore.Occurrence)
	for _, h := range hashes {
		if occ, ok := m.byHash[h]; ok {
			out[h] = occ
		}
	}
	return out, nil
}

func (m *memStore) TrackByID(_ context.Context, songID uint64) (fpstore.TrackMeta, error) {
	t, ok := m.tracks[songID]
	if !ok {
		return fpstore.TrackMeta{}, fpstore.ErrNotFound
	}
	return t, nil
}

func (m *memStore) TrackBySource(_ context.Context, sourceType, sourceID string) (fpstore.TrackMeta, error) {
	id, ok := m.bySource[sourceType+"|"+sourceID]
	if !ok {
		return fpstore.TrackMeta{}, fpstore.ErrNotFound
	}
	return m.tracks[id], nil
}

func (m *memStore) TrackByContentHash(_ context.Context, hash uint64) (fpstore.TrackMeta, error) {
	id, ok := m.byContent[hash]
	if !ok {
		return fpstore.TrackMeta{}, fpstore.ErrNotFound
	}
	return m.tracks[id], nil
}

func (m *memStore) ListTracks(_ context.Context) ([]fpstore.TrackMeta, error) {
	out := make([]fpstore.TrackMeta, 0, len(m.tracks))
	for _, t := range m.tracks {
		out = append(out, t)
	}
	return out, nil
}

func (m *memStore) Count(_ context.Context) (int64, error) { return int64(len(m.tracks)), nil }
func (m *memStore) Close() error                           { return nil }

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
func (nopLogger) Debugf(string, ...any) {}

func sineWave(freq float64, seconds float64, rate int) []float64 {
	n := int(float64(rate) * seconds)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(rate))
	}
	return out
}

// sweep is a linear frequency sweep from f0 to f1 Hz. Unlike a steady tone,
// whose spectrogram is constant over time and so yields a single peak under
// the smallest-(t,f) tie-break, a sweep produces peaks in every frame.
func sweep(f0, f1, seconds float64, rate int) []float64 {
	n := int(float64(rate) * seconds)
	k := (f1 - f0) / seconds
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / float64(rate)
		out[i] = math.Sin(2 * math.Pi * (f0*t + k*t*t/2))
	}
	return out
}

func newTestService(t *testing.T) *service {
	t.Helper()
	svcAny, err := NewService(
		WithStore(newMemStore()),
		WithLogger(nopLogger{}),
		WithIngestWorkers(2),
		WithIngestQueueSize(8),
	)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	t.Cleanup(func() { svcAny.Close() })
	return svcAny.(*service)
}

func TestIngestAndMatchRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	pcm := sweep(100, 5000, 5, fpcore.SampleRate)
	songID, err := svc.Ingest(ctx, IngestRequest{
		PCM: pcm, SourceRate: fpcore.SampleRate, Channels: 1,
		SourceType: "local", SourceID: "a1", Title: "Tone A",
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	results, err := svc.Match(ctx, pcm, fpcore.SampleRate, 1)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].SongID != songID {
		t.Errorf("SongID = %d, want %d", results[0].SongID, songID)
	}
	if results[0].Title != "Tone A" {
		t.Errorf("Title = %q, want Tone A", results[0].Title)
	}
}

func TestIngestDuplicateSourceReturnsSentinel(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	pcm := sineWave(440, 2, fpcore.SampleRate)

	req := IngestRequest{PCM: pcm, SourceRate: fpcore.SampleRate, Channels: 1, SourceType: "local", SourceID: "dup"}
	if _, err := svc.Ingest(ctx, req); err != nil {
		t.Fatalf("first Ingest() error = %v", err)
	}
	_, err := svc.Ingest(ctx, req)
	if !errors.Is(err, ErrDuplicateTrack) {
		t.Fatalf("second Ingest() error = %v, want ErrDuplicateTrack", err)
	}
}

func TestIngestDuplicateContentDifferentSourceReturnsSentinel(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	pcm := sineWave(523, 2, fpcore.SampleRate)

	if _, err := svc.Ingest(ctx, IngestRequest{
		PCM: pcm, SourceRate: fpcore.SampleRate, Channels: 1, SourceType: "local", SourceID: "upload_1",
	}); err != nil {
		t.Fatalf("first Ingest() error = %v", err)
	}

	// Same audio content, different generated upload filename: the
	// (SourceType, SourceID) pair doesn't collide, but the content hash does.
	_, err := svc.Ingest(ctx, IngestRequest{
		PCM: pcm, SourceRate: fpcore.SampleRate, Channels: 1, SourceType: "local", SourceID: "upload_2",
	})
	if !errors.Is(err, ErrDuplicateTrack) {
		t.Fatalf("second Ingest() error = %v, want ErrDuplicateTrack", err)
	}
}

func TestIngestTooShortIsInvalidInput(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Ingest(context.Background(), IngestRequest{
		PCM: []float64{0.1, 0.2}, SourceRate: fpcore.SampleRate, Channels: 1,
		SourceType: "local", SourceID: "short",
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Ingest() error = %v, want ErrInvalidInput", err)
	}
}

func TestMatchEmptyLibraryIsNoMatch(t *testing.T) {
	svc := newTestService(t)
	pcm := sineWave(220, 2, fpcore.SampleRate)
	results, err := svc.Match(context.Background(), pcm, fpcore.SampleRate, 1)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %+v, want none", results)
	}
}

func TestDeleteTrackThenMatchNoLongerFinds(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	pcm := sweep(200, 3000, 5, fpcore.SampleRate)

	songID, err := svc.Ingest(ctx, IngestRequest{PCM: pcm, SourceRate: fpcore.SampleRate, Channels: 1, SourceType: "local", SourceID: "del1"})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if err := svc.DeleteTrack(ctx, songID); err != nil {
		t.Fatalf("DeleteTrack() error = %v", err)
	}
	if _, err := svc.GetTrack(ctx, songID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTrack() after delete = %v, want ErrNotFound", err)
	}
	results, err := svc.Match(ctx, pcm, fpcore.SampleRate, 1)
	if err != nil {
		t.Fatalf("Match() after delete error = %v", err)
	}
	for _, r := range results {
		if r.SongID == songID {
			t.Errorf("Match() after delete still returned song_id=%d", songID)
		}
	}
}

func TestEnqueueIngestReportsTaskStatus(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	pcm := sineWave(330, 3, fpcore.SampleRate)

	taskID, err := svc.EnqueueIngest(ctx, IngestRequest{PCM: pcm, SourceRate: fpcore.SampleRate, Channels: 1, SourceType: "local", SourceID: "async1"})
	if err != nil {
		t.Fatalf("EnqueueIngest() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		st, err := svc.TaskStatus(taskID)
		if err != nil {
			t.Fatalf("TaskStatus() error = %v", err)
		}
		if st.State == TaskDone {
			if st.SongID == 0 {
				t.Error("expected non-zero song id on done task")
			}
			return
		}
		if st.State == TaskFailed {
			t.Fatalf("task failed: %s", st.Err)
		}
		if time.Now().After(deadline) {
			t.Fatal("task did not complete in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
