// Package fpmatch implements histogram-alignment matching: given a query's
// fingerprints and a fingerprint index, it recovers the best-aligned
// reference tracks and their temporal offsets.
package fpmatch

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/semaphore"

	"github.com/landmarkfp/fpengine/pkg/fpcore"
	"github.com/landmarkfp/fpengine/pkg/fpstore"
)

// Candidate is a scored alignment for one reference track.
type Candidate struct {
	SongID        uint64
	Score         int
	OffsetSeconds float64
}

// Options configures a single Match call.
type Options struct {
	TopK               int
	MinAbsoluteMatches int
}

// DefaultOptions returns the spec-mandated defaults: top_k=1,
// min_absolute_matches=2.
func DefaultOptions() Options {
	return Options{TopK: 1, MinAbsoluteMatches: fpcore.MinAbsoluteMatches}
}

// Match runs the histogram-alignment algorithm (spec.md §4.6) against the
// given query fingerprints and index. Concurrent hash lookups are bounded
// by a weighted semaphore to keep a single query from saturating the store.
func Match(ctx context.Context, store fpstore.Store, query []fpcore.Fingerprint, opts Options) ([]Candidate, error) {
	if opts.TopK <= 0 {
		opts.TopK = 1
	}
	if opts.MinAbsoluteMatches <= 0 {
		opts.MinAbsoluteMatches = fpcore.MinAbsoluteMatches
	}
	if len(query) == 0 {
		return nil, nil
	}

	queryAnchors := make(map[uint32][]uint32)
	hashSet := make(map[uint32]struct{})
	for _, fp := range query {
		queryAnchors[fp.Hash] = append(queryAnchors[fp.Hash], fp.AnchorTIdx)
		hashSet[fp.Hash] = struct{}{}
	}

	hashes := make([]uint32, 0, len(hashSet))
	for h := range hashSet {
		hashes = append(hashes, h)
	}

	occurrences, err := lookupBounded(ctx, store, hashes)
	if err != nil {
		return nil, err
	}

	histogram := make(map[uint64]map[int64]int)
	for hash, occs := range occurrences {
		anchorsQ := queryAnchors[hash]
		for _, occ := range occs {
			for _, anchorQ := range anchorsQ {
				delta := int64(occ.AnchorTIdx) - int64(anchorQ)
				songHist := histogram[occ.SongID]
				if songHist == nil {
					songHist = make(map[int64]int)
					histogram[occ.SongID] = songHist
				}
				songHist[delta]++
			}
		}
	}

	candidates := make([]Candidate, 0, len(histogram))
	for songID, songHist := range histogram {
		bestDelta, score := argmax(songHist)
		if score < opts.MinAbsoluteMatches {
			continue
		}
		candidates = append(candidates, Candidate{
			SongID:        songID,
			Score:         score,
			OffsetSeconds: float64(bestDelta) * float64(fpcore.HopSize) / float64(fpcore.SampleRate),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].SongID < candidates[j].SongID
	})

	if len(candidates) > opts.TopK {
		candidates = candidates[:opts.TopK]
	}
	return candidates, nil
}

// argmax returns the (delta, count) with the highest count, breaking ties by
// smaller |delta|.
func argmax(hist map[int64]int) (int64, int) {
	var bestDelta int64
	bestScore := -1
	first := true
	for delta, count := range hist {
		if first {
			bestDelta, bestScore, first = delta, count, false
			continue
		}
		if count > bestScore || (count == bestScore && absInt64(delta) < absInt64(bestDelta)) {
			bestDelta, bestScore = delta, count
		}
	}
	return bestDelta, bestScore
}

func absInt64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

// lookupBounded issues a single store Lookup for up to 256 hashes; larger
// hash sets are split into 256-hash batches looked up concurrently, with
// concurrency bounded by a weighted semaphore sized to GOMAXPROCS.
func lookupBounded(ctx context.Context, store fpstore.Store, hashes []uint32) (map[uint32][]fpstore.Occurrence, error) {
	const maxBatch = 256
	if len(hashes) <= maxBatch {
		return store.Lookup(ctx, hashes)
	}

	sem := semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0)))
	result := make(map[uint32][]fpstore.Occurrence)
	resultCh := make(chan map[uint32][]fpstore.Occurrence, (len(hashes)+maxBatch-1)/maxBatch)
	errCh := make(chan error, 1)

	var pending int
	for i := 0; i < len(hashes); i += maxBatch {
		end := i + maxBatch
		if end > len(hashes) {
			end = len(hashes)
		}
		batch := hashes[i:end]
		pending++

		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		go func(batch []uint32) {
			defer sem.Release(1)
			occ, err := store.Lookup(ctx, batch)
			if err != nil {
				select {
				case errCh <- err:
				default:
				}
				resultCh <- nil
				return
			}
			resultCh <- occ
		}(batch)
	}

	for i := 0; i < pending; i++ {
		occ := <-resultCh
		for h, v := range occ {
			result[h] = append(result[h], v...)
		}
	}
	select {
	case err := <-errCh:
		return nil, err
	default:
	}
	return result, nil
}
