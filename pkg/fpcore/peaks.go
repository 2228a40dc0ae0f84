package fpcore

// ExtractPeaks finds local maxima of a T x F dB-magnitude spectrogram over a
// Neighborhood x Neighborhood rectangular window (half-sizes Neighborhood/2
// on each side, clipped at the matrix edges), discarding anything below
// MinAmplitudeDB. Ties within a neighborhood are broken by keeping only the
// smallest (t_idx, f_idx) among equal values, so output is deterministic
// under floating-point equality. The result is sorted by t_idx ascending,
// then f_idx ascending.
func ExtractPeaks(spec [][]float32) []Peak {
	if len(spec) == 0 {
		return nil
	}
	t := len(spec)
	f := len(spec[0])
	half := Neighborhood / 2

	var peaks []Peak
	for ti := 0; ti < t; ti++ {
		row := spec[ti]
		for fi := 0; fi < f; fi++ {
			v := row[fi]
			if v < MinAmplitudeDB {
				continue
			}
			if isLocalMax(spec, ti, fi, v, half) {
				peaks = append(peaks, Peak{TIdx: uint32(ti), FIdx: uint16(fi)})
			}
		}
	}
	return peaks
}

// isLocalMax reports whether spec[ti][fi] == v is the maximum over the
// rectangular neighborhood centered at (ti, fi), with ties resolved in favor
// of the lexicographically smallest (t, f): a neighbor is only allowed to
// beat (ti, fi) if it is strictly greater, or equal but earlier in
// row-major order.
func isLocalMax(spec [][]float32, ti, fi int, v float32, half int) bool {
	t := len(spec)
	f := len(spec[0])

	tMin, tMax := ti-half, ti+half
	if tMin < 0 {
		tMin = 0
	}
	if tMax >= t {
		tMax = t - 1
	}
	fMin, fMax := fi-half, fi+half
	if fMin < 0 {
		fMin = 0
	}
	if fMax >= f {
		fMax = f - 1
	}

	for nt := tMin; nt <= tMax; nt++ {
		row := spec[nt]
		for nf := fMin; nf <= fMax; nf++ {
			if nt == ti && nf == fi {
				continue
			}
			nv := row[nf]
			if nv > v {
				return false
			}
			if nv == v && before(nt, nf, ti, fi) {
				return false
			}
		}
	}
	return true
}

func before(t1, f1, t2, f2 int) bool {
	if t1 != t2 {
		return t1 < t2
	}
	return f1 < f2
}
