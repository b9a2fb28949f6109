package conditioner

import (
	"math"

	"biosignal/internal/model"
)

// findTPeak implements spec §4.3's "second local maximum" T-peak
// strategy: within (R+0.1*fs, nextR) find the two largest local maxima
// and take the lesser-index one. If fewer than two local maxima exist,
// fall back to the argmax weighted by proximity to the expected T
// location (~300ms post-R).
func findTPeak(x []float64, rIndex, nextRIndex int, fs float64) (int, bool) {
	n := len(x)
	lo := rIndex + int(math.Round(0.1*fs))
	hi := nextRIndex
	if hi > n {
		hi = n
	}
	if lo >= hi-1 {
		return 0, false
	}

	type localMax struct {
		index int
		value float64
	}
	var maxima []localMax
	for i := lo + 1; i < hi-1; i++ {
		if x[i] > x[i-1] && x[i] > x[i+1] {
			maxima = append(maxima, localMax{i, x[i]})
		}
	}

	if len(maxima) >= 2 {
		// Find the two largest by value.
		first, second := maxima[0], maxima[1]
		if second.value > first.value {
			first, second = second, first
		}
		for _, m := range maxima[2:] {
			if m.value > first.value {
				second = first
				first = m
			} else if m.value > second.value {
				second = m
			}
		}
		if first.index > second.index {
			return second.index, true
		}
		return first.index, true
	}

	// Fallback: argmax weighted by proximity to the expected T location.
	expected := rIndex + int(math.Round(0.3*fs))
	if expected < lo {
		expected = lo
	}
	if expected >= hi {
		expected = hi - 1
	}

	minV, maxV := x[lo], x[lo]
	for i := lo; i < hi; i++ {
		if x[i] < minV {
			minV = x[i]
		}
		if x[i] > maxV {
			maxV = x[i]
		}
	}
	ampRange := maxV - minV
	if ampRange < model.Epsilon {
		ampRange = model.Epsilon
	}
	windowLen := float64(hi - lo)

	bestIdx := lo
	bestScore := math.Inf(-1)
	for i := lo; i < hi; i++ {
		normAmp := (x[i] - minV) / ampRange
		normDist := math.Abs(float64(i-expected)) / windowLen
		score := normAmp - normDist
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	return bestIdx, true
}

// findTEnd implements spec §4.3's trapezium's-area method: locate xm
// (steepest descent after the T-peak), xr (the following quiescent
// iso-electric point), then take the index in [xm, xr] maximizing the
// triangle area anchored at xm. Falls back to the 15%-of-amplitude
// return-to-baseline rule if the geometric construction degenerates.
func findTEnd(x []float64, tpIdx, nextRIndex int, fs float64) (int, bool) {
	n := len(x)
	limit := nextRIndex
	if limit > n {
		limit = n
	}

	w1hi := tpIdx + int(math.Round(0.2*fs))
	if w1hi > limit {
		w1hi = limit
	}
	if w1hi <= tpIdx+1 {
		return fallbackTEnd(x, tpIdx, limit)
	}

	xm := tpIdx
	bestDeriv := 0.0
	for i := tpIdx + 1; i < w1hi; i++ {
		d := math.Abs(x[i] - x[i-1])
		if d > bestDeriv {
			bestDeriv = d
			xm = i
		}
	}

	w2lo := tpIdx + int(math.Round(0.2*fs))
	w2hi := tpIdx + int(math.Round(0.4*fs))
	if w2lo < xm+1 {
		w2lo = xm + 1
	}
	if w2hi > limit {
		w2hi = limit
	}
	if w2lo >= w2hi {
		return fallbackTEnd(x, tpIdx, limit)
	}

	xr := w2lo
	bestMinDeriv := math.Abs(x[w2lo] - x[w2lo-1])
	for i := w2lo + 1; i < w2hi; i++ {
		d := math.Abs(x[i] - x[i-1])
		if d < bestMinDeriv {
			bestMinDeriv = d
			xr = i
		}
	}

	if xr <= xm {
		return fallbackTEnd(x, tpIdx, limit)
	}

	bestArea := math.Inf(-1)
	bestIdx := xm
	for xi := xm; xi <= xr; xi++ {
		area := 0.5 * (x[xm] - x[xi]) * float64(xr-xi)
		if area > bestArea {
			bestArea = area
			bestIdx = xi
		}
	}
	return bestIdx, true
}

func fallbackTEnd(x []float64, tpIdx, limit int) (int, bool) {
	n := len(x)
	if limit > n {
		limit = n
	}
	if tpIdx >= limit-1 {
		return 0, false
	}
	amp := x[tpIdx]
	threshold := 0.15 * math.Abs(amp)
	for i := tpIdx + 1; i < limit; i++ {
		if math.Abs(x[i]) <= threshold {
			return i, true
		}
	}
	return limit - 1, true
}
