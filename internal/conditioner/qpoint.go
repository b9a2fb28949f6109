package conditioner

import "math"

// findQPoint implements spec §4.3's Q-point search: look backward from
// the R index up to min(120ms, 12% of the estimated RR interval),
// preferring the steepest negative-slope segment, falling back to a
// second-derivative inflection, and finally to a plain argmin.
func findQPoint(x []float64, rIndex int, fs float64, avgRRSeconds float64) (int, bool) {
	searchMs := 120.0
	if avgRRSeconds > 0 {
		rrMs := avgRRSeconds * 1000
		if 0.12*rrMs < searchMs {
			searchMs = 0.12 * rrMs
		}
	}
	searchSamples := int(math.Round(searchMs / 1000 * fs))
	if searchSamples < 1 {
		searchSamples = 1
	}

	lo := rIndex - searchSamples
	if lo < 0 {
		lo = 0
	}
	if lo >= rIndex {
		return 0, false
	}

	// Preferred: steepest negative-slope segment with |slope| > 0.5.
	bestIdx := -1
	bestSlope := 0.0
	for i := lo + 1; i < rIndex; i++ {
		slope := x[i] - x[i-1]
		if slope < bestSlope {
			bestSlope = slope
			bestIdx = i
		}
	}
	if bestIdx != -1 && math.Abs(bestSlope) > 0.5 {
		refineSpan := int(math.Round(0.01 * fs))
		if refineSpan < 1 {
			refineSpan = 1
		}
		hi := bestIdx + refineSpan
		if hi >= rIndex {
			hi = rIndex - 1
		}
		qIdx := bestIdx
		qVal := x[bestIdx]
		for j := bestIdx; j <= hi; j++ {
			if x[j] < qVal {
				qVal = x[j]
				qIdx = j
			}
		}
		return qIdx, true
	}

	// Fallback: second-derivative inflection, negative → positive.
	for i := lo + 1; i < rIndex-1; i++ {
		d2a := x[i] - 2*x[i-1] + prevOrSelf(x, i-2)
		d2b := x[i+1] - 2*x[i] + x[i-1]
		if d2a < 0 && d2b >= 0 {
			return i, true
		}
	}

	// Final fallback: argmin in a >=40ms window immediately before R.
	minSamples := int(math.Round(0.04 * fs))
	floorLo := rIndex - minSamples
	if floorLo < 0 {
		floorLo = 0
	}
	if floorLo < lo {
		floorLo = lo
	}
	if floorLo >= rIndex {
		floorLo = rIndex - 1
	}
	if floorLo < 0 {
		return 0, false
	}
	qIdx := floorLo
	qVal := x[floorLo]
	for i := floorLo; i < rIndex; i++ {
		if x[i] < qVal {
			qVal = x[i]
			qIdx = i
		}
	}
	return qIdx, true
}

func prevOrSelf(x []float64, i int) float64 {
	if i < 0 {
		return x[0]
	}
	return x[i]
}
