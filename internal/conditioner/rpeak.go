package conditioner

import (
	"math"
	"sort"
)

// rPeak is a candidate/accepted R-peak location within a processing
// window, indexed locally (not by the ECG buffer's global index).
type rPeak struct {
	Index float64 // float so refinePeaks can reassign without a second type
	Value float64
}

// Index as int for convenience where the detector deals in sample
// positions.
func (p rPeak) idx() int { return int(p.Index) }

// detectRPeaks implements spec §4.3's R-peak detector: a dynamic
// threshold blended from the 90th percentile and the mean of
// above-percentile values, a first-difference derivative gate, a ±5
// sample local-maximum test, and a 400ms refractory period with
// amplitude-override replacement.
func detectRPeaks(x []float64, fs float64, refractoryMs float64) []rPeak {
	n := len(x)
	if n < 11 {
		return nil
	}

	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	p90 := percentile(sorted, 0.90)

	var aboveSum float64
	var aboveCount int
	for _, v := range x {
		if v > p90 {
			aboveSum += v
			aboveCount++
		}
	}
	aboveMean := p90
	if aboveCount > 0 {
		aboveMean = aboveSum / float64(aboveCount)
	}
	threshold := 0.5*p90 + 0.5*aboveMean

	deriv := make([]float64, n)
	for i := 1; i < n; i++ {
		deriv[i] = x[i] - x[i-1]
	}

	refractorySamples := int(math.Round(refractoryMs / 1000 * fs))

	type candidate struct {
		index int
		value float64
	}
	var accepted []candidate

	for i := 5; i < n-5; i++ {
		if x[i] <= threshold {
			continue
		}
		isLocalMax := true
		for j := i - 5; j <= i+5; j++ {
			if j != i && x[j] > x[i] {
				isLocalMax = false
				break
			}
		}
		if !isLocalMax {
			continue
		}
		derivOK := deriv[i] > threshold/15 || (i+1 < n && deriv[i+1] < -threshold/15)
		if !derivOK {
			continue
		}

		if len(accepted) > 0 {
			last := accepted[len(accepted)-1]
			if i-last.index < refractorySamples {
				if x[i] > last.value*1.10 {
					accepted[len(accepted)-1] = candidate{index: i, value: x[i]}
				}
				continue
			}
		}
		accepted = append(accepted, candidate{index: i, value: x[i]})
	}

	peaks := make([]rPeak, len(accepted))
	for i, c := range accepted {
		peaks[i] = rPeak{Index: float64(c.index), Value: c.value}
	}
	return peaks
}

// refinePeaks relocates each peak to the argmax of the unfiltered
// (raw) ECG within ±20ms of its detected index.
func refinePeaks(peaks []rPeak, raw []float64, fs float64) {
	span := int(math.Round(0.02 * fs))
	n := len(raw)
	for i := range peaks {
		center := peaks[i].idx()
		lo := center - span
		hi := center + span
		if lo < 0 {
			lo = 0
		}
		if hi >= n {
			hi = n - 1
		}
		bestIdx := center
		bestVal := raw[center]
		for j := lo; j <= hi; j++ {
			if raw[j] > bestVal {
				bestVal = raw[j]
				bestIdx = j
			}
		}
		peaks[i] = rPeak{Index: float64(bestIdx), Value: bestVal}
	}
}
