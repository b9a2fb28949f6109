// Package conditioner implements C3, the ECG Conditioner + Fiducial
// Detector: moving-average smoothing, baseline removal, R-peak detection
// with refinement, Q-point search, T-peak/T-end localization, and QT
// interval emission (spec §4.3). It operates on a trailing window of the
// motion-filtered ECG buffer; the pipeline calls Process both right after
// each ingested batch (the event-driven fast path) and on the periodic
// display tick (the slow path recompute), so Process is written to be
// idempotent with respect to already-emitted fiducials.
package conditioner

import (
	"math"
	"sort"

	"biosignal/internal/model"
)

// Config holds the conditioner's tunable parameters (spec §4.3, §6).
type Config struct {
	WindowSeconds  float64 // trailing window the conditioner recomputes over. Default 5.0.
	RefractoryMs   float64 // minimum spacing between accepted R-peaks. Default 400.
	QtcFormula     model.QtcFormula
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		WindowSeconds: 5.0,
		RefractoryMs:  400,
		QtcFormula:    model.QtcFridericia,
	}
}

// Result is everything Process produced for one call: newly accepted
// fiducial points (R always; Q/Tpeak/Tend when the QT acceptance
// criteria hold) and any QT events emitted this call.
type Result struct {
	Fiducials    []model.FiducialPoint
	QtEvents     []model.QtEvent
	HeartRateBpm float64 // mean HR over R-peaks in the current window, 0 if <2 peaks
}

// Conditioner holds the cross-call state needed to avoid re-emitting
// fiducials for an R-peak already processed in an earlier, overlapping
// window (spec §4.3 Emission: "Record the R's global index in a
// processed set to avoid duplicate QT emissions on subsequent
// overlapping windows"). We extend the same set to gate the R/Q/Tpeak/
// Tend fiducial emissions themselves, not only QT, since the windows
// genuinely overlap across calls and re-announcing the same R on every
// tick would defeat the point of a "new fiducials" result.
type Conditioner struct {
	cfg       Config
	fsEcg     float64
	processed map[int64]bool
}

// New creates a conditioner for the given ECG sample rate.
func New(cfg Config, fsEcg float64) *Conditioner {
	return &Conditioner{
		cfg:       cfg,
		fsEcg:     fsEcg,
		processed: make(map[int64]bool),
	}
}

// Process runs the full conditioning + fiducial detection pipeline over
// window (oldest-first, global-indexed starting at firstGlobalIndex) and
// returns any newly accepted fiducials/QT events.
func (c *Conditioner) Process(window []model.EcgSample, firstGlobalIndex int64) Result {
	n := len(window)
	if n < 11 {
		return Result{}
	}

	filtered := make([]float64, n)
	raw := make([]float64, n)
	times := make([]float64, n)
	for i, s := range window {
		filtered[i] = s.Filtered
		raw[i] = s.Raw
		times[i] = s.Timestamp
	}

	smoothed := movingAverage(filtered, smoothingSamples(c.fsEcg))
	conditioned := removeBaseline(smoothed, c.fsEcg)

	peaks := detectRPeaks(conditioned, c.fsEcg, c.cfg.RefractoryMs)
	refinePeaks(peaks, raw, c.fsEcg)

	var res Result
	res.HeartRateBpm = meanHeartRate(peaks, times)
	avgRR := meanRRSeconds(peaks, times)

	for pi, pk := range peaks {
		rIdx := pk.idx()
		globalIdx := firstGlobalIndex + int64(rIdx)

		if c.processed[globalIdx] {
			continue
		}
		c.processed[globalIdx] = true

		rTime := times[rIdx]
		res.Fiducials = append(res.Fiducials, model.FiducialPoint{
			Kind:        model.FiducialR,
			GlobalIndex: globalIdx,
			Timestamp:   rTime,
			Value:       raw[rIdx],
		})

		qIdx, qOk := findQPoint(conditioned, rIdx, c.fsEcg, avgRR)
		nextRIdx := n
		if pi+1 < len(peaks) {
			nextRIdx = peaks[pi+1].idx()
		}
		tpIdx, tpOk := findTPeak(conditioned, rIdx, nextRIdx, c.fsEcg)
		var tendIdx int
		var tendOk bool
		if tpOk {
			tendIdx, tendOk = findTEnd(conditioned, tpIdx, nextRIdx, c.fsEcg)
		}

		var qtMs float64
		accepted := qOk && tpOk && tendOk && qIdx < tpIdx && tpIdx < tendIdx
		if accepted {
			qtMs = (times[tendIdx] - times[qIdx]) * 1000
			accepted = qtMs >= model.QtMinMs && qtMs <= model.QtMaxMs
		}

		if accepted {
			res.Fiducials = append(res.Fiducials, model.FiducialPoint{
				Kind:        model.FiducialQ,
				GlobalIndex: firstGlobalIndex + int64(qIdx),
				Timestamp:   times[qIdx],
				Value:       conditioned[qIdx],
			})
		}
		if accepted {
			res.Fiducials = append(res.Fiducials, model.FiducialPoint{
				Kind:        model.FiducialTpeak,
				GlobalIndex: firstGlobalIndex + int64(tpIdx),
				Timestamp:   times[tpIdx],
				Value:       conditioned[tpIdx],
			})
		}
		if accepted {
			res.Fiducials = append(res.Fiducials, model.FiducialPoint{
				Kind:        model.FiducialTend,
				GlobalIndex: firstGlobalIndex + int64(tendIdx),
				Timestamp:   times[tendIdx],
				Value:       conditioned[tendIdx],
			})
		}

		if accepted {
			ev := model.QtEvent{
				RIndex:    globalIdx,
				QIndex:    firstGlobalIndex + int64(qIdx),
				TendIndex: firstGlobalIndex + int64(tendIdx),
				RTime:     rTime,
				QTime:     times[qIdx],
				TendTime:  times[tendIdx],
				QtMs:      qtMs,
			}
			if avgRR > 0 {
				ev.RrMs = avgRR * 1000
				ev.QtcMs = correctQt(qtMs, avgRR, c.cfg.QtcFormula)
			}
			res.QtEvents = append(res.QtEvents, ev)
		}
	}

	return res
}

// correctQt applies the configured rate-correction formula. rrSeconds is
// the RR interval in seconds.
func correctQt(qtMs, rrSeconds float64, formula model.QtcFormula) float64 {
	if rrSeconds <= 0 {
		return qtMs
	}
	switch formula {
	case model.QtcBazett:
		return qtMs / math.Sqrt(rrSeconds)
	default: // Fridericia
		return qtMs / math.Cbrt(rrSeconds)
	}
}

// Prune drops processed-set entries whose global index has aged out of
// the ECG buffer (spec §3: "A fiducial point whose global index has
// fallen out of the buffer is unreferenced and may be pruned").
func (c *Conditioner) Prune(oldestRetainedIndex int64) {
	for idx := range c.processed {
		if idx < oldestRetainedIndex {
			delete(c.processed, idx)
		}
	}
}

// Reset discards all conditioner state, as on session end.
func (c *Conditioner) Reset() {
	c.processed = make(map[int64]bool)
}

func smoothingSamples(fs float64) int {
	n := int(math.Round(0.01 * fs))
	if n < 3 {
		n = 3
	}
	return n
}

// movingAverage applies a centered boxcar of the given odd-ish window
// length, clamping at the edges to the available neighborhood. This
// "carries context" implicitly by operating on the full trailing window
// each call rather than needing state threaded across batches.
func movingAverage(x []float64, window int) []float64 {
	n := len(x)
	out := make([]float64, n)
	half := window / 2
	for i := 0; i < n; i++ {
		lo := i - half
		hi := i + half
		if lo < 0 {
			lo = 0
		}
		if hi >= n {
			hi = n - 1
		}
		var sum float64
		for j := lo; j <= hi; j++ {
			sum += x[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}

// removeBaseline partitions x into overlapping half-second segments, uses
// the mean of the lowest 20% of samples in each segment as that segment's
// baseline level, linearly interpolates across the window, and subtracts.
func removeBaseline(x []float64, fs float64) []float64 {
	n := len(x)
	segLen := int(math.Round(0.5 * fs))
	if segLen < 2 {
		segLen = 2
	}
	stride := segLen / 2
	if stride < 1 {
		stride = 1
	}

	type anchor struct {
		center  int
		level   float64
	}
	var anchors []anchor
	for start := 0; start < n; start += stride {
		end := start + segLen
		if end > n {
			end = n
		}
		if end <= start {
			break
		}
		seg := append([]float64(nil), x[start:end]...)
		sort.Float64s(seg)
		k := int(math.Ceil(0.2 * float64(len(seg))))
		if k < 1 {
			k = 1
		}
		var sum float64
		for i := 0; i < k; i++ {
			sum += seg[i]
		}
		level := sum / float64(k)
		anchors = append(anchors, anchor{center: (start + end) / 2, level: level})
		if end == n {
			break
		}
	}

	if len(anchors) == 0 {
		return append([]float64(nil), x...)
	}
	if len(anchors) == 1 {
		out := make([]float64, n)
		for i := range x {
			out[i] = x[i] - anchors[0].level
		}
		return out
	}

	baseline := make([]float64, n)
	ai := 0
	for i := 0; i < n; i++ {
		for ai < len(anchors)-2 && i > anchors[ai+1].center {
			ai++
		}
		a, b := anchors[ai], anchors[ai+1]
		if b.center == a.center {
			baseline[i] = a.level
			continue
		}
		frac := float64(i-a.center) / float64(b.center-a.center)
		frac = model.Clamp(frac, 0, 1)
		baseline[i] = a.level + frac*(b.level-a.level)
	}

	out := make([]float64, n)
	for i := range x {
		out[i] = x[i] - baseline[i]
	}
	return out
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := p * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func meanHeartRate(peaks []rPeak, times []float64) float64 {
	if len(peaks) < 2 {
		return 0
	}
	var sum float64
	count := 0
	for i := 1; i < len(peaks); i++ {
		dt := times[peaks[i].idx()] - times[peaks[i-1].idx()]
		if dt > 0 {
			sum += dt
			count++
		}
	}
	if count == 0 {
		return 0
	}
	meanRR := sum / float64(count)
	return 60.0 / meanRR
}

func meanRRSeconds(peaks []rPeak, times []float64) float64 {
	if len(peaks) < 2 {
		return 0
	}
	var sum float64
	count := 0
	for i := 1; i < len(peaks); i++ {
		dt := times[peaks[i].idx()] - times[peaks[i-1].idx()]
		if dt > 0 {
			sum += dt
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
