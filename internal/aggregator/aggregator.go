// Package aggregator implements C5, the Index Aggregator: per-metric
// stress-score normalization, the SNS/PSNS autonomic scores, the
// Stress/Energy/Health composite indices, adaptive-EMA smoothing, and the
// derived vulnerability label (spec §4.5).
package aggregator

import (
	"math"

	"biosignal/internal/hrv"
	"biosignal/internal/model"
	"biosignal/internal/ringbuf"
)

const smoothHistoryLen = 20

// minWindowForEmission is the |W| gate below which indices hold their
// last emitted value instead of recomputing (spec §4.5 "Minimum-data
// gating").
const minWindowForEmission = 5

// lerp linearly interpolates y over [x0, x1] -> [y0, y1], clamping x to
// the segment first.
func lerp(x, x0, x1, y0, y1 float64) float64 {
	if x1 == x0 {
		return y0
	}
	frac := (x - x0) / (x1 - x0)
	frac = model.Clamp(frac, 0, 1)
	return y0 + frac*(y1-y0)
}

// normLFHF maps LF/HF onto the [0, 100] stress-score scale.
func normLFHF(x float64) float64 {
	switch {
	case x <= 0.5:
		return 10
	case x <= 1.0:
		return lerp(x, 0.5, 1.0, 20, 30)
	case x <= 2.0:
		return lerp(x, 1.0, 2.0, 30, 50)
	case x <= 3.0:
		return lerp(x, 2.0, 3.0, 50, 70)
	default:
		return 100
	}
}

// normSDNN maps SDNN (ms) onto the stress-score scale. Good HRV (high
// SDNN) yields a low score.
func normSDNN(x float64) float64 {
	switch {
	case x <= 20:
		return 100
	case x <= 50:
		return lerp(x, 20, 50, 80, 40)
	case x <= 100:
		return lerp(x, 50, 100, 40, 10)
	default:
		return 0
	}
}

// normRMSSD maps RMSSD (ms) onto the stress-score scale.
func normRMSSD(x float64) float64 {
	switch {
	case x <= 10:
		return 100
	case x <= 30:
		return lerp(x, 10, 30, 80, 40)
	case x <= 50:
		return lerp(x, 30, 50, 40, 15)
	default:
		return 0
	}
}

// normTotalPower maps total HRV power (ms²) onto the stress-score scale,
// decaying smoothly toward 0 past 2000 rather than a hard cutoff.
func normTotalPower(x float64) float64 {
	switch {
	case x <= 500:
		return 90
	case x <= 1000:
		return lerp(x, 500, 1000, 70, 50)
	case x <= 2000:
		return lerp(x, 1000, 2000, 50, 30)
	default:
		return 30 * math.Exp(-(x-2000)/1000)
	}
}

// smoother applies the adaptive-EMA blend of spec §4.5 "Smoothing" and
// retains a bounded history of emitted values.
type smoother struct {
	history *ringbuf.Buffer[float64]
	last    float64
	hasLast bool
}

func newSmoother() *smoother {
	return &smoother{history: ringbuf.New[float64](smoothHistoryLen)}
}

func (s *smoother) apply(raw float64) float64 {
	if !s.hasLast {
		s.last = raw
		s.hasLast = true
		s.history.Add(raw)
		return raw
	}
	delta := math.Abs(raw - s.last)
	alpha := model.Clamp(0.5+delta/200, 0.5, 0.8)
	smoothed := alpha*raw + (1-alpha)*s.last
	s.last = smoothed
	s.history.Add(smoothed)
	return smoothed
}

// Result is everything Aggregator.Compute produced for one accepted R-R
// interval's HRV metrics.
type Result struct {
	Stress, Energy, Health float64
	Vulnerability          model.VulnerabilityLabel
	Emitted                bool // false while held at the last value under minimum-data gating
}

// Aggregator holds the three composite indices' smoothing state.
type Aggregator struct {
	stress *smoother
	energy *smoother
	health *smoother
}

// New creates an Aggregator with all indices cold (un-emitted).
func New() *Aggregator {
	return &Aggregator{
		stress: newSmoother(),
		energy: newSmoother(),
		health: newSmoother(),
	}
}

// Compute maps m onto the three composite indices and runs each through
// its adaptive smoother, unless rrWindowLen < 5, in which case the last
// emitted values are held (or 0 on cold start) per the minimum-data gate.
func (a *Aggregator) Compute(m hrv.Metrics, rrWindowLen int) Result {
	if rrWindowLen < minWindowForEmission {
		return Result{
			Stress:        a.stress.last,
			Energy:        a.energy.last,
			Health:        a.health.last,
			Vulnerability: model.VulnerabilityFromHealth(a.health.last),
			Emitted:       false,
		}
	}

	nLFHF := normLFHF(m.LFHF)
	nSDNN := normSDNN(m.SDNN)
	nRMSSD := normRMSSD(m.RMSSD)
	nTP := normTotalPower(m.TotalPower)

	sns := 0.5*nLFHF + 0.25*nSDNN + 0.25*nRMSSD
	psns := 0.4*(100-nLFHF) + 0.2*(100-nSDNN) + 0.2*(100-nRMSSD) + 0.2*(100-nTP)

	rawStress := model.Clamp(0.7*sns+0.2*(100-psns)+0.1*math.Abs(sns-psns)/25*10, 0, 100)
	rawEnergy := model.Clamp(0.5*psns+0.2*(100-nSDNN)+0.2*(100-nRMSSD)+0.1*(100-nTP), 0, 100)

	immunity := 100 - nSDNN
	recovery := 100 - nRMSSD
	balance := model.Clamp(100-math.Abs(sns-psns), 0, 100)
	rawHealth := model.Clamp(
		0.3*immunity+0.3*recovery+0.2*balance+0.1*(100-rawStress)+0.1*rawEnergy,
		0, 100,
	)

	stress := a.stress.apply(rawStress)
	energy := a.energy.apply(rawEnergy)
	health := a.health.apply(rawHealth)

	return Result{
		Stress:        stress,
		Energy:        energy,
		Health:        health,
		Vulnerability: model.VulnerabilityFromHealth(health),
		Emitted:       true,
	}
}

// Reset discards all smoothing state, as on session end.
func (a *Aggregator) Reset() {
	a.stress = newSmoother()
	a.energy = newSmoother()
	a.health = newSmoother()
}
