// Package canceller implements C2, the Motion-Artifact Canceller: an
// adaptive LMS/NLMS filter that removes accelerometer-correlated noise
// from each ECG sample, gated by a motion detector (spec §4.2).
package canceller

import (
	"math"
	"sort"

	"biosignal/internal/model"
	"biosignal/internal/ringbuf"
)

// Config holds the filter's tunable parameters (spec §6).
type Config struct {
	Order             int     // L, FIFO tap length / weight vector length. Default 15.
	StepSize          float64 // μ, nominal adaptation step. Default 0.005.
	MotionThresholdG  float64 // motion-component threshold that triggers the high-motion step. Default 0.15.
	MaxGapSeconds     float64 // beyond this ECG/ACC time gap, pass through unchanged. Default 0.05 (50ms).
	ConvergenceWindow int     // rolling |e| window length for the convergence signal. Default 50.
	Normalized        bool    // NLMS: divide the step by accumulated tap energy. Default true.
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		Order:             15,
		StepSize:          0.005,
		MotionThresholdG:  0.15,
		MaxGapSeconds:     0.05,
		ConvergenceWindow: 50,
		Normalized:        true,
	}
}

// Canceller runs one adaptive filter instance for the session's ECG
// stream.
type Canceller struct {
	cfg Config

	taps    []float64 // FIFO of the last Order accelerometer magnitudes
	weights []float64
	tapPos  int // next write position in the circular taps/weights arrays

	enabled bool

	errWindow *ringbuf.Buffer[float64]

	Motion bool // last-computed motion flag, informational
}

// New creates a canceller with cfg, starting enabled.
func New(cfg Config) *Canceller {
	if cfg.Order < 1 {
		cfg.Order = 1
	}
	return &Canceller{
		cfg:       cfg,
		taps:      make([]float64, cfg.Order),
		weights:   make([]float64, cfg.Order),
		enabled:   true,
		errWindow: ringbuf.New[float64](max(cfg.ConvergenceWindow, 1)),
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Enabled reports whether the filter is currently active.
func (c *Canceller) Enabled() bool { return c.enabled }

// SetEnabled toggles the filter. Re-enabling resets the tap buffer and
// weights (spec §4.2 "bypass resets the tap buffer and weights on
// re-enable").
func (c *Canceller) SetEnabled(enabled bool) {
	if enabled && !c.enabled {
		for i := range c.taps {
			c.taps[i] = 0
			c.weights[i] = 0
		}
		c.tapPos = 0
	}
	c.enabled = enabled
}

// nearestAcc returns the accelerometer sample in accSamples (ascending by
// Timestamp) closest in time to t, and the absolute gap in seconds.
func nearestAcc(accSamples []model.AccSample, t float64) (model.AccSample, float64, bool) {
	if len(accSamples) == 0 {
		return model.AccSample{}, 0, false
	}
	i := sort.Search(len(accSamples), func(i int) bool {
		return accSamples[i].Timestamp >= t
	})

	candidates := make([]int, 0, 2)
	if i < len(accSamples) {
		candidates = append(candidates, i)
	}
	if i > 0 {
		candidates = append(candidates, i-1)
	}

	best := candidates[0]
	bestGap := math.Abs(accSamples[best].Timestamp - t)
	for _, c := range candidates[1:] {
		gap := math.Abs(accSamples[c].Timestamp - t)
		if gap < bestGap {
			best, bestGap = c, gap
		}
	}
	return accSamples[best], bestGap, true
}

// Filter runs one step of the adaptive filter for ecgValue sampled at
// ecgTime, using accSamples (ascending by timestamp) as the reference.
// If no accelerometer sample is within MaxGapSeconds, or the canceller is
// disabled, ecgValue passes through unchanged.
func (c *Canceller) Filter(ecgValue, ecgTime float64, accSamples []model.AccSample) float64 {
	if !c.enabled {
		return ecgValue
	}

	acc, gap, ok := nearestAcc(accSamples, ecgTime)
	if !ok || gap > c.cfg.MaxGapSeconds {
		return ecgValue
	}

	m := acc.Magnitude()
	c.Motion = acc.MotionComponent() > c.cfg.MotionThresholdG

	// Push m into the FIFO tap buffer at tapPos, the most recent tap.
	c.taps[c.tapPos] = m

	var estimate, sumSq float64
	for i := 0; i < c.cfg.Order; i++ {
		idx := (c.tapPos - i + c.cfg.Order) % c.cfg.Order
		estimate += c.weights[i] * c.taps[idx]
		sumSq += c.taps[idx] * c.taps[idx]
	}

	e := ecgValue - estimate

	step := c.cfg.StepSize
	if c.Motion {
		step *= 3
	}
	if c.cfg.Normalized {
		step /= sumSq + model.Epsilon
	}

	for i := 0; i < c.cfg.Order; i++ {
		idx := (c.tapPos - i + c.cfg.Order) % c.cfg.Order
		c.weights[i] += step * e * c.taps[idx]
	}

	c.tapPos = (c.tapPos + 1) % c.cfg.Order
	c.errWindow.Add(math.Abs(e))

	return e
}

// Converged reports whether the rolling |e| window's variance has fallen
// below 10% of its mean — informational only, per spec §4.2; it never
// gates the filter.
func (c *Canceller) Converged() bool {
	vals := c.errWindow.All()
	if len(vals) < 2 {
		return false
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))
	if mean <= model.Epsilon {
		return true
	}
	var variance float64
	for _, v := range vals {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(vals))
	return variance < 0.1*mean
}

// Reset clears all filter state, as on session end.
func (c *Canceller) Reset() {
	for i := range c.taps {
		c.taps[i] = 0
		c.weights[i] = 0
	}
	c.tapPos = 0
	c.errWindow.Reset()
	c.Motion = false
}
