// Package hrv implements C4, the HRV Engine: a bounded sliding window of
// accepted R-R intervals and the time-domain and frequency-domain metrics
// computed over it (spec §4.4).
package hrv

import (
	"math"

	"biosignal/internal/model"
	"biosignal/internal/ringbuf"
)

// Band is a named frequency band over which power is estimated.
type Band int

const (
	BandVLF Band = iota
	BandLF
	BandHF
	BandTotal
)

func (b Band) String() string {
	switch b {
	case BandVLF:
		return "VLF"
	case BandLF:
		return "LF"
	case BandHF:
		return "HF"
	case BandTotal:
		return "Total"
	default:
		return "unknown"
	}
}

var bandRanges = map[Band][2]float64{
	BandVLF:   {0.003, 0.04},
	BandLF:    {0.04, 0.15},
	BandHF:    {0.15, 0.4},
	BandTotal: {0.003, 0.4},
}

// NormConstants holds the per-band normalization divisors applied after
// scaling to ms². Spec §4.4 leaves these as "documented bands" without
// pinning exact constants; DESIGN.md records the Open Question decision
// for these defaults.
type NormConstants struct {
	VLF, LF, HF, Total float64
}

// DefaultNormConstants are the Open-Question defaults (see DESIGN.md).
func DefaultNormConstants() NormConstants {
	return NormConstants{VLF: 1.0, LF: 4.5, HF: 9.0, Total: 8.0}
}

// Config holds the engine's tunable parameters (spec §6).
type Config struct {
	WindowCount int // rr_window_count, default 60, clamped to [2, 1000]
	Norm        NormConstants
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		WindowCount: model.RrWindowDefault,
		Norm:        DefaultNormConstants(),
	}
}

// clampWindowCount enforces spec §6's rr_window_count bounds.
func clampWindowCount(n int) int {
	if n < model.RrWindowMin {
		return model.RrWindowMin
	}
	if n > model.RrWindowMax {
		return model.RrWindowMax
	}
	return n
}

// Metrics is the full set of values Engine.Accept computes for one
// accepted R-R interval.
type Metrics struct {
	SDNN, RMSSD, PNN50, MxDMn, AMo50, CV float64

	VLFPower, LFPower, HFPower, TotalPower float64
	LFHF                                    float64

	HasTimeDomain bool // true once |W| >= 2
	HasFreqDomain bool // true once |W| >= 5
}

// Engine maintains the bounded R-R window and computes HRV metrics on
// every accepted interval.
type Engine struct {
	cfg    Config
	window *ringbuf.Buffer[float64] // milliseconds
}

// New creates an Engine. cfg.WindowCount is clamped to the spec's bounds.
func New(cfg Config) *Engine {
	cfg.WindowCount = clampWindowCount(cfg.WindowCount)
	return &Engine{
		cfg:    cfg,
		window: ringbuf.New[float64](cfg.WindowCount),
	}
}

// Accept records one R-R interval (already validated by ingress to lie
// within [RrMinMs, RrMaxMs]) and returns the freshly computed metrics.
// Ordering within the computation is time-domain first, then
// frequency-domain, per spec §4.4 Emission.
func (e *Engine) Accept(rrMs float64) Metrics {
	e.window.Add(rrMs)
	w := e.window.All()

	var m Metrics
	m.SDNN, m.RMSSD, m.PNN50, m.MxDMn, m.AMo50, m.CV = timeDomain(w)
	m.HasTimeDomain = len(w) >= 2

	m.VLFPower = bandPower(w, BandVLF, e.cfg.Norm)
	m.LFPower = bandPower(w, BandLF, e.cfg.Norm)
	m.HFPower = bandPower(w, BandHF, e.cfg.Norm)
	m.TotalPower = m.VLFPower + m.LFPower + m.HFPower
	if m.HFPower > model.Epsilon {
		m.LFHF = m.LFPower / m.HFPower
	}
	m.HasFreqDomain = len(w) >= 5

	return m
}

// Window returns a copy of the current R-R window, oldest first.
func (e *Engine) Window() []float64 {
	return e.window.All()
}

// Reset discards the R-R window, as on session end.
func (e *Engine) Reset() {
	e.window.Reset()
}

func meanOf(w []float64) float64 {
	if len(w) == 0 {
		return 0
	}
	var sum float64
	for _, v := range w {
		sum += v
	}
	return sum / float64(len(w))
}

// timeDomain computes SDNN, RMSSD, pNN50, MxDMn, AMo50, CV per spec §4.4.
// SDNN/RMSSD/MxDMn/AMo50 require >= 2 samples; CV additionally requires
// >= 5 (the "CV-class metrics" clause).
func timeDomain(w []float64) (sdnn, rmssd, pnn50, mxdmn, amo50, cv float64) {
	n := len(w)
	if n < 2 {
		return 0, 0, 0, 0, 0, 0
	}

	mu := meanOf(w)

	var variance float64
	for _, v := range w {
		d := v - mu
		variance += d * d
	}
	variance /= float64(n)
	sdnn = math.Sqrt(variance)

	var sumSqDiff float64
	var over50 int
	for i := 1; i < n; i++ {
		d := w[i] - w[i-1]
		sumSqDiff += d * d
		if math.Abs(d) > 50 {
			over50++
		}
	}
	rmssd = math.Sqrt(sumSqDiff / float64(n-1))
	pnn50 = float64(over50) / float64(n-1) * 100

	minV, maxV := w[0], w[0]
	var within50 int
	for _, v := range w {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
		if math.Abs(v-mu) <= 50 {
			within50++
		}
	}
	mxdmn = maxV - minV
	amo50 = float64(within50) / float64(n) * 100

	if n >= 5 && mu > model.Epsilon {
		cv = sdnn / mu * 100
	}

	return sdnn, rmssd, pnn50, mxdmn, amo50, cv
}

// bandPower implements spec §4.4's autocovariance/Hamming/periodogram
// estimator for a single band.
func bandPower(w []float64, band Band, norm NormConstants) float64 {
	n := len(w)
	if n < 5 {
		return 0
	}

	mu := meanOf(w)
	if mu <= model.Epsilon {
		return 0
	}

	y := make([]float64, n)
	for i, v := range w {
		y[i] = (v - mu) / mu
	}

	kMax := n - 1
	if kMax > 20 {
		kMax = 20
	}

	r := make([]float64, kMax+1)
	for k := 0; k <= kMax; k++ {
		var sum float64
		for i := 0; i < n-k; i++ {
			sum += y[i] * y[i+k]
		}
		r[k] = sum / float64(n-k)
	}

	if kMax > 0 {
		for k := 0; k <= kMax; k++ {
			r[k] *= 0.54 - 0.46*math.Cos(2*math.Pi*float64(k)/float64(kMax))
		}
	}

	rng := bandRanges[band]
	step := 1.0 / (2.0 * float64(kMax))
	if step <= 0 {
		return 0
	}

	var acc float64
	for f := rng[0]; f <= rng[1]; f += step {
		s := r[0]
		for k := 1; k <= kMax; k++ {
			s += 2 * r[k] * math.Cos(2*math.Pi*f*float64(k)*mu/1000.0)
		}
		if s > 0 {
			acc += s
		}
	}

	scaled := acc * mu * mu

	var divisor float64
	switch band {
	case BandVLF:
		divisor = norm.VLF
	case BandLF:
		divisor = norm.LF
	case BandHF:
		divisor = norm.HF
	default:
		divisor = norm.Total
	}
	if divisor <= model.Epsilon {
		divisor = 1
	}

	result := scaled / divisor
	if result < 0 {
		return 0
	}
	return result
}
