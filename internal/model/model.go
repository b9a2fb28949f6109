// Package model holds the plain value types shared across the pipeline:
// raw inbound samples, derived fiducial points, and composite metrics.
// Nothing in this package owns a goroutine or a lock — every type here is
// a value copied freely between components.
package model

import "math"

// SamplingRates carries the per-stream rate in Hz, fixed for the lifetime
// of a session.
type SamplingRates struct {
	EcgHz float64
	AccHz float64
}

// Default sampling rates, used when a session attaches without explicit
// rates.
const (
	DefaultEcgHz = 130.0
	DefaultAccHz = 200.0
)

// AccScale is the default device-unit to g-unit scale factor applied to
// raw accelerometer counts on ingress.
const AccScale = 0.01

// EcgSample is one conditioned point in the ECG buffer. Raw is the
// sign-extended 24-bit sensor count (carried as float64 for arithmetic
// convenience); Filtered is the motion-artifact-cancelled value produced
// by the canceller. GlobalIndex is monotonically increasing for the
// lifetime of the session and is what fiducial points reference.
type EcgSample struct {
	GlobalIndex int64
	Timestamp   float64 // seconds since session start
	Raw         float64
	Filtered    float64
}

// AccSample is one accelerometer reading in g-units.
type AccSample struct {
	Timestamp float64
	X, Y, Z   float64
}

// Magnitude is the Euclidean norm of the three axes.
func (a AccSample) Magnitude() float64 {
	return math.Sqrt(a.X*a.X + a.Y*a.Y + a.Z*a.Z)
}

// MotionComponent removes the 1g gravity baseline from the magnitude.
func (a AccSample) MotionComponent() float64 {
	return math.Abs(a.Magnitude() - 1.0)
}

// RR interval acceptance bounds, in milliseconds. Values outside this
// range are rejected as ectopic/artifact.
const (
	RrMinMs = 300.0
	RrMaxMs = 2000.0
)

// RR window size bounds (§6 Configuration).
const (
	RrWindowMin     = 2
	RrWindowMax     = 1000
	RrWindowDefault = 60
)

// FiducialKind enumerates the named ECG fiducial points.
type FiducialKind int

const (
	FiducialR FiducialKind = iota
	FiducialQ
	FiducialTpeak
	FiducialTend
)

func (k FiducialKind) String() string {
	switch k {
	case FiducialR:
		return "R"
	case FiducialQ:
		return "Q"
	case FiducialTpeak:
		return "Tpeak"
	case FiducialTend:
		return "Tend"
	default:
		return "unknown"
	}
}

// FiducialPoint is a single named index in the ECG signal.
type FiducialPoint struct {
	Kind        FiducialKind
	GlobalIndex int64
	Timestamp   float64
	Value       float64
}

// QtcFormula selects the rate-correction applied alongside the raw QT
// interval.
type QtcFormula int

const (
	QtcFridericia QtcFormula = iota // default, per §6
	QtcBazett
)

// QtEvent is emitted at most once per R-peak, when Q < Tpeak < Tend holds
// and QT falls within [230, 660] ms.
type QtEvent struct {
	RIndex, QIndex, TendIndex int64
	RTime, QTime, TendTime    float64
	QtMs                      float64
	QtcMs                     float64
	RrMs                      float64 // RR interval used for the correction, if known
}

// QT acceptance bounds, in milliseconds.
const (
	QtMinMs = 230.0
	QtMaxMs = 660.0
)

// Metric is one entry in the central MetricSnapshot store: a scalar value
// with a declared unit and display precision. Replacement is atomic per
// key — there is no multi-key transaction.
type Metric struct {
	Name      string
	Value     float64
	Unit      string
	Precision int
}

// VulnerabilityLabel is the discrete label derived from the health index.
type VulnerabilityLabel int

const (
	VulnerabilityOptimal VulnerabilityLabel = iota
	VulnerabilitySlight
	VulnerabilityModerate
	VulnerabilityHigh
	VulnerabilitySevere
)

func (v VulnerabilityLabel) String() string {
	switch v {
	case VulnerabilityOptimal:
		return "Optimal"
	case VulnerabilitySlight:
		return "Slight"
	case VulnerabilityModerate:
		return "Moderate"
	case VulnerabilityHigh:
		return "High"
	case VulnerabilitySevere:
		return "Severe"
	default:
		return "unknown"
	}
}

// VulnerabilityFromHealth derives the label from the health index using
// the fixed boundary table in spec §4.5.
func VulnerabilityFromHealth(health float64) VulnerabilityLabel {
	switch {
	case health >= 95:
		return VulnerabilityOptimal
	case health >= 80:
		return VulnerabilitySlight
	case health >= 60:
		return VulnerabilityModerate
	case health >= 40:
		return VulnerabilityHigh
	default:
		return VulnerabilitySevere
	}
}

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Epsilon guards divisions that could otherwise produce NaN/Inf.
const Epsilon = 1e-9
