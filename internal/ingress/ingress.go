// Package ingress implements C1, the Ingress Adapter: it normalizes
// inbound ECG sample batches, accelerometer frames, and R-R events into
// the pipeline's internal time base (spec §4.1). It owns no buffers of
// its own — the pipeline orchestrator appends the timestamped output to
// the shared ECG/accelerometer/R-R windows — so that this package stays a
// pure, testable translation stage, per spec §9's "strict DAG" guidance.
package ingress

import "biosignal/internal/model"

// Adapter assigns synthetic per-sample timestamps from each stream's
// declared rate and validates R-R intervals. Only R-R intervals are
// validated: a rejected interval is counted in DroppedRr and never halts
// the stream. ECG and accelerometer samples are timestamped and passed on
// without validation, and nothing in this package increments DroppedAcc.
type Adapter struct {
	rates model.SamplingRates

	lastEcgTime float64
	haveEcgTime bool
	lastAccTime float64
	haveAccTime bool

	DroppedRr  int
	DroppedAcc int
}

// New creates an adapter for the given sampling rates.
func New(rates model.SamplingRates) *Adapter {
	if rates.EcgHz <= 0 {
		rates.EcgHz = model.DefaultEcgHz
	}
	if rates.AccHz <= 0 {
		rates.AccHz = model.DefaultAccHz
	}
	return &Adapter{rates: rates}
}

// AcceptEcgBatch assigns t_k = t_last + k*(1/fs_ecg) to each raw sample in
// order, preserving within-batch ordering, and returns the timestamped
// samples ready to be appended to the ECG buffer and run through the
// canceller.
func (a *Adapter) AcceptEcgBatch(rawCounts []float64) []model.EcgSample {
	if len(rawCounts) == 0 {
		return nil
	}
	interval := 1.0 / a.rates.EcgHz
	start := 0.0
	if a.haveEcgTime {
		start = a.lastEcgTime + interval
	}

	out := make([]model.EcgSample, len(rawCounts))
	for k, raw := range rawCounts {
		t := start + float64(k)*interval
		out[k] = model.EcgSample{Timestamp: t, Raw: raw, Filtered: raw}
	}
	a.lastEcgTime = out[len(out)-1].Timestamp
	a.haveEcgTime = true
	return out
}

// AccRawSample is one (x, y, z) triple in device units, as received from
// the sensor, before the device-unit → g-unit scale factor is applied.
type AccRawSample struct {
	X, Y, Z float64
}

// AcceptAccFrame applies the device-unit scale factor (default 0.01) and
// assigns timestamps the same way acceptEcgBatch does, from fs_acc.
func (a *Adapter) AcceptAccFrame(frame []AccRawSample) []model.AccSample {
	if len(frame) == 0 {
		return nil
	}
	interval := 1.0 / a.rates.AccHz
	start := 0.0
	if a.haveAccTime {
		start = a.lastAccTime + interval
	}

	out := make([]model.AccSample, len(frame))
	for k, raw := range frame {
		t := start + float64(k)*interval
		out[k] = model.AccSample{
			Timestamp: t,
			X:         raw.X * model.AccScale,
			Y:         raw.Y * model.AccScale,
			Z:         raw.Z * model.AccScale,
		}
	}
	a.lastAccTime = out[len(out)-1].Timestamp
	a.haveAccTime = true
	return out
}

// AcceptRr validates rriMs against [300, 2000]ms. ok is false when the
// value is rejected as ectopic/artifact, in which case DroppedRr is
// incremented and the caller must not forward it downstream.
func (a *Adapter) AcceptRr(rriMs float64) (ok bool) {
	if rriMs < model.RrMinMs || rriMs > model.RrMaxMs {
		a.DroppedRr++
		return false
	}
	return true
}

// Reset clears timestamp continuity state, as on session end.
func (a *Adapter) Reset() {
	a.haveEcgTime = false
	a.haveAccTime = false
	a.lastEcgTime = 0
	a.lastAccTime = 0
	a.DroppedRr = 0
	a.DroppedAcc = 0
}
