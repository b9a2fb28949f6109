// Package pipeline wires C1 through C5 into the single embeddable
// session object described by spec §2 and §5: ingress normalizes inbound
// batches, the canceller removes motion artifact, the conditioner detects
// fiducials and emits QT intervals, the HRV engine tracks the R-R window,
// and the aggregator folds HRV metrics into the three composite indices.
// Every exported method runs to completion before returning — there are
// no suspension points on the fast path, per spec §5.
package pipeline

import (
	"log"

	"biosignal/internal/aggregator"
	"biosignal/internal/bus"
	"biosignal/internal/canceller"
	"biosignal/internal/conditioner"
	"biosignal/internal/ecgbuf"
	"biosignal/internal/hrv"
	"biosignal/internal/ingress"
	"biosignal/internal/model"
	"biosignal/internal/ringbuf"
	"biosignal/internal/store"
)

// Bounded buffer capacities (spec §5 "Backpressure").
const (
	EcgBufferCapacity = ecgbuf.DefaultCapacity
	AccBufferCapacity = 500
)

// Config holds every tunable named in spec §6.
type Config struct {
	Rates           model.SamplingRates
	RrWindowCount   int
	QtcFormula      model.QtcFormula
	HistorySeconds  float64
	DisplayTickMs   float64
	LmsFilterOrder  int
	LmsStepSize     float64
	MotionThreshold float64
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		Rates:           model.SamplingRates{EcgHz: model.DefaultEcgHz, AccHz: model.DefaultAccHz},
		RrWindowCount:   model.RrWindowDefault,
		QtcFormula:      model.QtcFridericia,
		HistorySeconds:  10,
		DisplayTickMs:   50,
		LmsFilterOrder:  15,
		LmsStepSize:     0.005,
		MotionThreshold: 0.15,
	}
}

// normalize mirrors spec §7's "Configuration error" policy: out-of-range
// window counts are clamped with a logged warning, never fatal.
func (c *Config) normalize(logger *log.Logger) {
	if c.RrWindowCount < model.RrWindowMin || c.RrWindowCount > model.RrWindowMax {
		logger.Printf("rr_window_count %d out of range [%d, %d], clamping", c.RrWindowCount, model.RrWindowMin, model.RrWindowMax)
		if c.RrWindowCount < model.RrWindowMin {
			c.RrWindowCount = model.RrWindowMin
		} else {
			c.RrWindowCount = model.RrWindowMax
		}
	}
	if c.DisplayTickMs <= 0 {
		c.DisplayTickMs = 50
	}
	if c.HistorySeconds <= 0 {
		c.HistorySeconds = 10
	}
}

// DisplaySample is one point of the EcgDisplay outbound stream (spec §6).
type DisplaySample struct {
	Timestamp float64
	Value     float64
}

// Pipeline is one session's worth of state: every buffer, component, and
// outbound bus. The zero value is not usable; construct with New.
type Pipeline struct {
	cfg    Config
	logger *log.Logger

	ingress     *ingress.Adapter
	canceller   *canceller.Canceller
	conditioner *conditioner.Conditioner
	hrvEngine   *hrv.Engine
	aggregator  *aggregator.Aggregator
	Store       *store.Store

	ecgBuf *ecgbuf.Buffer[model.EcgSample]
	accBuf *ringbuf.Buffer[model.AccSample]

	fiducials *bus.Bus[model.FiducialPoint]
	qtEvents  *bus.Bus[model.QtEvent]
	display   *bus.Bus[DisplaySample]

	conditionerWindowSamples int

	closed bool
}

// New constructs a Pipeline ready to accept input.
func New(cfg Config) *Pipeline {
	logger := log.New(log.Writer(), "pipeline: ", log.LstdFlags)
	cfg.normalize(logger)

	lmsCfg := canceller.DefaultConfig()
	if cfg.LmsFilterOrder > 0 {
		lmsCfg.Order = cfg.LmsFilterOrder
	}
	if cfg.LmsStepSize > 0 {
		lmsCfg.StepSize = cfg.LmsStepSize
	}
	if cfg.MotionThreshold > 0 {
		lmsCfg.MotionThresholdG = cfg.MotionThreshold
	}

	condCfg := conditioner.DefaultConfig()
	condCfg.QtcFormula = cfg.QtcFormula

	hrvCfg := hrv.DefaultConfig()
	hrvCfg.WindowCount = cfg.RrWindowCount

	windowSamples := int(condCfg.WindowSeconds * cfg.Rates.EcgHz)

	return &Pipeline{
		cfg:                      cfg,
		logger:                   logger,
		ingress:                  ingress.New(cfg.Rates),
		canceller:                canceller.New(lmsCfg),
		conditioner:              conditioner.New(condCfg, cfg.Rates.EcgHz),
		hrvEngine:                hrv.New(hrvCfg),
		aggregator:               aggregator.New(),
		Store:                    store.New(),
		ecgBuf:                   ecgbuf.New[model.EcgSample](EcgBufferCapacity),
		accBuf:                   ringbuf.New[model.AccSample](AccBufferCapacity),
		fiducials:                bus.New[model.FiducialPoint](),
		qtEvents:                 bus.New[model.QtEvent](),
		display:                  bus.New[DisplaySample](),
		conditionerWindowSamples: windowSamples,
	}
}

// SubscribeFiducials returns a channel of newly accepted fiducial points,
// across all kinds (spec §6 FiducialStream).
func (p *Pipeline) SubscribeFiducials(bufferSize int) <-chan model.FiducialPoint {
	return p.fiducials.Subscribe(bufferSize)
}

// SubscribeQtEvents returns a channel of newly emitted QT intervals.
func (p *Pipeline) SubscribeQtEvents(bufferSize int) <-chan model.QtEvent {
	return p.qtEvents.Subscribe(bufferSize)
}

// SubscribeDisplay returns a channel of the periodically refreshed
// filtered, baseline-corrected ECG display window.
func (p *Pipeline) SubscribeDisplay(bufferSize int) <-chan DisplaySample {
	return p.display.Subscribe(bufferSize)
}

// AcceptEcgBatch runs one inbound ECG batch through ingress, the
// canceller, and the conditioner to completion (spec §5 fast path).
func (p *Pipeline) AcceptEcgBatch(rawCounts []float64) {
	if p.closed || len(rawCounts) == 0 {
		return
	}

	samples := p.ingress.AcceptEcgBatch(rawCounts)
	accRef := p.accBuf.All()

	for _, s := range samples {
		s.Filtered = p.canceller.Filter(s.Raw, s.Timestamp, accRef)
		idx := p.ecgBuf.Append(s)
		p.ecgBuf.Update(idx, func(e *model.EcgSample) { e.GlobalIndex = idx })
	}

	p.runConditioner()
}

// AcceptAccFrame runs one inbound accelerometer frame through ingress and
// appends it to the alignment window.
func (p *Pipeline) AcceptAccFrame(frame []ingress.AccRawSample) {
	if p.closed || len(frame) == 0 {
		return
	}
	samples := p.ingress.AcceptAccFrame(frame)
	for _, s := range samples {
		p.accBuf.Add(s)
	}
}

// AcceptRr runs one inbound R-R interval through ingress validation, the
// HRV engine, and the index aggregator, then publishes every resulting
// metric and index to the central store (spec §4.4 Emission: time-domain
// first, then frequency-domain; spec §4.5 Minimum-data gating).
func (p *Pipeline) AcceptRr(rriMs float64) bool {
	if p.closed {
		return false
	}
	if ok := p.ingress.AcceptRr(rriMs); !ok {
		return false
	}

	m := p.hrvEngine.Accept(rriMs)
	windowLen := len(p.hrvEngine.Window())

	p.publishTimeDomain(m)
	p.publishFreqDomain(m)

	res := p.aggregator.Compute(m, windowLen)
	p.Store.Set("stress_index", res.Stress, "score", 1)
	p.Store.Set("energy_index", res.Energy, "score", 1)
	p.Store.Set("health_index", res.Health, "score", 1)
	p.Store.Set("vulnerability", float64(res.Vulnerability), "label", 0)

	return true
}

func (p *Pipeline) publishTimeDomain(m hrv.Metrics) {
	p.Store.Set("sdnn", m.SDNN, "ms", 1)
	p.Store.Set("rmssd", m.RMSSD, "ms", 1)
	p.Store.Set("pnn50", m.PNN50, "%", 1)
	p.Store.Set("mxdmn", m.MxDMn, "ms", 1)
	p.Store.Set("amo50", m.AMo50, "%", 1)
	p.Store.Set("cv", m.CV, "%", 1)
}

func (p *Pipeline) publishFreqDomain(m hrv.Metrics) {
	p.Store.Set("vlf_power", m.VLFPower, "ms^2", 0)
	p.Store.Set("lf_power", m.LFPower, "ms^2", 0)
	p.Store.Set("hf_power", m.HFPower, "ms^2", 0)
	p.Store.Set("total_power", m.TotalPower, "ms^2", 0)
	p.Store.Set("lf_hf", m.LFHF, "ratio", 2)
}

// runConditioner recomputes fiducials over the current ECG window and
// publishes anything newly accepted. Called from both the fast path
// (after each batch) and the slow-path Tick.
func (p *Pipeline) runConditioner() {
	window, firstIdx := p.ecgBuf.Window(p.conditionerWindowSamples)
	if len(window) == 0 {
		return
	}

	res := p.conditioner.Process(window, firstIdx)
	for _, fp := range res.Fiducials {
		p.fiducials.Publish(fp)
	}
	for _, ev := range res.QtEvents {
		p.qtEvents.Publish(ev)
	}
	if res.HeartRateBpm > 0 {
		p.Store.Set("heart_rate_bpm", res.HeartRateBpm, "bpm", 0)
	}

	if oldest := p.ecgBuf.OldestIndex(); oldest > 0 {
		p.conditioner.Prune(oldest)
	}
}

// Tick runs the periodic slow path (spec §5): recompute the display
// window and fiducial set, and refresh the chart-facing display series.
func (p *Pipeline) Tick() {
	if p.closed {
		return
	}
	p.runConditioner()
	p.publishDisplay()
}

func (p *Pipeline) publishDisplay() {
	n := int(p.cfg.HistorySeconds * p.cfg.Rates.EcgHz)
	window, _ := p.ecgBuf.Window(n)
	for _, s := range window {
		p.display.Publish(DisplaySample{Timestamp: s.Timestamp, Value: s.Filtered})
	}
}

// Close cancels the session: drops all subscriptions, completes outbound
// streams, and discards every buffer and cache (spec §5 "Cancellation").
// Synchronous and idempotent.
func (p *Pipeline) Close() {
	if p.closed {
		return
	}
	p.closed = true

	p.fiducials.Close()
	p.qtEvents.Close()
	p.display.Close()
	p.Store.Reset()

	p.ingress.Reset()
	p.canceller.Reset()
	p.conditioner.Reset()
	p.hrvEngine.Reset()
	p.aggregator.Reset()
	p.ecgBuf.Reset()
	p.accBuf.Reset()
}
