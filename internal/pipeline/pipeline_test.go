package pipeline

import (
	"math"
	"testing"

	"biosignal/internal/ingress"
)

func TestAcceptRr_BoundaryValues(t *testing.T) {
	p := New(DefaultConfig())
	defer p.Close()

	cases := []struct {
		ms   float64
		want bool
	}{
		{299, false},
		{2001, false},
		{300, true},
		{2000, true},
	}
	for _, c := range cases {
		if got := p.AcceptRr(c.ms); got != c.want {
			t.Errorf("AcceptRr(%v) = %v, want %v", c.ms, got, c.want)
		}
	}
}

func TestAcceptRr_ConstantProducesZeroVariability(t *testing.T) {
	p := New(DefaultConfig())
	defer p.Close()

	for i := 0; i < 30; i++ {
		if !p.AcceptRr(1000) {
			t.Fatalf("RR of 1000ms should be accepted")
		}
	}

	sdnn, ok := p.Store.Get("sdnn")
	if !ok {
		t.Fatal("expected sdnn to be published")
	}
	if sdnn.Value != 0 {
		t.Errorf("sdnn = %v, want 0 for constant RR", sdnn.Value)
	}

	lfhf, ok := p.Store.Get("lf_hf")
	if !ok {
		t.Fatal("expected lf_hf to be published")
	}
	if lfhf.Value != 0 {
		t.Errorf("lf_hf = %v, want 0 for constant RR (HF guarded)", lfhf.Value)
	}
}

func TestAcceptEcgBatch_NoPanicOnShortBatch(t *testing.T) {
	p := New(DefaultConfig())
	defer p.Close()

	raw := make([]float64, 5)
	for i := range raw {
		raw[i] = math.Sin(float64(i))
	}
	p.AcceptEcgBatch(raw)
}

func TestAcceptAccFrame_AppliesScale(t *testing.T) {
	p := New(DefaultConfig())
	defer p.Close()

	p.AcceptAccFrame([]ingress.AccRawSample{{X: 100, Y: 0, Z: 0}})
	got := p.accBuf.All()
	if len(got) != 1 || got[0].X != 1.0 {
		t.Fatalf("accBuf = %+v, want one sample with X scaled to 1.0", got)
	}
}

func TestSineEcgProducesPeriodicRPeaks(t *testing.T) {
	cfg := DefaultConfig()
	p := New(cfg)
	defer p.Close()

	fs := cfg.Rates.EcgHz
	n := int(5 * fs)
	raw := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / fs
		raw[i] = math.Sin(2*math.Pi*1.0*t) + 0.05*math.Sin(2*math.Pi*20*t)
	}

	fiducials := p.SubscribeFiducials(256)
	p.AcceptEcgBatch(raw)

	count := 0
drain:
	for {
		select {
		case <-fiducials:
			count++
		default:
			break drain
		}
	}
	if count == 0 {
		t.Error("expected at least one fiducial point from a 5-second sine ECG")
	}
}

func TestClose_IsIdempotent(t *testing.T) {
	p := New(DefaultConfig())
	p.Close()
	p.Close()
	if p.AcceptRr(1000) {
		t.Error("expected AcceptRr to be a no-op after Close")
	}
}

func TestTick_PublishesDisplaySamples(t *testing.T) {
	cfg := DefaultConfig()
	p := New(cfg)
	defer p.Close()

	raw := make([]float64, 20)
	for i := range raw {
		raw[i] = float64(i)
	}
	p.AcceptEcgBatch(raw)

	display := p.SubscribeDisplay(256)
	p.Tick()

	select {
	case <-display:
	default:
		t.Error("expected at least one display sample after Tick")
	}
}
