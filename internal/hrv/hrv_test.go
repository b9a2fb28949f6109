package hrv

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestAccept_InsufficientSamplesReturnsZero(t *testing.T) {
	e := New(DefaultConfig())
	m := e.Accept(1000)
	if m.SDNN != 0 || m.RMSSD != 0 || m.PNN50 != 0 || m.MxDMn != 0 || m.CV != 0 {
		t.Fatalf("expected all-zero metrics with a single sample, got %+v", m)
	}
	if m.HasTimeDomain {
		t.Fatalf("expected HasTimeDomain false with |W| = 1")
	}
}

func TestAccept_ConstantRR(t *testing.T) {
	e := New(DefaultConfig())
	var m Metrics
	for i := 0; i < 30; i++ {
		m = e.Accept(1000)
	}
	if m.SDNN != 0 {
		t.Errorf("SDNN = %v, want 0", m.SDNN)
	}
	if m.RMSSD != 0 {
		t.Errorf("RMSSD = %v, want 0", m.RMSSD)
	}
	if m.PNN50 != 0 {
		t.Errorf("PNN50 = %v, want 0", m.PNN50)
	}
	if m.MxDMn != 0 {
		t.Errorf("MxDMn = %v, want 0", m.MxDMn)
	}
	if m.CV != 0 {
		t.Errorf("CV = %v, want 0", m.CV)
	}
	if m.LFHF != 0 {
		t.Errorf("LF/HF = %v, want 0 (HF guarded or zero variance)", m.LFHF)
	}
	if m.VLFPower < 0 || m.LFPower < 0 || m.HFPower < 0 {
		t.Errorf("band powers must be >= 0, got vlf=%v lf=%v hf=%v", m.VLFPower, m.LFPower, m.HFPower)
	}
}

func TestAccept_AlternatingRR(t *testing.T) {
	e := New(DefaultConfig())
	var m Metrics
	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			m = e.Accept(900)
		} else {
			m = e.Accept(1100)
		}
	}
	if !almostEqual(m.SDNN, 100, 1e-6) {
		t.Errorf("SDNN = %v, want ~100", m.SDNN)
	}
	if !almostEqual(m.RMSSD, 200, 1e-6) {
		t.Errorf("RMSSD = %v, want ~200", m.RMSSD)
	}
	if m.PNN50 != 100 {
		t.Errorf("PNN50 = %v, want 100", m.PNN50)
	}
	if !almostEqual(m.MxDMn, 200, 1e-6) {
		t.Errorf("MxDMn = %v, want ~200", m.MxDMn)
	}
	if !almostEqual(m.CV, 10, 0.5) {
		t.Errorf("CV = %v, want ~10", m.CV)
	}
}

func TestTotalPowerIsSumOfBands(t *testing.T) {
	e := New(DefaultConfig())
	var m Metrics
	for i := 0; i < 40; i++ {
		v := 1000.0
		if i%3 == 0 {
			v = 950
		} else if i%5 == 0 {
			v = 1080
		}
		m = e.Accept(v)
	}
	sum := m.VLFPower + m.LFPower + m.HFPower
	if !almostEqual(sum, m.TotalPower, 1e-9) {
		t.Errorf("TotalPower = %v, want sum of bands %v", m.TotalPower, sum)
	}
}

func TestWindowIsBounded(t *testing.T) {
	e := New(Config{WindowCount: 5, Norm: DefaultNormConstants()})
	for i := 0; i < 50; i++ {
		e.Accept(800 + float64(i))
	}
	if got := len(e.Window()); got != 5 {
		t.Fatalf("window length = %d, want 5", got)
	}
}

func TestReset(t *testing.T) {
	e := New(DefaultConfig())
	for i := 0; i < 10; i++ {
		e.Accept(1000)
	}
	e.Reset()
	if got := len(e.Window()); got != 0 {
		t.Fatalf("window length after reset = %d, want 0", got)
	}
}
