package ingress

import (
	"testing"

	"biosignal/internal/model"
)

func TestAcceptEcgBatch_AssignsSequentialTimestamps(t *testing.T) {
	a := New(model.SamplingRates{EcgHz: 130, AccHz: 200})
	samples := a.AcceptEcgBatch([]float64{1, 2, 3})
	if len(samples) != 3 {
		t.Fatalf("len(samples) = %d, want 3", len(samples))
	}
	interval := 1.0 / 130.0
	for i, s := range samples {
		want := float64(i) * interval
		if s.Timestamp != want {
			t.Errorf("samples[%d].Timestamp = %v, want %v", i, s.Timestamp, want)
		}
		if s.Raw != float64(i+1) || s.Filtered != float64(i+1) {
			t.Errorf("samples[%d] = %+v, want Raw=Filtered=%v", i, s, i+1)
		}
	}
}

func TestAcceptEcgBatch_ContinuesTimeBaseAcrossCalls(t *testing.T) {
	a := New(model.SamplingRates{EcgHz: 130, AccHz: 200})
	first := a.AcceptEcgBatch([]float64{1, 2})
	second := a.AcceptEcgBatch([]float64{3})
	interval := 1.0 / 130.0
	want := first[len(first)-1].Timestamp + interval
	if second[0].Timestamp != want {
		t.Fatalf("second[0].Timestamp = %v, want %v", second[0].Timestamp, want)
	}
}

func TestAcceptEcgBatch_EmptyReturnsNil(t *testing.T) {
	a := New(model.SamplingRates{EcgHz: 130, AccHz: 200})
	if got := a.AcceptEcgBatch(nil); got != nil {
		t.Fatalf("AcceptEcgBatch(nil) = %v, want nil", got)
	}
}

func TestAcceptAccFrame_AppliesScale(t *testing.T) {
	a := New(model.SamplingRates{EcgHz: 130, AccHz: 200})
	samples := a.AcceptAccFrame([]AccRawSample{{X: 100, Y: 0, Z: -50}})
	if len(samples) != 1 {
		t.Fatalf("len(samples) = %d, want 1", len(samples))
	}
	if samples[0].X != 1.0 || samples[0].Z != -0.5 {
		t.Fatalf("samples[0] = %+v, want scaled by %v", samples[0], model.AccScale)
	}
}

func TestAcceptRr_BoundaryValues(t *testing.T) {
	a := New(model.SamplingRates{EcgHz: 130, AccHz: 200})
	cases := []struct {
		ms   float64
		want bool
	}{
		{299, false},
		{2001, false},
		{300, true},
		{2000, true},
		{1000, true},
	}
	for _, c := range cases {
		if got := a.AcceptRr(c.ms); got != c.want {
			t.Errorf("AcceptRr(%v) = %v, want %v", c.ms, got, c.want)
		}
	}
	if a.DroppedRr != 2 {
		t.Fatalf("DroppedRr = %d, want 2", a.DroppedRr)
	}
}

func TestReset_ClearsTimeBaseAndCounters(t *testing.T) {
	a := New(model.SamplingRates{EcgHz: 130, AccHz: 200})
	a.AcceptEcgBatch([]float64{1, 2, 3})
	a.AcceptRr(1)
	a.Reset()

	if a.DroppedRr != 0 {
		t.Fatalf("DroppedRr after Reset = %d, want 0", a.DroppedRr)
	}
	samples := a.AcceptEcgBatch([]float64{9})
	if samples[0].Timestamp != 0 {
		t.Fatalf("timestamp after Reset = %v, want 0 (time base restarted)", samples[0].Timestamp)
	}
}

func TestNew_DefaultsZeroRates(t *testing.T) {
	a := New(model.SamplingRates{})
	if a.rates.EcgHz != model.DefaultEcgHz || a.rates.AccHz != model.DefaultAccHz {
		t.Fatalf("rates = %+v, want defaults", a.rates)
	}
}
