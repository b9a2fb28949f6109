package conditioner

import (
	"math"
	"testing"
)

func syntheticBeat(fs float64) []float64 {
	n := int(0.6 * fs) // 600ms beat
	x := make([]float64, n)
	rIdx := int(0.05 * fs)
	for i := range x {
		t := float64(i-rIdx) / fs
		switch {
		case math.Abs(t) < 0.01:
			x[i] = 1.0 - math.Abs(t)/0.01
		case t > 0.1 && t < 0.35:
			x[i] = 0.3 * math.Sin(math.Pi*(t-0.1)/0.25)
		default:
			x[i] = 0
		}
	}
	return x
}

func TestFindTPeak_LocatesPositiveHumpAfterR(t *testing.T) {
	fs := 130.0
	x := syntheticBeat(fs)
	rIdx := int(0.05 * fs)

	idx, ok := findTPeak(x, rIdx, len(x), fs)
	if !ok {
		t.Fatal("expected findTPeak to succeed")
	}
	tSec := float64(idx-rIdx) / fs
	if tSec < 0.1 || tSec > 0.35 {
		t.Fatalf("T-peak at %vs after R, want within [0.1, 0.35]s", tSec)
	}
}

func TestFindTEnd_AfterTPeakAndBeforeWindowEnd(t *testing.T) {
	fs := 130.0
	x := syntheticBeat(fs)
	rIdx := int(0.05 * fs)
	tpIdx, ok := findTPeak(x, rIdx, len(x), fs)
	if !ok {
		t.Fatal("expected findTPeak to succeed")
	}

	tendIdx, ok := findTEnd(x, tpIdx, len(x), fs)
	if !ok {
		t.Fatal("expected findTEnd to succeed")
	}
	if tendIdx <= tpIdx {
		t.Fatalf("T-end index %d should be after T-peak index %d", tendIdx, tpIdx)
	}
	if tendIdx >= len(x) {
		t.Fatalf("T-end index %d out of window bounds %d", tendIdx, len(x))
	}
}

func TestFindTPeak_DegenerateWindowFails(t *testing.T) {
	if _, ok := findTPeak([]float64{1, 2, 3}, 0, 2, 130); ok {
		t.Fatal("expected findTPeak to fail on a degenerate window")
	}
}
