package stats

import (
	"math"
	"testing"
	"time"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestWPMZeroForNonPositiveElapsed(t *testing.T) {
	for _, elapsed := range []float64{0, -1, -60} {
		if got := WPM(100, 0, elapsed); got != 0 {
			t.Fatalf("expected 0 WPM for elapsed %v, got %v", elapsed, got)
		}
	}
}

func TestWPMFormula(t *testing.T) {
	// 250 chars, 10 uncorrected, 60s => (240/5)/1 = 48.
	if got := WPM(250, 10, 60); !almostEqual(got, 48) {
		t.Fatalf("expected 48 WPM, got %v", got)
	}
	if got := WPM(50, 0, 30); !almostEqual(got, 20) {
		t.Fatalf("expected 20 WPM, got %v", got)
	}
}

func TestWPMClampsNegative(t *testing.T) {
	if got := WPM(3, 10, 60); got != 0 {
		t.Fatalf("expected clamped 0 WPM, got %v", got)
	}
}

func TestRawAccuracy(t *testing.T) {
	if got := RawAccuracy(0, 0); got != 100 {
		t.Fatalf("expected 100 with no attempts, got %v", got)
	}
	if got := RawAccuracy(9, 10); !almostEqual(got, 90) {
		t.Fatalf("expected 90, got %v", got)
	}
}

func TestCorrectedAccuracy(t *testing.T) {
	if got := CorrectedAccuracy(0, 0, 0); got != 100 {
		t.Fatalf("expected 100 with no attempts, got %v", got)
	}
	if got := CorrectedAccuracy(8, 2, 1); !almostEqual(got, 100*8.0/9.0) {
		t.Fatalf("expected 88.89, got %v", got)
	}
	if got := CorrectedAccuracy(8, 2, 5); got != 100 {
		t.Fatalf("expected surplus backspaces to clamp at 100, got %v", got)
	}
}

func TestCorrectedAccuracyMonotonicInBackspaces(t *testing.T) {
	for correct := 0; correct < 6; correct++ {
		for errs := 0; errs < 6; errs++ {
			prev := CorrectedAccuracy(correct, errs, 0)
			for bs := 1; bs < 10; bs++ {
				cur := CorrectedAccuracy(correct, errs, bs)
				if cur < prev {
					t.Fatalf("accuracy decreased: correct=%d errors=%d backspaces=%d (%v < %v)", correct, errs, bs, cur, prev)
				}
				prev = cur
			}
		}
	}
}

func TestDisplayAccuracyIsMeanOfRawAndCorrected(t *testing.T) {
	m := Compute(10, 2, 1, 1, time.Minute)
	raw := RawAccuracy(8, 10)
	corrected := CorrectedAccuracy(8, 2, 1)
	if !almostEqual(m.Accuracy, (raw+corrected)/2) {
		t.Fatalf("expected composite accuracy %v, got %v", (raw+corrected)/2, m.Accuracy)
	}
	if !almostEqual(m.WPM, WPM(10, 1, 60)) {
		t.Fatalf("unexpected WPM %v", m.WPM)
	}
}

func TestConsistency(t *testing.T) {
	if got := Consistency(nil); got != 100 {
		t.Fatalf("expected 100 for no samples, got %v", got)
	}
	even := []time.Duration{250 * time.Millisecond, 250 * time.Millisecond, 250 * time.Millisecond}
	if got := Consistency(even); got != 100 {
		t.Fatalf("expected 100 for even samples, got %v", got)
	}
	// 0.1s has no exact float64 form, so an even cadence must not be scored in seconds.
	tenths := []time.Duration{100 * time.Millisecond, 100 * time.Millisecond, 100 * time.Millisecond,
		100 * time.Millisecond, 100 * time.Millisecond, 100 * time.Millisecond, 100 * time.Millisecond}
	if got := Consistency(tenths); got != 100 {
		t.Fatalf("expected 100 for an even 100ms cadence, got %v", got)
	}
	uneven := []time.Duration{100 * time.Millisecond, 900 * time.Millisecond}
	// mean 500ms, stddev 400ms.
	if got := Consistency(uneven); math.Abs(got-20) > 1e-9 {
		t.Fatalf("expected consistency 20, got %v", got)
	}
	if got := Consistency(uneven); got >= 100 || got < 0 {
		t.Fatalf("expected reduced consistency, got %v", got)
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Fatalf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestSparklineFlat(t *testing.T) {
	if got := Sparkline([]float64{3, 3, 3}); got != "+++" {
		t.Fatalf("unexpected flat sparkline %q", got)
	}
	if got := Sparkline([]float64{0, 10}); got != " @" {
		t.Fatalf("unexpected sparkline %q", got)
	}
}
