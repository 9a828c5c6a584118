// Package stats contains typing metrics, per-key aggregation and reporting.
package stats

import (
	"math"
	"strings"
	"time"
)

// CharsPerWord is the standard word length used for WPM.
const CharsPerWord = 5.0

const sparkChars = " .:-=+*#%@"

// WPM converts typed characters into words per minute. Uncorrected errors are
// subtracted from throughput; the result is never negative and is 0 when no
// time has elapsed.
func WPM(characters, uncorrectedErrors int, elapsedSeconds float64) float64 {
	if elapsedSeconds <= 0 {
		return 0
	}
	words := float64(characters-uncorrectedErrors) / CharsPerWord
	wpm := words / (elapsedSeconds / 60)
	if wpm < 0 || math.IsNaN(wpm) {
		return 0
	}
	return wpm
}

// RawAccuracy returns the percentage of correct keystrokes. No attempts count
// as perfect accuracy.
func RawAccuracy(correct, total int) float64 {
	if total == 0 {
		return 100
	}
	return 100 * float64(correct) / float64(total)
}

// CorrectedAccuracy is accuracy after crediting backspaces against errors.
func CorrectedAccuracy(correct, errors, backspaces int) float64 {
	correctedErrors := errors - backspaces
	if correctedErrors < 0 {
		correctedErrors = 0
	}
	total := correct + correctedErrors
	if total == 0 {
		return 100
	}
	return 100 * float64(correct) / float64(total)
}

// DisplayAccuracy is the accuracy shown to learners and stored in history:
// the mean of raw and corrected accuracy.
func DisplayAccuracy(raw, corrected float64) float64 {
	return (raw + corrected) / 2
}

// Metrics is a snapshot of running session metrics.
type Metrics struct {
	WPM               float64
	RawAccuracy       float64
	CorrectedAccuracy float64
	Accuracy          float64
}

// Compute derives all running metrics from cumulative counters.
func Compute(characters, errors, uncorrectedErrors, backspaces int, elapsed time.Duration) Metrics {
	correct := characters - errors
	raw := RawAccuracy(correct, characters)
	corrected := CorrectedAccuracy(correct, errors, backspaces)
	return Metrics{
		WPM:               WPM(characters, uncorrectedErrors, elapsed.Seconds()),
		RawAccuracy:       raw,
		CorrectedAccuracy: corrected,
		Accuracy:          DisplayAccuracy(raw, corrected),
	}
}

// Consistency scores how even the reaction times are, 0-100. Fewer than two
// samples, identical samples or a zero mean count as perfectly consistent.
// Sums are taken over integer nanoseconds so an even cadence scores exactly 100.
func Consistency(samples []time.Duration) float64 {
	if len(samples) < 2 {
		return 100
	}
	var sum int64
	even := true
	for _, s := range samples {
		sum += int64(s)
		even = even && s == samples[0]
	}
	if even || sum <= 0 {
		return 100
	}
	n := int64(len(samples))
	var sq float64
	for _, s := range samples {
		d := float64(int64(s)*n - sum)
		sq += d * d
	}
	// d is scaled by n, so stddev/mean = sqrt(sq/n)/n / (sum/n).
	stddev := math.Sqrt(sq/float64(n)) / float64(n)
	mean := float64(sum) / float64(n)
	score := 100 * (1 - stddev/mean)
	return clamp(score, 0, 100)
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = min(max(idx, 0), len(sparkChars)-1)
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// Resample stretches or shrinks values to width points by nearest sampling.
func Resample(values []float64, width int) []float64 {
	if width <= 0 || len(values) <= width {
		return values
	}
	out := make([]float64, width)
	for i := range out {
		idx := i * len(values) / width
		out[i] = values[idx]
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
