package stats

import (
	"fmt"
	"io"
	"strings"

	"github.com/verte-zerg/typedrill/internal/model"
)

// RenderSummary prints a summary block for sessions.
func RenderSummary(w io.Writer, sessions []model.SessionSummary) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	wpms := make([]float64, len(sessions))
	accs := make([]float64, len(sessions))
	bestWPM := 0.0
	passed := 0
	xp := 0
	for i, s := range sessions {
		wpms[i] = s.AvgWPM
		accs[i] = s.AvgAccuracy
		bestWPM = max(bestWPM, s.AvgWPM)
		if s.Passed {
			passed++
		}
		xp += s.EarnedXP
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d (%d passed)", len(sessions), passed),
		fmt.Sprintf("Avg WPM: %.2f", Mean(wpms)),
		fmt.Sprintf("Best WPM: %.2f", bestWPM),
		fmt.Sprintf("Avg Accuracy: %.2f%%", Mean(accs)),
		fmt.Sprintf("XP earned: %d", xp),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderTrend prints WPM and accuracy sparklines smoothed over window and
// squeezed to width columns (0 keeps every session).
func RenderTrend(w io.Writer, sessions []model.SessionSummary, window, width int) error {
	if len(sessions) == 0 {
		return nil
	}
	wpms := make([]float64, len(sessions))
	accs := make([]float64, len(sessions))
	for i, s := range sessions {
		wpms[i] = s.AvgWPM
		accs[i] = s.AvgAccuracy
	}
	wpms = Resample(MovingAverage(wpms, window), width)
	accs = Resample(MovingAverage(accs, window), width)
	if _, err := fmt.Fprintf(w, "WPM      %s\n", Sparkline(wpms)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Accuracy %s\n\n", Sparkline(accs)); err != nil {
		return err
	}
	return nil
}

// RenderKeyTable prints keys ranked by struggle score.
func RenderKeyTable(w io.Writer, keys []model.KeyStat, top int) error {
	ranked := RankWeakest(keys, top)
	if len(ranked) == 0 {
		_, err := fmt.Fprintln(w, "No key stats found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Weakest Keys (Windowed)"); err != nil {
		return err
	}
	tbl := newTextTable("Key", "Struggle", "Accuracy", "Avg Latency (ms)", "Presses", "Errors").alignRight(1, 2, 3, 4, 5)
	for _, rk := range ranked {
		tbl.addRow(
			rk.Key,
			fmt.Sprintf("%.1f", rk.Score),
			fmt.Sprintf("%.2f%%", rk.Accuracy()*100),
			fmt.Sprintf("%d", rk.AvgLatency().Milliseconds()),
			fmt.Sprintf("%d", rk.PressCount),
			fmt.Sprintf("%d", rk.ErrorCount),
		)
	}
	for _, line := range tbl.lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	practiced := TopKeysByFrequency(keys, 5)
	if _, err := fmt.Fprintf(w, "Most practiced: %s\n", strings.Join(practiced, " ")); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
