package statsui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/typedrill/internal/content"
	"github.com/verte-zerg/typedrill/internal/model"
	"github.com/verte-zerg/typedrill/internal/store"
)

func newTestModel(t *testing.T, seed func(*store.Store)) *Model {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "typedrill.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	if seed != nil {
		seed(st)
	}
	catalog, err := content.Load()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	m := NewModel(st, catalog, model.StatsConfig{CurveWindow: 5})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func seedHistory(t *testing.T) func(*store.Store) {
	return func(st *store.Store) {
		ctx := context.Background()
		now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
		sum := model.SessionSummary{
			ID: "s1", LessonID: "home-row", Attempt: 1, Lang: "en",
			StartedAt: now, EndedAt: now.Add(time.Minute),
			Exercises: 3, AvgWPM: 40, AvgAccuracy: 95, Passed: true, EarnedXP: 100,
		}
		if err := st.SaveSession(ctx, sum); err != nil {
			t.Fatalf("save session: %v", err)
		}
		keys := []model.KeyStat{
			{Key: "f", PressCount: 10, ErrorCount: 0, LatencySum: 2 * time.Second},
			{Key: "j", PressCount: 10, ErrorCount: 5, LatencySum: 8 * time.Second},
		}
		if err := st.SaveKeyStats(ctx, "s1", keys); err != nil {
			t.Fatalf("save key stats: %v", err)
		}
		if err := st.SaveMastery(ctx, model.LessonMastery{LessonID: "home-row", Score: 88, Completed: true}); err != nil {
			t.Fatalf("save mastery: %v", err)
		}
		if err := st.SaveProgression(ctx, model.ProgressionState{Level: 1, TotalXP: 100, CurrentStreak: 1, LongestStreak: 1}); err != nil {
			t.Fatalf("save progression: %v", err)
		}
	}
}

func TestOverviewEmpty(t *testing.T) {
	m := newTestModel(t, nil)
	out := m.View()
	if !strings.Contains(out, "No sessions found.") {
		t.Fatalf("expected empty overview, got %s", out)
	}
}

func TestOverviewShowsProgression(t *testing.T) {
	m := newTestModel(t, seedHistory(t))
	out := m.renderOverview()
	for _, want := range []string{"Level", "100", "1 (1 passed)", "40.0", "95.0%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in overview: %s", want, out)
		}
	}
}

func TestKeyRowsRankWeakestFirst(t *testing.T) {
	m := newTestModel(t, seedHistory(t))
	rows := m.keyTable.Rows()
	if len(rows) != 2 || rows[0][0] != "j" {
		t.Fatalf("expected j ranked first, got %v", rows)
	}
}

func TestLessonRowsReflectUnlocking(t *testing.T) {
	m := newTestModel(t, seedHistory(t))
	status := map[string]string{}
	for _, row := range m.lessonTbl.Rows() {
		status[row[1]] = row[3]
	}
	if status["home-row"] != "done *" {
		t.Fatalf("expected completed gatekeeper, got %q", status["home-row"])
	}
	if status["top-ei"] != "open" {
		t.Fatalf("expected stage 2 open after gatekeeper, got %q", status["top-ei"])
	}
	if status["bottom-nm"] != "locked" {
		t.Fatalf("expected stage 3 locked, got %q", status["bottom-nm"])
	}
}

func TestEnterSelectsUnlockedLesson(t *testing.T) {
	m := newTestModel(t, nil)
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.activeTab != tabLessons {
		t.Fatalf("expected lessons tab, got %d", m.activeTab)
	}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil || m.Selected() != m.lessons[0].ID {
		t.Fatalf("expected first lesson selected, got %q", m.Selected())
	}
}

func TestEnterRejectsLockedLesson(t *testing.T) {
	m := newTestModel(t, nil)
	m.moveTab(2)
	m.lessonTbl.GotoBottom()
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.Selected() != "" {
		t.Fatalf("expected locked lesson not to be selected")
	}
	if !strings.Contains(m.renderFooter(), "locked") {
		t.Fatalf("expected locked message, got %s", m.renderFooter())
	}
}
