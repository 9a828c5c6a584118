package notify

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/verte-zerg/typedrill/internal/model"
)

func TestChannelDeliversAndDrops(t *testing.T) {
	c := NewChannel(2)
	ctx := context.Background()
	c.LessonCompleted(ctx, "home")
	c.LevelUp(ctx, 3)
	c.StreakUpdated(ctx, 2, 5)

	if c.Dropped() != 1 {
		t.Fatalf("expected 1 dropped notification, got %d", c.Dropped())
	}
	first := <-c.C()
	if first.Kind != model.NotifyLessonCompleted || first.LessonID != "home" {
		t.Fatalf("unexpected first notification %+v", first)
	}
	second := <-c.C()
	if second.Kind != model.NotifyLevelUp || second.Level != 3 {
		t.Fatalf("unexpected second notification %+v", second)
	}
}

func TestLoggerWritesRecords(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	l.StreakUpdated(context.Background(), 4, 9)
	out := buf.String()
	if !strings.Contains(out, "streak updated") || !strings.Contains(out, "current=4") || !strings.Contains(out, "longest=9") {
		t.Fatalf("unexpected log output %q", out)
	}
}

func TestMultiFansOut(t *testing.T) {
	a := NewChannel(4)
	b := NewChannel(4)
	m := Multi{a, b}
	m.StreakUpdated(context.Background(), 1, 1)
	for _, c := range []*Channel{a, b} {
		n := <-c.C()
		if n.Kind != model.NotifyStreakUpdated || n.CurrentStreak != 1 || n.LongestStreak != 1 {
			t.Fatalf("unexpected notification %+v", n)
		}
	}
}
