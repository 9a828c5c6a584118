package stats

import (
	"testing"
	"time"

	"github.com/verte-zerg/typedrill/internal/model"
)

func TestKeyStatsRecord(t *testing.T) {
	ks := NewKeyStats()
	ks.Record('F', true, 300*time.Millisecond)
	ks.Record('f', false, 500*time.Millisecond)
	ks.Record('j', true, 200*time.Millisecond)

	f := ks.Get('f')
	if f.Key != "f" || f.PressCount != 2 || f.ErrorCount != 1 {
		t.Fatalf("unexpected f stat: %+v", f)
	}
	if f.AvgLatency() != 400*time.Millisecond {
		t.Fatalf("expected 400ms avg latency, got %v", f.AvgLatency())
	}
	if f.ErrorCount > f.PressCount {
		t.Fatalf("error count exceeds press count: %+v", f)
	}
	snap := ks.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(snap))
	}
	if snap[0].Key != "f" || snap[1].Key != "j" {
		t.Fatalf("expected snapshot ordered by key, got %+v", snap)
	}
}

func TestKeyStatsUnseenKey(t *testing.T) {
	ks := NewKeyStats()
	st := ks.Get('x')
	if st.PressCount != 0 || st.AvgLatency() != 0 {
		t.Fatalf("expected zero stat, got %+v", st)
	}
}

func TestKeyStatsReset(t *testing.T) {
	ks := NewKeyStats()
	ks.Record('a', true, time.Second)
	ks.Record('a', false, time.Second)
	if got := ks.Get('a'); got.PressCount != 2 || got.ErrorCount != 1 || got.LatencySum != 2*time.Second {
		t.Fatalf("unexpected stat: %+v", got)
	}
	ks.Reset()
	if len(ks.Snapshot()) != 0 {
		t.Fatalf("expected empty aggregator after reset")
	}
}

func TestStruggleScoreOrdering(t *testing.T) {
	weak := model.KeyStat{Key: "q", PressCount: 10, ErrorCount: 5, LatencySum: 9 * time.Second}
	strong := model.KeyStat{Key: "a", PressCount: 20, ErrorCount: 1, LatencySum: 6 * time.Second}
	if StruggleScore(weak) <= StruggleScore(strong) {
		t.Fatalf("expected weak key to score higher: %v vs %v", StruggleScore(weak), StruggleScore(strong))
	}
	if got := StruggleScore(weak); !almostEqual(got, 65) {
		t.Fatalf("expected 65, got %v", got)
	}
}

func TestStruggleScoreBounds(t *testing.T) {
	worst := model.KeyStat{Key: "z", PressCount: 4, ErrorCount: 4, LatencySum: 20 * time.Second}
	if got := StruggleScore(worst); !almostEqual(got, 100) {
		t.Fatalf("expected 100 for worst key, got %v", got)
	}
	fast := model.KeyStat{Key: "e", PressCount: 4, LatencySum: 100 * time.Millisecond}
	if got := StruggleScore(fast); got != 0 {
		t.Fatalf("expected 0 for perfect fast key, got %v", got)
	}
}

func TestRankWeakestTieBreaksOnPressCount(t *testing.T) {
	keys := []model.KeyStat{
		{Key: "a", PressCount: 10, ErrorCount: 5, LatencySum: 5 * time.Second},
		{Key: "b", PressCount: 2, ErrorCount: 1, LatencySum: time.Second},
		{Key: " ", PressCount: 50, ErrorCount: 50},
	}
	ranked := RankWeakest(keys, 0)
	if len(ranked) != 2 {
		t.Fatalf("expected whitespace to be excluded, got %+v", ranked)
	}
	if ranked[0].Score != ranked[1].Score {
		t.Fatalf("expected equal scores, got %v and %v", ranked[0].Score, ranked[1].Score)
	}
	if ranked[0].Key != "b" {
		t.Fatalf("expected less-practiced key first, got %q", ranked[0].Key)
	}
}

func TestRankWeakestSkipsWhitespaceKeys(t *testing.T) {
	keys := []model.KeyStat{
		{Key: " ", PressCount: 40, ErrorCount: 30},
		{Key: "\t", PressCount: 5, ErrorCount: 5},
		{Key: "q", PressCount: 10, ErrorCount: 1},
	}
	ranked := RankWeakest(keys, 1)
	if len(ranked) != 1 || ranked[0].Key != "q" {
		t.Fatalf("expected only q to be ranked, got %+v", ranked)
	}
	if got := SelectWeakKeys(keys, 3); string(got) != "q" {
		t.Fatalf("expected weak keys %q, got %q", "q", string(got))
	}
}

func TestSelectWeakKeys(t *testing.T) {
	keys := []model.KeyStat{
		{Key: "a", PressCount: 20},
		{Key: "k", PressCount: 10, ErrorCount: 6},
		{Key: "l", PressCount: 10, ErrorCount: 2},
	}
	got := SelectWeakKeys(keys, 2)
	if len(got) != 2 || got[0] != 'k' || got[1] != 'l' {
		t.Fatalf("unexpected weak keys: %q", string(got))
	}
}
