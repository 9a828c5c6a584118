package generator

import (
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/typedrill/internal/model"
)

func TestAnchorDrillSynthesizesPattern(t *testing.T) {
	g := NewWithSeed(1)
	ex := g.AnchorDrill([]rune{'K'}, 1, 15*time.Second, nil)
	if ex.Type != model.ExerciseAnchor {
		t.Fatalf("expected anchor exercise, got %s", ex.Type)
	}
	parts := strings.Fields(ex.Content)
	if len(parts) != 3 {
		t.Fatalf("expected one group of 3 parts, got %q", ex.Content)
	}
	if parts[0] != "kk" {
		t.Fatalf("expected doubled key first, got %q", parts[0])
	}
	if len(parts[1]) != 2 || parts[1][1] != 'k' || parts[1][0] == 'k' {
		t.Fatalf("expected neighbor+key, got %q", parts[1])
	}
	if len(parts[2]) != 2 || parts[2][0] != 'k' || parts[2][1] == 'k' {
		t.Fatalf("expected key+neighbor, got %q", parts[2])
	}
	for _, p := range parts[1:] {
		other := strings.Trim(p, "k")
		if !strings.Contains(highFrequencyLetters, other) {
			t.Fatalf("expected high-frequency neighbor in %q", p)
		}
	}
}

func TestAnchorDrillPrefersCorpusMatches(t *testing.T) {
	g := NewWithSeed(7)
	corpus := []string{"fjord", "fish", "jam", "fiji", "elephants"}
	ex := g.AnchorDrill([]rune{'f'}, 1, 15*time.Second, corpus)
	parts := strings.Fields(ex.Content)
	if len(parts) != 3 || parts[0] != "ff" {
		t.Fatalf("unexpected anchor content %q", ex.Content)
	}
	for _, p := range parts[1:] {
		if !strings.Contains(p, "f") || p == "elephants" {
			t.Fatalf("expected short corpus word containing f, got %q", p)
		}
	}
}

func TestAnchorDrillGroupsScaleWithDifficulty(t *testing.T) {
	easy := NewWithSeed(3).AnchorDrill([]rune{'f', 'j'}, 1, 45*time.Second, nil)
	hard := NewWithSeed(3).AnchorDrill([]rune{'f', 'j'}, 2, 45*time.Second, nil)
	if len(strings.Fields(easy.Content)) != 3*2*3 {
		t.Fatalf("expected 3 groups per key, got %q", easy.Content)
	}
	if len(strings.Fields(hard.Content)) != 6*2*3 {
		t.Fatalf("expected 6 groups per key, got %q", hard.Content)
	}
	if easy.Difficulty != 1 || hard.Difficulty != 2 {
		t.Fatalf("expected difficulty to be carried through")
	}
}

func TestGenerationIsDeterministicForSeed(t *testing.T) {
	a := NewWithSeed(42)
	b := NewWithSeed(42)
	if a.AnchorDrill([]rune("fj"), 1, time.Minute, nil).Content != b.AnchorDrill([]rune("fj"), 1, time.Minute, nil).Content {
		t.Fatalf("expected identical anchor drills for the same seed")
	}
	if strings.Join(a.PickNgrams([]rune("t")), ",") != strings.Join(b.PickNgrams([]rune("t")), ",") {
		t.Fatalf("expected identical n-grams for the same seed")
	}
}

func TestPickNgramsFiltersByKey(t *testing.T) {
	g := NewWithSeed(5)
	picked := g.PickNgrams([]rune{'h'})
	if len(picked) != NgramPick {
		t.Fatalf("expected %d n-grams, got %v", NgramPick, picked)
	}
	seen := map[string]bool{}
	for _, ng := range picked {
		if !strings.ContainsRune(ng, 'h') {
			t.Fatalf("expected n-gram containing h, got %q", ng)
		}
		if seen[ng] {
			t.Fatalf("duplicate n-gram %q", ng)
		}
		seen[ng] = true
	}
}

func TestPickNgramsFallsBackToSynthesizedPairs(t *testing.T) {
	g := NewWithSeed(5)
	picked := g.PickNgrams([]rune{'ß'})
	if len(picked) != NgramPick {
		t.Fatalf("expected %d synthesized pairs, got %v", NgramPick, picked)
	}
	for _, ng := range picked {
		if !strings.ContainsRune(ng, 'ß') || len([]rune(ng)) != 2 {
			t.Fatalf("expected synthesized pair with ß, got %q", ng)
		}
	}
}

func TestNgramDrillRepeats(t *testing.T) {
	ex := NewWithSeed(9).NgramDrill([]rune{'q'}, 1)
	if ex.Type != model.ExerciseNgram || ex.Repetitions != ngramReps {
		t.Fatalf("unexpected n-gram exercise: %+v", ex)
	}
	if len(strings.Fields(ex.Text())) != NgramPick*ngramReps {
		t.Fatalf("unexpected expanded text %q", ex.Text())
	}
}

func TestSpeedSprintAndAccuracyDrill(t *testing.T) {
	g := NewWithSeed(1)
	sprint := g.SpeedSprint("asdf jkl;", 40, 2)
	if sprint.Type != model.ExerciseSpeed || sprint.TimeLimit != 30*time.Second || sprint.Repetitions != 3 {
		t.Fatalf("unexpected sprint: %+v", sprint)
	}
	if sprint.Target.Metric != model.MetricWPM || sprint.Target.Threshold != 40 {
		t.Fatalf("unexpected sprint target: %+v", sprint.Target)
	}
	acc := g.AccuracyDrill("asdf jkl;", 90, 2)
	if acc.Type != model.ExerciseAccuracy || acc.Repetitions != 2 || acc.TimeLimit != 0 {
		t.Fatalf("unexpected accuracy drill: %+v", acc)
	}
	if acc.Text() != "asdf jkl; asdf jkl;" {
		t.Fatalf("unexpected accuracy text %q", acc.Text())
	}
}

func TestGenerateWeightedPrefersWeakKeys(t *testing.T) {
	g := NewWithSeed(11)
	words := []string{"zzz", "aaa"}
	picked := g.GenerateWeighted(words, 200, map[rune]struct{}{'z': {}}, 10)
	count := 0
	for _, w := range picked {
		if w == "zzz" {
			count++
		}
	}
	if count < 150 {
		t.Fatalf("expected weak-key word to dominate, got %d/200", count)
	}
}

func TestGenerateEmptyWords(t *testing.T) {
	g := NewWithSeed(1)
	if got := g.GenerateWeighted(nil, 5, nil, 2); len(got) != 0 {
		t.Fatalf("expected no words, got %v", got)
	}
}
