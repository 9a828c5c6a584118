package content

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/typedrill/internal/generator"
	"github.com/verte-zerg/typedrill/internal/model"
)

func loadTestCatalog(t *testing.T, opts ...Option) *Catalog {
	t.Helper()
	opts = append([]Option{WithGenerator(generator.NewWithSeed(1))}, opts...)
	c, err := Load(opts...)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return c
}

func TestEmbeddedCatalogLoads(t *testing.T) {
	c := loadTestCatalog(t)
	lessons := c.Lessons()
	if len(lessons) == 0 {
		t.Fatalf("expected lessons")
	}
	for i := 1; i < len(lessons); i++ {
		if lessons[i].Stage < lessons[i-1].Stage {
			t.Fatalf("expected lessons in stage order")
		}
	}
	l, err := c.Lesson("home-fj")
	if err != nil {
		t.Fatalf("lesson: %v", err)
	}
	if string(l.RequiredKeys) != "fj" || l.PassingRequirements.MinAccuracy != 90 || l.Kind != model.LessonKindWord {
		t.Fatalf("unexpected lesson %+v", l)
	}
	if c.StageTitle(1) != "Home row" {
		t.Fatalf("unexpected stage title %q", c.StageTitle(1))
	}
	if langs := strings.Join(c.Languages(), ","); langs != "de,en" {
		t.Fatalf("expected de,en corpora, got %s", langs)
	}
}

func TestUnknownLessonAndLanguage(t *testing.T) {
	c := loadTestCatalog(t)
	if _, err := c.Lesson("nope"); !errors.Is(err, ErrUnknownLesson) {
		t.Fatalf("expected unknown lesson, got %v", err)
	}
	if _, err := c.Sentences("fr"); !errors.Is(err, ErrUnknownLanguage) {
		t.Fatalf("expected unknown language, got %v", err)
	}
	if _, err := c.Sentences("en-US"); err != nil {
		t.Fatalf("expected regional tag to resolve to en, got %v", err)
	}
}

func TestGatekeeperUnlocking(t *testing.T) {
	c := loadTestCatalog(t)
	completed := map[string]bool{}
	if !c.Unlocked("home-sl", completed) {
		t.Fatalf("expected stage 1 lessons to be unlocked")
	}
	if c.Unlocked("top-ei", completed) {
		t.Fatalf("expected stage 2 locked before the home row gatekeeper")
	}
	completed["home-fj"] = true
	completed["home-dk"] = true
	if c.Unlocked("top-ei", completed) {
		t.Fatalf("expected non-gatekeeper completions not to unlock stage 2")
	}
	completed["home-row"] = true
	if !c.Unlocked("top-ei", completed) {
		t.Fatalf("expected gatekeeper completion to unlock stage 2")
	}
	if c.Unlocked("bottom-nm", completed) {
		t.Fatalf("expected stage 3 to need the top row gatekeeper too")
	}
	if c.Unlocked("missing", completed) {
		t.Fatalf("unknown lessons are never unlocked")
	}
}

func TestNextLesson(t *testing.T) {
	c := loadTestCatalog(t)
	if got := c.Next(nil).ID; got != "home-fj" {
		t.Fatalf("expected home-fj first, got %s", got)
	}
	if got := c.Next(map[string]bool{"home-fj": true}).ID; got != "home-dk" {
		t.Fatalf("expected home-dk next, got %s", got)
	}
}

func TestGenerateExercisesForKeyLesson(t *testing.T) {
	c := loadTestCatalog(t)
	l, _ := c.Lesson("home-fj")
	exercises, err := c.GenerateExercises(l, model.UserContext{Lang: "en", WeakKeys: []rune("q")})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	want := []model.ExerciseType{model.ExerciseAnchor, model.ExerciseNgram, model.ExerciseWord, model.ExerciseWord}
	if len(exercises) != len(want) {
		t.Fatalf("expected %d exercises, got %d", len(want), len(exercises))
	}
	for i, typ := range want {
		if exercises[i].Type != typ {
			t.Fatalf("exercise %d: expected %s, got %s", i, typ, exercises[i].Type)
		}
	}
	if exercises[3].Content != l.ContentPattern {
		t.Fatalf("expected lesson content last, got %q", exercises[3].Content)
	}
}

func TestGenerateExercisesForCorpusSentences(t *testing.T) {
	c := loadTestCatalog(t)
	l, _ := c.Lesson("sentences-corpus")
	exercises, err := c.GenerateExercises(l, model.UserContext{Lang: "de"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(exercises) != 1 || exercises[0].Type != model.ExerciseSentence || exercises[0].Content == "" {
		t.Fatalf("unexpected sentence exercises %+v", exercises)
	}
	if _, err := c.GenerateExercises(l, model.UserContext{Lang: "fr"}); !errors.Is(err, ErrUnknownLanguage) {
		t.Fatalf("expected unknown language, got %v", err)
	}
}

func TestCorpusDirOverride(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "fr.txt"), []byte("le chat dort\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "en.txt"), []byte("custom line\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c := loadTestCatalog(t, WithCorpusDir(dir))
	fr, err := c.Sentences("fr")
	if err != nil || len(fr) != 1 {
		t.Fatalf("expected fr corpus, got %v %v", fr, err)
	}
	en, _ := c.Sentences("en")
	if len(en) != 1 || en[0] != "custom line" {
		t.Fatalf("expected en corpus override, got %v", en)
	}
	words, _ := c.Words("en")
	if strings.Join(words, " ") != "custom line" {
		t.Fatalf("unexpected words %v", words)
	}
}

func TestParseCatalogRejectsDuplicates(t *testing.T) {
	data := []byte(`
[[stage]]
number = 1
[[stage.lesson]]
id = "a"
pattern = "x"
[[stage.lesson]]
id = "a"
pattern = "y"
`)
	if _, err := parseCatalog(data); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestParseCatalogRejectsBlankKeys(t *testing.T) {
	data := []byte(`
[[stage]]
number = 1
[[stage.lesson]]
id = "space"
keys = " "
pattern = "a b"
`)
	_, err := parseCatalog(data)
	if err == nil || !strings.Contains(err.Error(), "keys must not be blank") {
		t.Fatalf("expected blank keys error, got %v", err)
	}
}

func TestParseCatalogStripsWhitespaceFromKeys(t *testing.T) {
	data := []byte(`
[[stage]]
number = 1
[[stage.lesson]]
id = "fj"
keys = "F j"
`)
	c, err := parseCatalog(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	l, err := c.Lesson("fj")
	if err != nil {
		t.Fatalf("lesson: %v", err)
	}
	if string(l.RequiredKeys) != "fj" {
		t.Fatalf("expected keys fj, got %q", string(l.RequiredKeys))
	}
}

func TestGenerateExercisesSkipsDrillsForBlankKeys(t *testing.T) {
	c := loadTestCatalog(t)
	l, _ := c.Lesson("home-fj")
	l.RequiredKeys = []rune{' ', '\t'}
	exercises, err := c.GenerateExercises(l, model.UserContext{Lang: "en"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for i, ex := range exercises {
		if ex.Type == model.ExerciseAnchor || ex.Type == model.ExerciseNgram {
			t.Fatalf("exercise %d: expected no key drill for blank keys, got %s", i, ex.Type)
		}
	}
	if len(exercises) == 0 || exercises[len(exercises)-1].Content != l.ContentPattern {
		t.Fatalf("expected lesson content to remain, got %+v", exercises)
	}
}
