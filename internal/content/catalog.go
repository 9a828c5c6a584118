// Package content is the lesson catalog and practice corpus store.
package content

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"

	"github.com/verte-zerg/typedrill/internal/generator"
	"github.com/verte-zerg/typedrill/internal/model"
	"github.com/verte-zerg/typedrill/internal/wordlist"
)

var (
	// ErrUnknownLesson is returned for lesson ids missing from the catalog.
	ErrUnknownLesson = errors.New("unknown lesson")
	// ErrUnknownLanguage is returned when no corpus exists for a language.
	ErrUnknownLanguage = errors.New("unknown language")
)

const (
	// DefaultExerciseDuration sizes anchor drills.
	DefaultExerciseDuration = 45 * time.Second

	weakWordCount = 12
	sentencePick  = 2
)

//go:embed catalog.toml corpus/*.txt
var embedded embed.FS

type catalogFile struct {
	Stages []stageFile `toml:"stage"`
}

type stageFile struct {
	Number  int          `toml:"number"`
	Title   string       `toml:"title"`
	Lessons []lessonFile `toml:"lesson"`
}

type lessonFile struct {
	ID          string  `toml:"id"`
	Title       string  `toml:"title"`
	Kind        string  `toml:"kind"`
	Keys        string  `toml:"keys"`
	Pattern     string  `toml:"pattern"`
	MinAccuracy float64 `toml:"min-accuracy"`
	MinWPM      float64 `toml:"min-wpm"`
	Difficulty  float64 `toml:"difficulty"`
	Gatekeeper  bool    `toml:"gatekeeper"`
}

// Option configures a Catalog.
type Option func(*options)

type options struct {
	corpusDir string
	gen       *generator.Generator
	duration  time.Duration
}

// WithCorpusDir overrides embedded corpora with <lang>.txt files from dir.
func WithCorpusDir(dir string) Option {
	return func(o *options) { o.corpusDir = dir }
}

// WithGenerator sets the drill generator.
func WithGenerator(g *generator.Generator) Option {
	return func(o *options) { o.gen = g }
}

// WithExerciseDuration sets the duration used to size anchor drills.
func WithExerciseDuration(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.duration = d
		}
	}
}

// Catalog holds lessons in stage order and per-language corpora.
type Catalog struct {
	lessons  []model.Lesson
	byID     map[string]int
	stages   map[int]string
	corpora  map[string][]string
	gen      *generator.Generator
	duration time.Duration
}

// Load builds a catalog from the embedded lesson file and corpora.
func Load(opts ...Option) (*Catalog, error) {
	o := options{duration: DefaultExerciseDuration}
	for _, opt := range opts {
		opt(&o)
	}
	if o.gen == nil {
		o.gen = generator.New()
	}

	data, err := fs.ReadFile(embedded, "catalog.toml")
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	c, err := parseCatalog(data)
	if err != nil {
		return nil, err
	}
	c.gen = o.gen
	c.duration = o.duration

	c.corpora, err = loadCorpora(embedded, "corpus/*.txt")
	if err != nil {
		return nil, err
	}
	if o.corpusDir != "" {
		if err := c.overrideCorpora(o.corpusDir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func parseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if _, err := toml.Decode(string(data), &file); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	c := &Catalog{byID: map[string]int{}, stages: map[int]string{}}
	sort.SliceStable(file.Stages, func(i, j int) bool {
		return file.Stages[i].Number < file.Stages[j].Number
	})
	for _, st := range file.Stages {
		if st.Number < 1 {
			return nil, fmt.Errorf("catalog stage %q: number must be >= 1", st.Title)
		}
		c.stages[st.Number] = st.Title
		for _, lf := range st.Lessons {
			l, err := lf.lesson(st.Number)
			if err != nil {
				return nil, err
			}
			if _, dup := c.byID[l.ID]; dup {
				return nil, fmt.Errorf("catalog lesson %q: duplicate id", l.ID)
			}
			c.byID[l.ID] = len(c.lessons)
			c.lessons = append(c.lessons, l)
		}
	}
	if len(c.lessons) == 0 {
		return nil, fmt.Errorf("catalog has no lessons")
	}
	return c, nil
}

func (lf lessonFile) lesson(stage int) (model.Lesson, error) {
	id := strings.TrimSpace(lf.ID)
	if id == "" {
		return model.Lesson{}, fmt.Errorf("catalog stage %d: lesson id is required", stage)
	}
	kind := model.LessonKind(strings.ToLower(strings.TrimSpace(lf.Kind)))
	switch kind {
	case "":
		kind = model.LessonKindWord
	case model.LessonKindWord, model.LessonKindSentence:
	default:
		return model.Lesson{}, fmt.Errorf("catalog lesson %q: unknown kind %q", id, lf.Kind)
	}
	keys := strings.Join(strings.Fields(strings.ToLower(lf.Keys)), "")
	if lf.Keys != "" && keys == "" {
		return model.Lesson{}, fmt.Errorf("catalog lesson %q: keys must not be blank", id)
	}
	if kind == model.LessonKindWord && strings.TrimSpace(lf.Pattern) == "" && keys == "" {
		return model.Lesson{}, fmt.Errorf("catalog lesson %q: word lessons need keys or a pattern", id)
	}
	difficulty := lf.Difficulty
	if difficulty <= 0 {
		difficulty = 1
	}
	return model.Lesson{
		ID:             id,
		Title:          lf.Title,
		Stage:          stage,
		Kind:           kind,
		RequiredKeys:   []rune(keys),
		ContentPattern: strings.TrimSpace(lf.Pattern),
		PassingRequirements: model.PassingRequirements{
			MinAccuracy: lf.MinAccuracy,
			MinWPM:      lf.MinWPM,
		},
		Difficulty:   difficulty,
		IsGatekeeper: lf.Gatekeeper,
	}, nil
}

func loadCorpora(fsys fs.FS, pattern string) (map[string][]string, error) {
	paths, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to glob corpora: %w", err)
	}
	corpora := map[string][]string{}
	for _, path := range paths {
		f, err := fsys.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open corpus %s: %w", path, err)
		}
		lines, err := wordlist.ReadLines(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read corpus %s: %w", path, err)
		}
		corpora[langFromPath(path)] = lines
	}
	return corpora, nil
}

func (c *Catalog) overrideCorpora(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read corpus dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".txt" {
			continue
		}
		lines, err := wordlist.LoadWords(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to load corpus: %w", err)
		}
		lang, err := NormalizeLang(langFromPath(entry.Name()))
		if err != nil {
			return err
		}
		c.corpora[lang] = lines
	}
	return nil
}

func langFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// NormalizeLang reduces a language tag such as "en-US" to its base code.
func NormalizeLang(lang string) (string, error) {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
	}
	base, _ := tag.Base()
	return base.String(), nil
}

// Lessons returns every lesson in stage order.
func (c *Catalog) Lessons() []model.Lesson {
	return append([]model.Lesson(nil), c.lessons...)
}

// StageTitle returns the title of a stage.
func (c *Catalog) StageTitle(stage int) string {
	return c.stages[stage]
}

// Lesson returns a lesson by id.
func (c *Catalog) Lesson(id string) (model.Lesson, error) {
	idx, ok := c.byID[id]
	if !ok {
		return model.Lesson{}, fmt.Errorf("%w: %s", ErrUnknownLesson, id)
	}
	return c.lessons[idx], nil
}

// Languages lists the languages with a corpus, sorted.
func (c *Catalog) Languages() []string {
	out := make([]string, 0, len(c.corpora))
	for lang := range c.corpora {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Sentences returns the corpus for a language.
func (c *Catalog) Sentences(lang string) ([]string, error) {
	code, err := NormalizeLang(lang)
	if err != nil {
		return nil, err
	}
	lines, ok := c.corpora[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLanguage, lang)
	}
	return append([]string(nil), lines...), nil
}

// Words returns the distinct corpus words for a language that pass its filter.
func (c *Catalog) Words(lang string) ([]string, error) {
	sentences, err := c.Sentences(lang)
	if err != nil {
		return nil, err
	}
	code, _ := NormalizeLang(lang)
	return wordlist.SplitWords(sentences, wordlist.FilterForLang(code)), nil
}

// Unlocked reports whether a lesson is available: every gatekeeper in an
// earlier stage must be completed.
func (c *Catalog) Unlocked(id string, completed map[string]bool) bool {
	idx, ok := c.byID[id]
	if !ok {
		return false
	}
	stage := c.lessons[idx].Stage
	for _, l := range c.lessons {
		if l.Stage < stage && l.IsGatekeeper && !completed[l.ID] {
			return false
		}
	}
	return true
}

// Next returns the first unlocked lesson not yet completed, or the last
// lesson once everything is done.
func (c *Catalog) Next(completed map[string]bool) model.Lesson {
	for _, l := range c.lessons {
		if !completed[l.ID] && c.Unlocked(l.ID, completed) {
			return l
		}
	}
	return c.lessons[len(c.lessons)-1]
}

// GenerateExercises builds a lesson's exercise queue: an anchor and an
// n-gram drill over the required keys, a word drill biased toward the
// learner's weak keys, then the lesson content itself.
func (c *Catalog) GenerateExercises(l model.Lesson, user model.UserContext) ([]model.Exercise, error) {
	var out []model.Exercise
	words, wordsErr := c.Words(user.Lang)

	if len(generator.NormalizeKeys(l.RequiredKeys)) > 0 {
		out = append(out, c.gen.AnchorDrill(l.RequiredKeys, l.Difficulty, c.duration, words))
		out = append(out, c.gen.NgramDrill(l.RequiredKeys, l.Difficulty))
	}
	if len(user.WeakKeys) > 0 && wordsErr == nil && len(words) > 0 {
		out = append(out, c.gen.WeakKeyDrill(words, user.WeakKeys, weakWordCount, l.Difficulty))
	}

	req := l.PassingRequirements
	target := model.TargetMetric{Metric: model.MetricAccuracy, Threshold: req.MinAccuracy}
	switch {
	case l.Kind == model.LessonKindSentence && l.ContentPattern == "":
		sentences, err := c.Sentences(user.Lang)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Exercise{
			Type:        model.ExerciseSentence,
			Content:     strings.Join(c.gen.Pick(sentences, sentencePick), " "),
			Target:      model.TargetMetric{Metric: model.MetricWPM, Threshold: req.MinWPM},
			Repetitions: 1,
			Difficulty:  l.Difficulty,
			Description: l.Title,
		})
	case l.Kind == model.LessonKindSentence:
		out = append(out, model.Exercise{
			Type:        model.ExerciseSentence,
			Content:     l.ContentPattern,
			Target:      model.TargetMetric{Metric: model.MetricWPM, Threshold: req.MinWPM},
			Repetitions: 1,
			Difficulty:  l.Difficulty,
			Description: l.Title,
		})
	case l.ContentPattern != "":
		out = append(out, model.Exercise{
			Type:        model.ExerciseWord,
			Content:     l.ContentPattern,
			Target:      target,
			Repetitions: 1,
			Difficulty:  l.Difficulty,
			Keys:        l.RequiredKeys,
			Description: l.Title,
		})
	}
	return out, nil
}
