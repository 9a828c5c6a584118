// Package generator builds typing drills and word sequences.
package generator

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
	"unicode"

	"github.com/verte-zerg/typedrill/internal/model"
)

const (
	// NgramPick is the number of distinct n-grams placed in a drill.
	NgramPick = 4

	// SprintTimeLimit boxes speed exercises.
	SprintTimeLimit = 30 * time.Second
	// SprintRepetitions is how often a speed exercise repeats its content.
	SprintRepetitions = 3
	// AccuracyRepetitions is how often an accuracy exercise repeats its content.
	AccuracyRepetitions = 2

	maxAnchorGroups = 8
	ngramReps       = 3
)

// highFrequencyLetters is ordered by English letter frequency.
const highFrequencyLetters = "etaoinsrhldcum"

// commonNgrams is a fixed table of frequent English bigrams and trigrams.
var commonNgrams = []string{
	"th", "he", "in", "er", "an", "re", "on", "at", "en", "nd",
	"ti", "es", "or", "te", "of", "ed", "is", "it", "al", "ar",
	"st", "to", "nt", "ng", "se", "ha", "as", "ou", "io", "le",
	"ve", "co", "me", "de", "hi", "ri", "ro", "ic", "ne", "ea",
	"ra", "ce", "li", "ch", "ll", "be", "ma", "si", "om", "ur",
	"the", "and", "ing", "ion", "tio", "ent", "for", "her", "ter", "hat",
	"tha", "ere", "ate", "his", "con", "res", "ver", "all", "ons", "nce",
	"ith", "ted", "ers", "pro", "thi", "wit", "are", "ess", "not", "ive",
	"was", "ect", "rea", "com", "eve", "per", "int", "est", "sta", "cti",
	"ica", "ist", "ear", "ain", "one", "our", "iti", "rat", "ell", "ant",
	"qu", "ck", "ju", "ja", "ki", "ke", "ow", "wh", "ay", "ly",
	"fu", "ph", "gh", "ze", "ex", "oy", "ob", "ab", "ev", "iv",
}

// Generator produces drills and randomized word sequences.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed returns a deterministic Generator.
func NewWithSeed(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// AnchorDrill isolates each target key. A key with natural corpus matches is
// drilled as the doubled key followed by two corpus words; otherwise the
// group is synthesized from the key and two high-frequency neighbors, as in
// "kk ak ke". The group count grows with difficulty and duration.
func (g *Generator) AnchorDrill(keys []rune, difficulty float64, duration time.Duration, corpus []string) model.Exercise {
	keys = NormalizeKeys(keys)
	groups := anchorGroups(difficulty, duration)
	var parts []string
	for i := 0; i < groups; i++ {
		for _, k := range keys {
			parts = append(parts, g.anchorGroup(k, corpus)...)
		}
	}
	return model.Exercise{
		Type:        model.ExerciseAnchor,
		Content:     strings.Join(parts, " "),
		Target:      model.TargetMetric{Metric: model.MetricAccuracy, Threshold: 90},
		Repetitions: 1,
		Difficulty:  difficulty,
		Keys:        keys,
		Description: fmt.Sprintf("Anchor drill: %s", string(keys)),
	}
}

func (g *Generator) anchorGroup(k rune, corpus []string) []string {
	doubled := string([]rune{k, k})
	matches := naturalMatches(k, corpus)
	if len(matches) >= 2 {
		g.rnd.Shuffle(len(matches), func(i, j int) {
			matches[i], matches[j] = matches[j], matches[i]
		})
		return []string{doubled, matches[0], matches[1]}
	}
	before, after := g.neighbors(k)
	return []string{doubled, string([]rune{before, k}), string([]rune{k, after})}
}

func (g *Generator) neighbors(k rune) (rune, rune) {
	pool := make([]rune, 0, len(highFrequencyLetters))
	for _, r := range highFrequencyLetters {
		if r != k {
			pool = append(pool, r)
		}
	}
	i := g.rnd.Intn(len(pool))
	j := g.rnd.Intn(len(pool) - 1)
	if j >= i {
		j++
	}
	return pool[i], pool[j]
}

// naturalMatches returns distinct short corpus words containing k.
func naturalMatches(k rune, corpus []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, word := range corpus {
		w := strings.ToLower(strings.TrimSpace(word))
		if w == "" || len([]rune(w)) > 6 || !strings.ContainsRune(w, k) {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

func anchorGroups(difficulty float64, duration time.Duration) int {
	if duration <= 0 {
		duration = 45 * time.Second
	}
	n := int(math.Round(duration.Seconds() / 15 * math.Max(difficulty, 0.5)))
	return min(max(n, 1), maxAnchorGroups)
}

// NgramDrill filters the common n-gram table to entries containing a target
// key, dedups, and picks NgramPick of them. When the table yields fewer,
// synthesized key pairs fill the remainder.
func (g *Generator) NgramDrill(keys []rune, difficulty float64) model.Exercise {
	keys = NormalizeKeys(keys)
	picked := g.PickNgrams(keys)
	return model.Exercise{
		Type:        model.ExerciseNgram,
		Content:     strings.Join(picked, " "),
		Target:      model.TargetMetric{Metric: model.MetricAccuracy, Threshold: 90},
		Repetitions: ngramReps,
		Difficulty:  difficulty,
		Keys:        keys,
		Description: fmt.Sprintf("N-gram drill: %s", strings.Join(picked, " ")),
	}
}

// PickNgrams applies the filter-then-fallback rule and returns NgramPick n-grams.
func (g *Generator) PickNgrams(keys []rune) []string {
	seen := map[string]struct{}{}
	var candidates []string
	for _, ng := range commonNgrams {
		if _, ok := seen[ng]; ok {
			continue
		}
		if !containsAny(ng, keys) {
			continue
		}
		seen[ng] = struct{}{}
		candidates = append(candidates, ng)
	}
	g.rnd.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if len(candidates) > NgramPick {
		candidates = candidates[:NgramPick]
	}
	for attempt := 0; len(candidates) < NgramPick && len(keys) > 0 && attempt < 64; attempt++ {
		k := keys[g.rnd.Intn(len(keys))]
		before, after := g.neighbors(k)
		pair := string([]rune{before, k})
		if attempt%2 == 1 {
			pair = string([]rune{k, after})
		}
		if _, ok := seen[pair]; ok {
			continue
		}
		seen[pair] = struct{}{}
		candidates = append(candidates, pair)
	}
	return candidates
}

// AccuracyDrill repeats content twice with an accuracy target.
func (g *Generator) AccuracyDrill(content string, minAccuracy, difficulty float64) model.Exercise {
	return model.Exercise{
		Type:        model.ExerciseAccuracy,
		Content:     content,
		Target:      model.TargetMetric{Metric: model.MetricAccuracy, Threshold: minAccuracy},
		Repetitions: AccuracyRepetitions,
		Difficulty:  difficulty,
		Description: "Accuracy drill",
	}
}

// SpeedSprint is a time-boxed, three-repetition speed exercise.
func (g *Generator) SpeedSprint(content string, minWPM, difficulty float64) model.Exercise {
	return model.Exercise{
		Type:        model.ExerciseSpeed,
		Content:     content,
		Target:      model.TargetMetric{Metric: model.MetricWPM, Threshold: minWPM},
		TimeLimit:   SprintTimeLimit,
		Repetitions: SprintRepetitions,
		Difficulty:  difficulty,
		Description: "Speed sprint",
	}
}

// Pick returns count items chosen uniformly from items.
func (g *Generator) Pick(items []string, count int) []string {
	if len(items) == 0 || count <= 0 {
		return nil
	}
	result := make([]string, 0, count)
	for i := 0; i < count; i++ {
		result = append(result, items[g.rnd.Intn(len(items))])
	}
	return result
}

// GenerateWeighted selects words with a bias toward weak keys.
func (g *Generator) GenerateWeighted(words []string, count int, weakSet map[rune]struct{}, factor float64) []string {
	result := make([]string, 0, count)
	if len(words) == 0 {
		return result
	}
	weights := make([]float64, len(words))
	total := 0.0
	for i, word := range words {
		weakCount := 0
		for _, r := range strings.ToLower(word) {
			if _, ok := weakSet[r]; ok {
				weakCount++
			}
		}
		w := 1.0 + float64(weakCount)*factor
		weights[i] = w
		total += w
	}

	for i := 0; i < count; i++ {
		r := g.rnd.Float64() * total
		acc := 0.0
		idx := 0
		for j, w := range weights {
			acc += w
			if r <= acc {
				idx = j
				break
			}
		}
		result = append(result, words[idx])
	}
	return result
}

// WeakKeyDrill is a word exercise biased toward weak keys.
func (g *Generator) WeakKeyDrill(words []string, weak []rune, count int, difficulty float64) model.Exercise {
	weakSet := make(map[rune]struct{}, len(weak))
	for _, r := range NormalizeKeys(weak) {
		weakSet[r] = struct{}{}
	}
	picked := g.GenerateWeighted(words, count, weakSet, 2.0)
	return model.Exercise{
		Type:        model.ExerciseWord,
		Content:     strings.Join(picked, " "),
		Target:      model.TargetMetric{Metric: model.MetricErrorRate, Threshold: 10},
		Repetitions: 1,
		Difficulty:  difficulty,
		Keys:        NormalizeKeys(weak),
		Description: "Weak key words",
	}
}

// NormalizeKeys lower-cases keys, drops whitespace and removes duplicates.
func NormalizeKeys(keys []rune) []rune {
	seen := map[rune]struct{}{}
	out := make([]rune, 0, len(keys))
	for _, k := range keys {
		k = unicode.ToLower(k)
		if unicode.IsSpace(k) {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func containsAny(s string, keys []rune) bool {
	for _, k := range keys {
		if strings.ContainsRune(s, k) {
			return true
		}
	}
	return false
}
