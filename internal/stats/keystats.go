package stats

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/verte-zerg/typedrill/internal/model"
)

// KeyStats accumulates per-key press, error and latency counters for one
// session. Keys are normalized to their lower-case form.
type KeyStats struct {
	keys map[string]*model.KeyStat
}

// NewKeyStats returns an empty aggregator.
func NewKeyStats() *KeyStats {
	return &KeyStats{keys: map[string]*model.KeyStat{}}
}

// NormalizeKey lower-cases the target character.
func NormalizeKey(r rune) string {
	return string(unicode.ToLower(r))
}

// Record counts one press of targetKey.
func (k *KeyStats) Record(targetKey rune, isCorrect bool, latency time.Duration) {
	entry := k.entry(NormalizeKey(targetKey))
	entry.PressCount++
	entry.LatencySum += latency
	if !isCorrect {
		entry.ErrorCount++
	}
}

// Get returns the counters for a key; unseen keys return a zero stat.
func (k *KeyStats) Get(key rune) model.KeyStat {
	name := NormalizeKey(key)
	if st, ok := k.keys[name]; ok {
		return *st
	}
	return model.KeyStat{Key: name}
}

// Snapshot returns a copy of all stats ordered by key.
func (k *KeyStats) Snapshot() []model.KeyStat {
	out := make([]model.KeyStat, 0, len(k.keys))
	for _, st := range k.keys {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key < out[j].Key
	})
	return out
}

// Reset discards every counter.
func (k *KeyStats) Reset() {
	k.keys = map[string]*model.KeyStat{}
}

func (k *KeyStats) entry(key string) *model.KeyStat {
	if k.keys == nil {
		k.keys = map[string]*model.KeyStat{}
	}
	entry, ok := k.keys[key]
	if !ok {
		entry = &model.KeyStat{Key: key}
		k.keys[key] = entry
	}
	return entry
}

const (
	minStruggleLatency = 0.2
	maxStruggleLatency = 1.0
	accuracyWeight     = 0.6
	latencyWeight      = 0.4
)

// StruggleScore combines accuracy deficit and latency into 0-100, higher is
// worse. Latency is clamped to [0.2s, 1.0s] before scaling.
func StruggleScore(st model.KeyStat) float64 {
	accuracyDeficit := 100 * (1 - st.Accuracy())
	latency := clamp(st.AvgLatency().Seconds(), minStruggleLatency, maxStruggleLatency)
	latencyScore := 100 * clamp((latency-minStruggleLatency)/(maxStruggleLatency-minStruggleLatency), 0, 1)
	return accuracyWeight*accuracyDeficit + latencyWeight*latencyScore
}

// RankedKey pairs a key stat with its struggle score.
type RankedKey struct {
	model.KeyStat
	Score float64
}

// RankWeakest orders keys by struggle score, worst first. Equal scores rank
// the less-practiced key (lower press count) first, then by key. Whitespace
// keys are never ranked: weak-key drills cannot isolate the space bar.
// top <= 0 returns every key.
func RankWeakest(keys []model.KeyStat, top int) []RankedKey {
	ranked := make([]RankedKey, 0, len(keys))
	for _, st := range keys {
		if strings.TrimSpace(st.Key) == "" {
			continue
		}
		ranked = append(ranked, RankedKey{KeyStat: st, Score: StruggleScore(st)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].PressCount != ranked[j].PressCount {
			return ranked[i].PressCount < ranked[j].PressCount
		}
		return ranked[i].Key < ranked[j].Key
	})
	if top > 0 && top < len(ranked) {
		ranked = ranked[:top]
	}
	return ranked
}
