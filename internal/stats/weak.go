package stats

import (
	"github.com/verte-zerg/typedrill/internal/model"
)

// SelectWeakKeys returns the top struggling keys as runes, worst first.
func SelectWeakKeys(keys []model.KeyStat, top int) []rune {
	ranked := RankWeakest(keys, top)
	out := make([]rune, 0, len(ranked))
	for _, rk := range ranked {
		runes := []rune(rk.Key)
		if len(runes) > 0 {
			out = append(out, runes[0])
		}
	}
	return out
}
