package stats

import (
	"sort"

	"github.com/verte-zerg/typedrill/internal/model"
)

// TopKeysByFrequency returns the top N keys by press count.
func TopKeysByFrequency(keys []model.KeyStat, n int) []string {
	if n <= 0 || len(keys) == 0 {
		return nil
	}
	items := make([]model.KeyStat, len(keys))
	copy(items, keys)
	sort.Slice(items, func(i, j int) bool {
		if items[i].PressCount == items[j].PressCount {
			return items[i].Key < items[j].Key
		}
		return items[i].PressCount > items[j].PressCount
	})
	if n > len(items) {
		n = len(items)
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, items[i].Key)
	}
	return out
}
