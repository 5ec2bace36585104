// Package ranking orders listings for display. Every code path that lists
// listings (featured feed, category feed, search results) must use the same
// ordering so ranking is consistent across entry points.
package ranking

import (
	"sort"

	"bluestore/server/internal/models"
)

// BoostWeight maps a boost level to its sort weight. Unknown or empty levels
// rank with "none".
func BoostWeight(level models.BoostLevel) int {
	switch level {
	case models.BoostDouble:
		return 3
	case models.BoostSingle:
		return 2
	default:
		return 1
	}
}

// ByPriority returns a new slice ordered highest priority first:
// boost weight descending, then package price descending, then creation time
// descending. The sort is stable, so items equal on all three keys keep their
// incoming order.
func ByPriority(listings []models.Listing) []models.Listing {
	out := make([]models.Listing, len(listings))
	copy(out, listings)

	sort.SliceStable(out, func(i, j int) bool {
		wi, wj := BoostWeight(out[i].BoostLevel), BoostWeight(out[j].BoostLevel)
		if wi != wj {
			return wi > wj
		}
		pi, pj := packagePrice(&out[i]), packagePrice(&out[j])
		if pi != pj {
			return pi > pj
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// packagePrice reads the sort-stable package price; a missing or negative
// value counts as 0 so unpackaged listings rank below any paid tier of the
// same boost level.
func packagePrice(l *models.Listing) float64 {
	if l.PackagePrice > 0 {
		return l.PackagePrice
	}
	return 0
}
