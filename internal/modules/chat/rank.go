// README: Vehicle recommendation ranker: quotes + passenger/bag counts -> up to 3 picks.
package chat

import (
	"regexp"
	"sort"
	"strconv"
)

const maxPicks = 3

var (
	capacityRe = regexp.MustCompile(`(?i)(\d+)\s*(?:pax|places)`)
	vanRe      = regexp.MustCompile(`(?i)van|minibus`)
)

// Recommend ranks computed quotes for the given passenger and bag counts.
// Quote-only vehicles and vehicles without a computed total are excluded;
// the rest are sorted cheapest first. Labels advertising a capacity
// ("7 places", "4 pax") filter out vehicles too small for the group — unless
// that would empty the list, in which case the unfiltered order is kept.
// Heavy luggage forces a van-labelled vehicle into second position.
func Recommend(quotes []VehicleQuote, passengers, bags int) []VehicleQuote {
	var priced []VehicleQuote
	for _, q := range quotes {
		if q.IsQuote || q.Total == nil {
			continue
		}
		priced = append(priced, q)
	}
	sort.SliceStable(priced, func(i, j int) bool {
		return *priced[i].Total < *priced[j].Total
	})

	candidates := priced
	if passengers > 0 {
		var fitting []VehicleQuote
		for _, q := range priced {
			if cap, ok := labelCapacity(q.Label); ok && cap < passengers {
				continue
			}
			fitting = append(fitting, q)
		}
		if len(fitting) > 0 {
			candidates = fitting
		}
	}

	picks := candidates
	if len(picks) > maxPicks {
		picks = picks[:maxPicks]
	}
	// Copy so the van insertion below cannot alias the caller's slice.
	picks = append([]VehicleQuote(nil), picks...)

	if needsVan(passengers, bags) && !containsVan(picks) {
		if van, ok := cheapestVan(priced); ok {
			if len(picks) < 2 {
				picks = append(picks, van)
			} else {
				picks = append(picks[:1], append([]VehicleQuote{van}, picks[1:]...)...)
			}
			if len(picks) > maxPicks {
				picks = picks[:maxPicks]
			}
		}
	}
	return picks
}

func needsVan(passengers, bags int) bool {
	return bags >= 4 || (bags >= 3 && bags >= passengers)
}

func labelCapacity(label string) (int, bool) {
	m := capacityRe.FindStringSubmatch(label)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func containsVan(quotes []VehicleQuote) bool {
	for _, q := range quotes {
		if vanRe.MatchString(q.Label) {
			return true
		}
	}
	return false
}

func cheapestVan(sorted []VehicleQuote) (VehicleQuote, bool) {
	for _, q := range sorted {
		if vanRe.MatchString(q.Label) {
			return q, true
		}
	}
	return VehicleQuote{}, false
}
