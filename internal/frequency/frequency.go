package frequency

import "github.com/rocketsafe/rocketsafe/internal/models"

// languageVariants are the registry name fields checked when attributing an
// alert name to a location. The feed is Hebrew, but the registry carries
// several variants and some alert sources mix them, so all are checked.
var languageVariants = []string{"he", "en", "ar", "ru", "es"}

// Aggregate rebuilds the per-polygon alert counts for one time window. Every
// polygon id in the registry gets an entry, zero counts included; the table
// is always rebuilt whole, never patched.
//
// An alert naming three resolvable cities contributes three counts, spread
// across the polygons those cities map to. O(alerts x locations) is fine at
// the scale of both registries.
func Aggregate(snap *models.Snapshot, window models.TimeWindow, now int64) models.FrequencyTable {
	filtered := window.Filter(snap.Alerts, now)

	// Counts keyed by the free-text name as it appears in the feed.
	nameCounts := make(map[string]int)
	for _, alert := range filtered {
		for _, name := range alert.LocationNames {
			nameCounts[name]++
		}
	}

	table := make(models.FrequencyTable, len(snap.Polygons))
	for _, polygon := range snap.Polygons {
		total := 0
		for _, loc := range snap.Locations {
			if loc.ID != polygon.ID {
				continue
			}
			for _, lang := range languageVariants {
				if name := loc.Names[lang]; name != "" {
					total += nameCounts[name]
				}
			}
		}
		table[polygon.ID] = total
	}
	return table
}
