package geomatch

import "github.com/rocketsafe/rocketsafe/internal/models"

// Matcher resolves the free-text Hebrew names carried by alert records to
// registry locations. The Hebrew name is the only join key the upstream feed
// offers, so matching is exact string equality against whatever the registry
// stores; no normalization, no fuzziness. A name with no registry entry simply
// resolves to nothing.
//
// Keeping the join behind this type means a future stable-id join only has to
// replace this package.
type Matcher struct {
	locations []models.LocationEntity
	byHebrew  map[string]int
}

// New builds a matcher over the registry. If two locations carry the same
// Hebrew name (the registry does not prevent it), the first one in registry
// order wins and keeps winning deterministically.
func New(locations []models.LocationEntity) *Matcher {
	m := &Matcher{
		locations: locations,
		byHebrew:  make(map[string]int, len(locations)),
	}
	for i, loc := range locations {
		if _, seen := m.byHebrew[loc.Names["he"]]; !seen {
			m.byHebrew[loc.Names["he"]] = i
		}
	}
	return m
}

// Resolve returns the location whose Hebrew name exactly equals name.
func (m *Matcher) Resolve(name string) (models.LocationEntity, bool) {
	i, ok := m.byHebrew[name]
	if !ok {
		return models.LocationEntity{}, false
	}
	return m.locations[i], true
}

// ResolveAll maps an alert's name list to the matching locations, silently
// dropping names with no registry entry. An alert may resolve to zero, one,
// or many locations; duplicated input names yield duplicated matches.
func (m *Matcher) ResolveAll(names []string) []models.LocationEntity {
	var matched []models.LocationEntity
	for _, name := range names {
		if loc, ok := m.Resolve(name); ok {
			matched = append(matched, loc)
		}
	}
	return matched
}

// TranslateName returns the English name for a Hebrew city name, or the input
// unchanged when no location matches. It never fails; the caller always gets
// something displayable.
func (m *Matcher) TranslateName(hebrewName string) string {
	loc, ok := m.Resolve(hebrewName)
	if !ok {
		return hebrewName
	}
	return loc.Names["en"]
}
