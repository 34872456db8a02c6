package models

import (
	"math"

	"github.com/rocketsafe/rocketsafe/internal/errors"
)

// LocationEntity is one named place from the city registry. Alert records
// reference locations by free-text Hebrew name, so the Hebrew entry in Names
// is the join key; the other language variants exist for display and for
// frequency attribution against heterogeneous alert sources.
type LocationEntity struct {
	ID    string            `json:"id"`
	Names map[string]string `json:"names"`
	Lat   float64           `json:"lat"`
	Lng   float64           `json:"lng"`
}

// Name returns the display name for a language code, empty when unset.
func (l LocationEntity) Name(lang string) string {
	return l.Names[lang]
}

// Validate rejects locations that cannot be matched or placed on the map.
func (l LocationEntity) Validate() error {
	if l.ID == "" {
		return errors.ValidationError{Field: "id", Message: "must not be empty"}
	}
	if l.Names["he"] == "" {
		return errors.ValidationError{Field: "names.he", Message: "hebrew name is required for alert matching"}
	}
	if l.Names["en"] == "" {
		return errors.ValidationError{Field: "names.en", Message: "english name is required for display"}
	}
	if !finite(l.Lat) || !finite(l.Lng) {
		return errors.ValidationError{Field: "coordinates", Message: "latitude and longitude must be finite"}
	}
	return nil
}

// PolygonEntity is a drawable area boundary sharing the location id space.
type PolygonEntity struct {
	ID       string       `json:"id"`
	Boundary [][2]float64 `json:"boundary"`
}

// Validate rejects degenerate boundaries.
func (p PolygonEntity) Validate() error {
	if p.ID == "" {
		return errors.ValidationError{Field: "id", Message: "must not be empty"}
	}
	if len(p.Boundary) < 3 {
		return errors.ValidationError{Field: "boundary", Message: "polygon needs at least 3 vertices"}
	}
	for _, v := range p.Boundary {
		if !finite(v[0]) || !finite(v[1]) {
			return errors.ValidationError{Field: "boundary", Message: "vertex coordinates must be finite"}
		}
	}
	return nil
}

// ClosedBoundary returns the boundary with the first vertex appended when the
// ring is not already closed. Registry polygons are not guaranteed pre-closed.
func (p PolygonEntity) ClosedBoundary() [][2]float64 {
	if len(p.Boundary) == 0 {
		return p.Boundary
	}
	first, last := p.Boundary[0], p.Boundary[len(p.Boundary)-1]
	if first == last {
		return p.Boundary
	}
	closed := make([][2]float64, 0, len(p.Boundary)+1)
	closed = append(closed, p.Boundary...)
	return append(closed, first)
}

// Snapshot is the complete immutable dataset the risk engine works over: the
// historical alert records plus the location and polygon registries. A new
// snapshot is built on every feed refresh and swapped in atomically; nothing
// mutates a snapshot after construction, so any number of concurrent queries
// may share one.
type Snapshot struct {
	Alerts    []AlertRecord
	Locations []LocationEntity
	Polygons  []PolygonEntity

	FetchedAt int64
}

// Bounds is a simple lat/lng bounding box.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// IsraelBounds is the coverage area analytics are scoped to. Checks logged
// from outside it (travellers, bad GPS fixes) are excluded from dashboards.
var IsraelBounds = Bounds{North: 33.4, South: 29.4, East: 35.9, West: 34.2}

// Contains reports whether the point falls inside the box.
func (b Bounds) Contains(lat, lng float64) bool {
	return lat >= b.South && lat <= b.North && lng >= b.West && lng <= b.East
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
