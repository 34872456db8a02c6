package proximity

import (
	"sort"

	"github.com/rocketsafe/rocketsafe/internal/errors"
	"github.com/rocketsafe/rocketsafe/internal/geomatch"
	"github.com/rocketsafe/rocketsafe/internal/models"
	"github.com/rocketsafe/rocketsafe/internal/spatial"
)

const (
	// DefaultRadiusKm is the live safety-check radius.
	DefaultRadiusKm = 20.0

	// DefaultRecencySeconds is the lookback that makes a match "recent".
	DefaultRecencySeconds int64 = 3 * 60 * 60

	// maxRecentAlerts caps the recent-alert display list.
	maxRecentAlerts = 5
)

// Match is one alert placed within the query radius. An alert naming several
// nearby cities produces one match per resolved city, matching how the
// historical counts are attributed.
type Match struct {
	Alert      models.AlertRecord
	Location   models.LocationEntity
	CityName   string
	DistanceKm float64
	Recent     bool
}

// Result is the outcome of a point-radius scan.
type Result struct {
	// Recent holds matches within the recency window, newest first, capped
	// for display.
	Recent []Match
	// RecentCount is the uncapped number of recent matches.
	RecentCount int
	// HistoricalCount is the total number of matches regardless of recency.
	HistoricalCount int
}

// Query describes one point-radius scan.
type Query struct {
	Lat            float64
	Lng            float64
	RadiusKm       float64
	Now            int64
	RecencySeconds int64
}

// Scanner answers "is this point near an alert?" queries over a snapshot.
type Scanner struct {
	alerts  []models.AlertRecord
	matcher *geomatch.Matcher
}

// New builds a scanner over the snapshot's alerts and registry.
func New(snap *models.Snapshot) *Scanner {
	return &Scanner{
		alerts:  snap.Alerts,
		matcher: geomatch.New(snap.Locations),
	}
}

// Scan resolves every alert's city names, measures great-circle distance from
// the query point, and collects the matches inside the radius. English names
// are substituted where the registry knows them so results are displayable.
func (s *Scanner) Scan(q Query) (Result, error) {
	if err := q.validate(); err != nil {
		return Result{}, err
	}
	if q.RadiusKm == 0 {
		q.RadiusKm = DefaultRadiusKm
	}
	if q.RecencySeconds == 0 {
		q.RecencySeconds = DefaultRecencySeconds
	}

	recencyCutoff := q.Now - q.RecencySeconds

	var res Result
	var recent []Match
	for _, alert := range s.alerts {
		for _, name := range alert.LocationNames {
			loc, ok := s.matcher.Resolve(name)
			if !ok {
				continue
			}
			dist := spatial.HaversineKm(q.Lat, q.Lng, loc.Lat, loc.Lng)
			if dist > q.RadiusKm {
				continue
			}

			m := Match{
				Alert:      alert,
				Location:   loc,
				CityName:   s.matcher.TranslateName(name),
				DistanceKm: dist,
				Recent:     alert.Timestamp >= recencyCutoff,
			}
			res.HistoricalCount++
			if m.Recent {
				recent = append(recent, m)
			}
		}
	}

	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Alert.Timestamp > recent[j].Alert.Timestamp
	})
	res.RecentCount = len(recent)
	if len(recent) > maxRecentAlerts {
		recent = recent[:maxRecentAlerts]
	}
	res.Recent = recent
	return res, nil
}

func (q Query) validate() error {
	if !validCoord(q.Lat, -90, 90) {
		return errors.ValidationError{Field: "latitude", Message: "must be a finite value in [-90, 90]"}
	}
	if !validCoord(q.Lng, -180, 180) {
		return errors.ValidationError{Field: "longitude", Message: "must be a finite value in [-180, 180]"}
	}
	if q.RadiusKm < 0 {
		return errors.ValidationError{Field: "radius_km", Message: "must be non-negative"}
	}
	if q.Now <= 0 {
		return errors.ValidationError{Field: "now", Message: "reference time must be positive epoch seconds"}
	}
	return nil
}

func validCoord(v, lo, hi float64) bool {
	return v >= lo && v <= hi // NaN fails both comparisons
}
