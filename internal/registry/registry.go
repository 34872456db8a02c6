package registry

import (
	"fmt"
	"os"
	"sort"

	json "github.com/goccy/go-json"

	"github.com/rocketsafe/rocketsafe/config"
	"github.com/rocketsafe/rocketsafe/internal/logger"
	"github.com/rocketsafe/rocketsafe/internal/models"
)

// cityRecord mirrors the on-disk city entry: flat language fields plus
// coordinates, keyed by a numeric id.
type cityRecord struct {
	ID json.Number `json:"id"`
	He string      `json:"he"`
	En string      `json:"en"`
	Ar string      `json:"ar"`
	Ru string      `json:"ru"`
	Es string      `json:"es"`

	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Load reads the city and polygon registries from disk. Registries are static
// reference data shipped with the service, so any malformed entry is a build
// artifact problem and fails startup rather than being skipped.
//
// Polygons whose id has no city entry are dropped: they could never receive a
// frequency count or a display name.
func Load(cfg config.RegistryConfig) ([]models.LocationEntity, []models.PolygonEntity, error) {
	locations, err := loadCities(cfg.CitiesPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load cities: %w", err)
	}

	polygons, err := loadPolygons(cfg.PolygonsPath, locations)
	if err != nil {
		return nil, nil, fmt.Errorf("load polygons: %w", err)
	}

	logger.Info("Registries loaded",
		"locations", len(locations),
		"polygons", len(polygons),
	)
	return locations, polygons, nil
}

func loadCities(path string) ([]models.LocationEntity, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// The registry ships either as a flat map or wrapped in a "cities" key.
	var wrapped struct {
		Cities map[string]cityRecord `json:"cities"`
	}
	entries := map[string]cityRecord{}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Cities) > 0 {
		entries = wrapped.Cities
	} else if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// Map iteration order is random; sort keys so duplicate Hebrew names
	// resolve to the same entry on every start.
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	locations := make([]models.LocationEntity, 0, len(entries))
	for _, key := range keys {
		rec := entries[key]
		id := rec.ID.String()
		if id == "" {
			id = key
		}
		loc := models.LocationEntity{
			ID: id,
			Names: map[string]string{
				"he": rec.He,
				"en": rec.En,
				"ar": rec.Ar,
				"ru": rec.Ru,
				"es": rec.Es,
			},
			Lat: rec.Lat,
			Lng: rec.Lng,
		}
		if err := loc.Validate(); err != nil {
			return nil, fmt.Errorf("city %q: %w", key, err)
		}
		locations = append(locations, loc)
	}
	return locations, nil
}

func loadPolygons(path string, locations []models.LocationEntity) ([]models.PolygonEntity, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	entries := map[string][][2]float64{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	known := make(map[string]struct{}, len(locations))
	for _, loc := range locations {
		known[loc.ID] = struct{}{}
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	polygons := make([]models.PolygonEntity, 0, len(entries))
	orphaned := 0
	for _, id := range keys {
		if _, ok := known[id]; !ok {
			orphaned++
			continue
		}
		poly := models.PolygonEntity{ID: id, Boundary: entries[id]}
		if err := poly.Validate(); err != nil {
			return nil, fmt.Errorf("polygon %q: %w", id, err)
		}
		polygons = append(polygons, poly)
	}
	if orphaned > 0 {
		logger.Warn("Dropped polygons with no matching city entry", "dropped", orphaned)
	}
	return polygons, nil
}
