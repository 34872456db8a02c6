package spatial

import (
	"github.com/golang/geo/s2"

	"github.com/rocketsafe/rocketsafe/internal/models"
)

// PolygonBounds computes the bounding box enclosing every polygon vertex,
// the rect the map UI fits its viewport to on load. Returns false when the
// registry holds no vertices.
func PolygonBounds(polygons []models.PolygonEntity) (models.Bounds, bool) {
	builder := s2.NewRectBounder()
	empty := true

	for _, p := range polygons {
		for _, v := range p.Boundary {
			builder.AddPoint(s2.PointFromLatLng(s2.LatLngFromDegrees(v[0], v[1])))
			empty = false
		}
	}
	if empty {
		return models.Bounds{}, false
	}

	rect := builder.RectBound()
	return models.Bounds{
		North: rect.Hi().Lat.Degrees(),
		South: rect.Lo().Lat.Degrees(),
		East:  rect.Hi().Lng.Degrees(),
		West:  rect.Lo().Lng.Degrees(),
	}, true
}
