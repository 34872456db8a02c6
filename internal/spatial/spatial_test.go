package spatial

import (
	"math"
	"testing"

	"github.com/rocketsafe/rocketsafe/internal/models"
)

func TestHaversineKm(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		want                   float64
		tolerance              float64
	}{
		{"same point", 32.0853, 34.7818, 32.0853, 34.7818, 0, 0.0001},
		{"tel aviv to jerusalem", 32.0853, 34.7818, 31.7683, 35.2137, 54.2, 1.0},
		{"tel aviv to ashkelon", 32.0853, 34.7818, 31.6688, 34.5743, 50.0, 2.0},
		{"one degree of latitude", 31.0, 35.0, 32.0, 35.0, 111.2, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineKm(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("HaversineKm() = %.3f, want %.3f +/- %.3f", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestHaversineKmSymmetry(t *testing.T) {
	a := HaversineKm(32.0853, 34.7818, 31.2518, 34.7913)
	b := HaversineKm(31.2518, 34.7913, 32.0853, 34.7818)
	if math.Abs(a-b) > 1e-9 {
		t.Errorf("distance not symmetric: %v vs %v", a, b)
	}
}

func TestPolygonBounds(t *testing.T) {
	polygons := []models.PolygonEntity{
		{ID: "1", Boundary: [][2]float64{{31.0, 34.5}, {31.5, 34.7}, {31.2, 34.9}}},
		{ID: "2", Boundary: [][2]float64{{32.0, 35.0}, {32.5, 35.2}, {32.1, 35.4}}},
	}

	bounds, ok := PolygonBounds(polygons)
	if !ok {
		t.Fatal("expected bounds for non-empty polygons")
	}

	const tolerance = 0.001
	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"north", bounds.North, 32.5},
		{"south", bounds.South, 31.0},
		{"east", bounds.East, 35.4},
		{"west", bounds.West, 34.5},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > tolerance {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestPolygonBoundsEmpty(t *testing.T) {
	if _, ok := PolygonBounds(nil); ok {
		t.Error("expected ok=false for no polygons")
	}
	if _, ok := PolygonBounds([]models.PolygonEntity{{ID: "1"}}); ok {
		t.Error("expected ok=false for polygons with no vertices")
	}
}
