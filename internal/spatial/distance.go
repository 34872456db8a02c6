package spatial

import "math"

// EarthRadiusKm is Earth's mean radius. The 20 km safety-check boundary
// depends on every distance in the system using this exact constant.
const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in kilometers between two
// WGS84 points using the haversine formula.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * (math.Pi / 180)
	dLng := (lng2 - lng1) * (math.Pi / 180)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*(math.Pi/180))*math.Cos(lat2*(math.Pi/180))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}
