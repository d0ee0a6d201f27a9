package store

import "math"

// EarthRadiusMeters matches the radius MongoDB uses for $centerSphere, so the
// in-memory store and the database agree on which issues fall inside a radius.
const EarthRadiusMeters = 6378100.0

// Point is a WGS84 coordinate.
type Point struct {
	Longitude float64
	Latitude  float64
}

// Validate rejects NaN, infinities and out-of-range coordinates.
func (p Point) Validate() error {
	if math.IsNaN(p.Longitude) || math.IsNaN(p.Latitude) ||
		math.IsInf(p.Longitude, 0) || math.IsInf(p.Latitude, 0) {
		return ErrInvalidPoint
	}
	if p.Latitude < -90 || p.Latitude > 90 || p.Longitude < -180 || p.Longitude > 180 {
		return ErrInvalidPoint
	}
	return nil
}

// DistanceMeters returns the great-circle distance between two points.
func DistanceMeters(a, b Point) float64 {
	toRad := math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * toRad
	dLon := (b.Longitude - a.Longitude) * toRad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Latitude*toRad)*math.Cos(b.Latitude*toRad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// radiansFor converts a surface distance to the angle $centerSphere expects.
func radiansFor(meters float64) float64 {
	return meters / EarthRadiusMeters
}
