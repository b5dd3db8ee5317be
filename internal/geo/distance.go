// Package geo holds the distance and proximity math used by dispatch.
//
// Everything here is pure: no logging, no I/O. Callers normalize raw
// coordinates once with Coordinates.Point and pass GeoPoint values around.
package geo

import "math"

const (
	// EarthRadiusMiles is the mean Earth radius used by Distance.
	EarthRadiusMiles = 3959.0

	metersPerMile = 1609.344
	feetPerMile   = 5280.0
)

// GeoPoint is a WGS 84 coordinate.
type GeoPoint struct {
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
}

// Locatable is anything that may carry a position. ok is false when the
// entity has no usable coordinates.
type Locatable interface {
	Location() (point GeoPoint, ok bool)
}

// Location lets a bare GeoPoint be ranked directly.
func (p GeoPoint) Location() (GeoPoint, bool) {
	return p, ValidPoint(p)
}

// Distance returns the great-circle distance between a and b in miles
// using the haversine formula.
func Distance(a, b GeoPoint) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	deltaLat := (b.Latitude - a.Latitude) * math.Pi / 180
	deltaLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	// rounding can push h a hair outside [0,1] for antipodal points
	h = math.Min(1, math.Max(0, h))

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMiles * c
}

// MilesToMeters converts statute miles to meters.
func MilesToMeters(miles float64) float64 {
	return miles * metersPerMile
}

// MetersToMiles converts meters to statute miles.
func MetersToMiles(meters float64) float64 {
	return meters / metersPerMile
}

// ValidPoint reports whether p is a finite coordinate inside the
// latitude/longitude ranges.
func ValidPoint(p GeoPoint) bool {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) ||
		math.IsInf(p.Latitude, 0) || math.IsInf(p.Longitude, 0) {
		return false
	}
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

// Optional resolves a possibly-nil point.
func Optional(p *GeoPoint) (GeoPoint, bool) {
	if p == nil {
		return GeoPoint{}, false
	}
	return *p, ValidPoint(*p)
}
