package traveltime

import (
	"context"
	"math"

	"fieldops-dispatch/internal/geo"
)

// UrbanSpeedMetersPerSecond is the assumed average urban driving speed, 40 km/h.
const UrbanSpeedMetersPerSecond = 40000.0 / 3600

// Haversine estimates travel time from the great-circle distance at
// UrbanSpeedMetersPerSecond. It cannot fail.
type Haversine struct{}

func (Haversine) Name() Source { return SourceHaversine }

func (h Haversine) Estimate(_ context.Context, origin, destination geo.GeoPoint) (Estimate, error) {
	return h.estimate(origin, destination), nil
}

func (Haversine) estimate(origin, destination geo.GeoPoint) Estimate {
	meters := geo.MilesToMeters(geo.Distance(origin, destination))
	if math.IsNaN(meters) || math.IsInf(meters, 0) {
		meters = 0
	}
	return Estimate{
		DurationSeconds: int(math.Round(meters / UrbanSpeedMetersPerSecond)),
		DistanceMeters:  meters,
		Source:          SourceHaversine,
	}
}
