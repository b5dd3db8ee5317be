// Package traveltime estimates driving time between two points. It tries
// the configured routing providers in order and always ends on a
// straight-line heuristic, so an estimate is returned for every call.
package traveltime

import (
	"context"
	"fmt"
	"math"

	"fieldops-dispatch/internal/geo"
	"fieldops-dispatch/internal/metrics"

	"github.com/rs/zerolog"
)

// Source identifies the strategy that produced an Estimate.
type Source string

const (
	SourceDistanceMatrix Source = "google_distance_matrix"
	SourceHaversine      Source = "haversine"
)

// Estimate is a travel time and distance between two points.
type Estimate struct {
	DurationSeconds int     `json:"durationSeconds"`
	DistanceMeters  float64 `json:"distanceMeters"`
	Source          Source  `json:"source"`
}

// Precise reports whether a routing provider served the estimate.
func (e Estimate) Precise() bool {
	return e.Source != SourceHaversine
}

// Minutes is the duration rounded to whole minutes.
func (e Estimate) Minutes() int {
	return int(math.Round(float64(e.DurationSeconds) / 60))
}

// Miles is the distance in miles.
func (e Estimate) Miles() float64 {
	return geo.MetersToMiles(e.DistanceMeters)
}

// Strategy is one way of estimating travel time. Implementations may fail;
// the Estimator moves on to the next one.
type Strategy interface {
	Name() Source
	Estimate(ctx context.Context, origin, destination geo.GeoPoint) (Estimate, error)
}

// Estimator runs its strategies in order and falls back to Haversine.
type Estimator struct {
	strategies []Strategy
	fallback   Haversine
	log        zerolog.Logger
}

// NewEstimator builds an estimator over the given providers. Nil entries
// are ignored, so an unconfigured provider can be passed through as-is.
func NewEstimator(log zerolog.Logger, providers ...Strategy) *Estimator {
	strategies := make([]Strategy, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			strategies = append(strategies, p)
		}
	}
	return &Estimator{
		strategies: strategies,
		log:        log.With().Str("component", "traveltime").Logger(),
	}
}

// Estimate never fails. Callers can tell the strategies apart only by
// Estimate.Source.
func (e *Estimator) Estimate(ctx context.Context, origin, destination geo.GeoPoint) Estimate {
	if geo.ValidPoint(origin) && geo.ValidPoint(destination) {
		for _, s := range e.strategies {
			est, err := attempt(ctx, s, origin, destination)
			if err == nil {
				metrics.TravelEstimates.WithLabelValues(string(est.Source)).Inc()
				return est
			}
			e.log.Warn().Err(err).Str("strategy", string(s.Name())).Msg("travel estimate degraded")
		}
	}

	est := e.fallback.estimate(origin, destination)
	metrics.TravelEstimates.WithLabelValues(string(est.Source)).Inc()
	return est
}

// attempt runs one strategy and converts panics and nonsensical results
// into errors.
func attempt(ctx context.Context, s Strategy, origin, destination geo.GeoPoint) (est Estimate, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", s.Name(), r)
		}
	}()

	est, err = s.Estimate(ctx, origin, destination)
	if err != nil {
		return Estimate{}, err
	}
	if est.DurationSeconds < 0 || est.DistanceMeters < 0 || math.IsNaN(est.DistanceMeters) {
		return Estimate{}, fmt.Errorf("%s returned an invalid estimate: %+v", s.Name(), est)
	}
	if est.Source == "" {
		est.Source = s.Name()
	}
	return est, nil
}
