package geo

import (
	"cmp"
	"math"
	"slices"
)

// Band names a proximity bucket.
type Band string

const (
	BandVeryClose Band = "very_close" // < 0.5 mi
	BandClose     Band = "close"      // [0.5, 2) mi
	BandNearby    Band = "nearby"     // [2, 5) mi
	BandFar       Band = "far"        // >= 5 mi
)

// Ranked pairs an entity with its distance from the search origin.
type Ranked[T any] struct {
	Entity T
	Miles  float64
}

// Bands partitions ranked entities by distance. Each slice is sorted
// ascending by distance.
type Bands[T any] struct {
	VeryClose []Ranked[T]
	Close     []Ranked[T]
	Nearby    []Ranked[T]
	Far       []Ranked[T]
}

// Len is the number of entities across all bands.
func (b Bands[T]) Len() int {
	return len(b.VeryClose) + len(b.Close) + len(b.Nearby) + len(b.Far)
}

// FindWithinRadius returns the located entities no further than
// radiusMiles from origin, closest first. Entities without a usable
// location are skipped. Pass math.Inf(1) to rank everything.
func FindWithinRadius[T Locatable](origin GeoPoint, entities []T, radiusMiles float64) []Ranked[T] {
	if math.IsNaN(radiusMiles) || radiusMiles < 0 {
		return []Ranked[T]{}
	}

	ranked := make([]Ranked[T], 0, len(entities))
	for _, e := range entities {
		p, ok := e.Location()
		if !ok {
			continue
		}
		d := Distance(origin, p)
		if d > radiusMiles {
			continue
		}
		ranked = append(ranked, Ranked[T]{Entity: e, Miles: d})
	}

	slices.SortStableFunc(ranked, func(a, b Ranked[T]) int {
		return cmp.Compare(a.Miles, b.Miles)
	})
	return ranked
}

// FindNearby is FindWithinRadius under the name the nearby-technicians
// handler uses.
func FindNearby[T Locatable](origin GeoPoint, entities []T, radiusMiles float64) []Ranked[T] {
	return FindWithinRadius(origin, entities, radiusMiles)
}

// FindClosest returns the located entity nearest to origin.
func FindClosest[T Locatable](origin GeoPoint, entities []T) (Ranked[T], bool) {
	ranked := FindWithinRadius(origin, entities, math.Inf(1))
	if len(ranked) == 0 {
		var zero Ranked[T]
		return zero, false
	}
	return ranked[0], true
}

// BandFor maps a distance in miles to its band.
func BandFor(miles float64) Band {
	switch {
	case miles < 0.5:
		return BandVeryClose
	case miles < 2:
		return BandClose
	case miles < 5:
		return BandNearby
	default:
		return BandFar
	}
}

// GroupByDistanceBand buckets every located entity into exactly one band.
func GroupByDistanceBand[T Locatable](origin GeoPoint, entities []T) Bands[T] {
	bands := Bands[T]{
		VeryClose: []Ranked[T]{},
		Close:     []Ranked[T]{},
		Nearby:    []Ranked[T]{},
		Far:       []Ranked[T]{},
	}

	// input is already sorted, so appending keeps each band sorted
	for _, r := range FindWithinRadius(origin, entities, math.Inf(1)) {
		switch BandFor(r.Miles) {
		case BandVeryClose:
			bands.VeryClose = append(bands.VeryClose, r)
		case BandClose:
			bands.Close = append(bands.Close, r)
		case BandNearby:
			bands.Nearby = append(bands.Nearby, r)
		default:
			bands.Far = append(bands.Far, r)
		}
	}
	return bands
}
