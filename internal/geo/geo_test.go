package geo

import (
	"encoding/json"
	"math"
	"testing"
)

const epsilon = 1e-9

type site struct {
	name  string
	point *GeoPoint
}

func (s site) Location() (GeoPoint, bool) { return Optional(s.point) }

func pt(lat, lng float64) *GeoPoint { return &GeoPoint{Latitude: lat, Longitude: lng} }

var origin = GeoPoint{Latitude: 41.8781, Longitude: -87.6298} // Chicago Loop

func TestDistance_IdentityAndSymmetry(t *testing.T) {
	points := []GeoPoint{
		origin,
		{Latitude: 41.9484, Longitude: -87.6553},
		{Latitude: -33.8688, Longitude: 151.2093},
		{Latitude: 0, Longitude: 0},
		{Latitude: 89.9, Longitude: 179.9},
		{Latitude: -89.9, Longitude: -179.9},
	}

	for _, a := range points {
		if d := Distance(a, a); d != 0 {
			t.Fatalf("Distance(%v, %v) = %v, want 0", a, a, d)
		}
		for _, b := range points {
			ab, ba := Distance(a, b), Distance(b, a)
			if math.Abs(ab-ba) > epsilon {
				t.Fatalf("asymmetric distance %v vs %v for %v / %v", ab, ba, a, b)
			}
			if ab < 0 || math.IsNaN(ab) || math.IsInf(ab, 0) {
				t.Fatalf("invalid distance %v for %v / %v", ab, a, b)
			}
		}
	}
}

func TestDistance_KnownValue(t *testing.T) {
	// Chicago Loop to Wrigley Field is roughly 5 miles.
	d := Distance(origin, GeoPoint{Latitude: 41.9484, Longitude: -87.6553})
	if d < 4.7 || d > 5.3 {
		t.Fatalf("expected ~5 mi, got %.3f", d)
	}
}

func TestDistance_Antipodal(t *testing.T) {
	d := Distance(GeoPoint{Latitude: 0, Longitude: 0}, GeoPoint{Latitude: 0, Longitude: 180})
	want := math.Pi * EarthRadiusMiles
	if math.Abs(d-want) > 1e-6 {
		t.Fatalf("expected %.3f, got %.3f", want, d)
	}
}

func TestFindWithinRadius_SkipsUnlocatedAndSorts(t *testing.T) {
	sites := []site{
		{name: "far", point: pt(42.3601, -71.0589)},
		{name: "none"},
		{name: "near", point: pt(41.8800, -87.6300)},
		{name: "mid", point: pt(41.9484, -87.6553)},
		{name: "bad", point: pt(123, 0)},
	}

	got := FindWithinRadius(origin, sites, 10)
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Entity.name != "near" || got[1].Entity.name != "mid" {
		t.Fatalf("unexpected order: %s, %s", got[0].Entity.name, got[1].Entity.name)
	}
	if got[0].Miles > got[1].Miles {
		t.Fatalf("results not ascending")
	}
}

func TestFindWithinRadius_NegativeRadius(t *testing.T) {
	got := FindWithinRadius(origin, []site{{name: "a", point: pt(41.88, -87.63)}}, -1)
	if len(got) != 0 {
		t.Fatalf("expected no results, got %d", len(got))
	}
}

func TestFindClosest_MatchesFirstOfUnboundedSearch(t *testing.T) {
	sites := []site{
		{name: "a", point: pt(41.95, -87.65)},
		{name: "b", point: pt(41.87, -87.62)},
		{name: "c"},
		{name: "d", point: pt(40.71, -74.00)},
	}

	closest, ok := FindClosest(origin, sites)
	if !ok {
		t.Fatal("expected a closest entity")
	}
	all := FindNearby(origin, sites, math.Inf(1))
	if len(all) != 3 {
		t.Fatalf("expected 3 located entities, got %d", len(all))
	}
	if closest.Entity.name != all[0].Entity.name || closest.Miles != all[0].Miles {
		t.Fatalf("FindClosest = %+v, first nearby = %+v", closest, all[0])
	}
}

func TestFindClosest_Empty(t *testing.T) {
	if _, ok := FindClosest(origin, []site{{name: "nowhere"}}); ok {
		t.Fatal("expected no closest entity")
	}
}

func TestGroupByDistanceBand_Partitions(t *testing.T) {
	// offsets north of origin; 1 degree latitude is ~69.1 miles
	mi := func(miles float64) *GeoPoint {
		return pt(origin.Latitude+miles/69.09, origin.Longitude)
	}
	sites := []site{
		{name: "0.1", point: mi(0.1)},
		{name: "0.4", point: mi(0.4)},
		{name: "1.0", point: mi(1.0)},
		{name: "0.6", point: mi(0.6)},
		{name: "3.0", point: mi(3.0)},
		{name: "2.2", point: mi(2.2)},
		{name: "12", point: mi(12)},
		{name: "6", point: mi(6)},
		{name: "unlocated"},
	}

	bands := GroupByDistanceBand(origin, sites)

	if bands.Len() != len(sites)-1 {
		t.Fatalf("expected %d banded entities, got %d", len(sites)-1, bands.Len())
	}

	check := func(name string, got []Ranked[site], want Band, wantNames ...string) {
		t.Helper()
		if len(got) != len(wantNames) {
			t.Fatalf("%s: expected %d entries, got %d", name, len(wantNames), len(got))
		}
		for i, r := range got {
			if r.Entity.name != wantNames[i] {
				t.Fatalf("%s[%d]: expected %s, got %s", name, i, wantNames[i], r.Entity.name)
			}
			if BandFor(r.Miles) != want {
				t.Fatalf("%s[%d]: %.3f mi does not belong to %s", name, i, r.Miles, want)
			}
			if i > 0 && got[i-1].Miles > r.Miles {
				t.Fatalf("%s not sorted ascending", name)
			}
		}
	}

	check("veryClose", bands.VeryClose, BandVeryClose, "0.1", "0.4")
	check("close", bands.Close, BandClose, "0.6", "1.0")
	check("nearby", bands.Nearby, BandNearby, "2.2", "3.0")
	check("far", bands.Far, BandFar, "6", "12")
}

func TestBandFor_Boundaries(t *testing.T) {
	tests := []struct {
		miles float64
		want  Band
	}{
		{0, BandVeryClose},
		{0.4999, BandVeryClose},
		{0.5, BandClose},
		{1.999, BandClose},
		{2, BandNearby},
		{4.999, BandNearby},
		{5, BandFar},
		{500, BandFar},
	}
	for _, tt := range tests {
		if got := BandFor(tt.miles); got != tt.want {
			t.Errorf("BandFor(%v) = %s, want %s", tt.miles, got, tt.want)
		}
	}
}

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		miles float64
		want  string
	}{
		{0, "0 ft"},
		{0.05, "264 ft"},
		{0.5, "2640 ft"},
		{0.999, "5275 ft"},
		{1, "1.0 mi"},
		{1.5, "1.5 mi"},
		{12.345, "12.3 mi"},
	}
	for _, tt := range tests {
		if got := FormatDistance(tt.miles); got != tt.want {
			t.Errorf("FormatDistance(%v) = %q, want %q", tt.miles, got, tt.want)
		}
	}
}

func TestCoordinates_AcceptsLongitudeAliases(t *testing.T) {
	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{"lat/lng", `{"lat":41.88,"lng":-87.63}`, true},
		{"lat/lon", `{"lat":41.88,"lon":-87.63}`, true},
		{"latitude/longitude", `{"latitude":41.88,"longitude":-87.63}`, true},
		{"latitude/lon", `{"latitude":41.88,"lon":-87.63}`, true},
		{"missing longitude", `{"lat":41.88}`, false},
		{"missing latitude", `{"lng":-87.63}`, false},
		{"out of range", `{"lat":91,"lng":0}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Coordinates
			if err := json.Unmarshal([]byte(tt.body), &c); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			p, ok := c.Point()
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && (p.Latitude != 41.88 || p.Longitude != -87.63) {
				t.Fatalf("unexpected point %+v", p)
			}
		})
	}
}

func TestCoordinates_NilHasNoLocation(t *testing.T) {
	var c *Coordinates
	if _, ok := c.Point(); ok {
		t.Fatal("nil coordinates should not resolve")
	}
}
