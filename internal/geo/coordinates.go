package geo

// Coordinates is the boundary shape for incoming locations. Upstream
// records disagree on field names (lat/latitude, lng/lon/longitude), so all
// aliases are accepted and resolved once by Point.
type Coordinates struct {
	Lat       *float64 `json:"lat,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Lng       *float64 `json:"lng,omitempty"`
	Lon       *float64 `json:"lon,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Point returns the canonical GeoPoint. ok is false when either axis is
// missing or the result is out of range. A nil receiver has no location.
func (c *Coordinates) Point() (GeoPoint, bool) {
	if c == nil {
		return GeoPoint{}, false
	}

	lat := firstSet(c.Lat, c.Latitude)
	lng := firstSet(c.Lng, c.Lon, c.Longitude)
	if lat == nil || lng == nil {
		return GeoPoint{}, false
	}

	p := GeoPoint{Latitude: *lat, Longitude: *lng}
	if !ValidPoint(p) {
		return GeoPoint{}, false
	}
	return p, true
}

// Location implements Locatable.
func (c *Coordinates) Location() (GeoPoint, bool) {
	return c.Point()
}

func firstSet(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
