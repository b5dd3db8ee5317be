package models

import (
	"time"

	"fieldops-dispatch/internal/geo"
)

// UnknownTechnicianName is shown when a team member has neither a linked
// profile nor an invited name.
const UnknownTechnicianName = "Unknown"

// TechnicianRecord is a technician row joined with its user profile.
type TechnicianRecord struct {
	ID          string  `db:"id"`
	UserID      *string `db:"user_id"`
	ProfileName *string `db:"profile_name"`
	InvitedName *string `db:"invited_name"`
	Email       *string `db:"email"`
	Phone       *string `db:"phone"`
	Status      string  `db:"status"`
	Role        string  `db:"role"`
}

// DisplayName resolves profile name, then invited name, then "Unknown".
func (r TechnicianRecord) DisplayName() string {
	if name := trimmed(r.ProfileName); name != "" {
		return name
	}
	if name := trimmed(r.InvitedName); name != "" {
		return name
	}
	return UnknownTechnicianName
}

// Technician is a technician as rendered on the dispatch map.
type Technician struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Email             *string       `json:"email,omitempty"`
	Phone             *string       `json:"phone,omitempty"`
	Status            string        `json:"status"`
	CurrentLocation   *geo.GeoPoint `json:"currentLocation"`
	LocationUpdatedAt *time.Time    `json:"locationUpdatedAt,omitempty"`
}

// Location implements geo.Locatable.
func (t Technician) Location() (geo.GeoPoint, bool) {
	return geo.Optional(t.CurrentLocation)
}

// GpsFix is one reported position for a technician.
type GpsFix struct {
	TechnicianID string    `json:"technicianId" db:"technician_id"`
	Latitude     float64   `json:"latitude" db:"latitude"`
	Longitude    float64   `json:"longitude" db:"longitude"`
	RecordedAt   time.Time `json:"recordedAt" db:"recorded_at"`
}

// Point returns the fix as a GeoPoint.
func (f GpsFix) Point() geo.GeoPoint {
	return geo.GeoPoint{Latitude: f.Latitude, Longitude: f.Longitude}
}
