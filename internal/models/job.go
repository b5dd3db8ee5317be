package models

import (
	"strings"
	"time"

	"fieldops-dispatch/internal/geo"
)

const (
	JobStatusPending = "pending"
)

type Customer struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Location *geo.GeoPoint `json:"location,omitempty"`
}

type Property struct {
	ID       string        `json:"id"`
	Address  string        `json:"address"`
	Location *geo.GeoPoint `json:"location,omitempty"`
}

// Job is a unit of field work. It carries a customer and/or property,
// either of which may be located.
type Job struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Revenue   *float64  `json:"revenue,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Customer  *Customer `json:"customer,omitempty"`
	Property  *Property `json:"property,omitempty"`
}

// Location prefers the service property over the customer's own address.
func (j Job) Location() (geo.GeoPoint, bool) {
	if j.Property != nil {
		if p, ok := geo.Optional(j.Property.Location); ok {
			return p, true
		}
	}
	if j.Customer != nil {
		if p, ok := geo.Optional(j.Customer.Location); ok {
			return p, true
		}
	}
	return geo.GeoPoint{}, false
}

// Appointment is a scheduled visit for a job.
type Appointment struct {
	ID            string    `json:"id"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
	Status        string    `json:"status"`
	TechnicianIDs []string  `json:"technicianIds"`
	Job           Job       `json:"job"`
}

// Location implements geo.Locatable.
func (a Appointment) Location() (geo.GeoPoint, bool) {
	return a.Job.Location()
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
