package models

import (
	"time"

	"fieldops-dispatch/internal/geo"
)

// MapCenter is the company's configured fallback anchor for the map.
type MapCenter struct {
	Address  string        `json:"address"`
	Location *geo.GeoPoint `json:"location,omitempty"`
}

// FleetSnapshot is the read-only dispatch view of one company for one day.
type FleetSnapshot struct {
	CompanyID      string        `json:"companyId"`
	WindowStart    time.Time     `json:"windowStart"`
	WindowEnd      time.Time     `json:"windowEnd"`
	Technicians    []Technician  `json:"technicians"`
	GPSLocations   []GpsFix      `json:"gpsLocations"`
	Appointments   []Appointment `json:"appointments"`
	UnassignedJobs []Job         `json:"unassignedJobs"`
	DefaultCenter  *MapCenter    `json:"defaultCenter"`
}
