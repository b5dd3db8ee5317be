package database

import (
	"testing"
	"time"
)

func f64(v float64) *float64 { return &v }
func s(v string) *string     { return &v }

func TestJobRow_ToJob_EmbedsCustomerAndProperty(t *testing.T) {
	created := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	row := jobRow{
		JobID:             "job-1",
		JobTitle:          "Furnace tune-up",
		JobStatus:         "pending",
		JobRevenue:        f64(240),
		JobCreatedAt:      created,
		CustomerID:        s("cust-1"),
		CustomerName:      s("Alvarez"),
		CustomerLatitude:  f64(41.87),
		CustomerLongitude: f64(-87.63),
		PropertyID:        s("prop-1"),
		PropertyAddress:   s("233 S Wacker Dr"),
	}

	job := row.toJob()

	if job.ID != "job-1" || job.Title != "Furnace tune-up" || *job.Revenue != 240 || !job.CreatedAt.Equal(created) {
		t.Fatalf("unexpected job fields: %+v", job)
	}
	if job.Customer == nil || job.Customer.Name != "Alvarez" || job.Customer.Location == nil {
		t.Fatalf("expected located customer, got %+v", job.Customer)
	}
	if job.Property == nil || job.Property.Address != "233 S Wacker Dr" {
		t.Fatalf("expected property, got %+v", job.Property)
	}
	if job.Property.Location != nil {
		t.Fatal("property without coordinates must not get a fabricated location")
	}
	p, ok := job.Location()
	if !ok || p.Latitude != 41.87 {
		t.Fatalf("expected customer location fallback, got %v %v", p, ok)
	}
}

func TestJobRow_ToJob_NoCustomerOrProperty(t *testing.T) {
	job := jobRow{JobID: "job-2", JobStatus: "pending"}.toJob()
	if job.Customer != nil || job.Property != nil {
		t.Fatalf("expected no embedded records, got %+v", job)
	}
}

func TestJoinAssignments(t *testing.T) {
	rows := []appointmentRow{
		{ID: "a1", Status: "scheduled", jobRow: jobRow{JobID: "j1"}},
		{ID: "a2", Status: "scheduled", jobRow: jobRow{JobID: "j2"}},
	}
	assignments := []assignmentRow{
		{AppointmentID: "a1", TechnicianID: "t1"},
		{AppointmentID: "a1", TechnicianID: "t2"},
	}

	got := joinAssignments(rows, assignments)

	if len(got) != 2 {
		t.Fatalf("expected 2 appointments, got %d", len(got))
	}
	if len(got[0].TechnicianIDs) != 2 || got[0].TechnicianIDs[1] != "t2" {
		t.Fatalf("unexpected technicians for a1: %v", got[0].TechnicianIDs)
	}
	if got[1].TechnicianIDs == nil || len(got[1].TechnicianIDs) != 0 {
		t.Fatalf("a2 should have an empty, non-nil technician list: %v", got[1].TechnicianIDs)
	}
	if got[1].Job.ID != "j2" {
		t.Fatalf("job not embedded: %+v", got[1].Job)
	}
}

func TestCompanyRow_Center(t *testing.T) {
	if c := (companyRow{ID: "c"}).center(); c != nil {
		t.Fatalf("expected nil center, got %+v", c)
	}

	c := companyRow{ID: "c", DefaultAddress: s("HQ")}.center()
	if c == nil || c.Address != "HQ" || c.Location != nil {
		t.Fatalf("unexpected center %+v", c)
	}

	c = companyRow{ID: "c", DefaultLatitude: f64(41.9), DefaultLongitude: f64(-87.6)}.center()
	if c == nil || c.Location == nil || c.Location.Latitude != 41.9 {
		t.Fatalf("unexpected center %+v", c)
	}
}

func TestPointOf_RejectsPartialAndInvalid(t *testing.T) {
	if pointOf(f64(1), nil) != nil || pointOf(nil, f64(1)) != nil {
		t.Fatal("partial coordinates must not resolve")
	}
	if pointOf(f64(95), f64(0)) != nil {
		t.Fatal("out-of-range latitude must not resolve")
	}
	if p := pointOf(f64(10), f64(20)); p == nil || p.Longitude != 20 {
		t.Fatalf("unexpected point %v", p)
	}
}
