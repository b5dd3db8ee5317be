package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fieldops-dispatch/internal/geo"
	"fieldops-dispatch/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrCompanyNotFound is returned when the company row does not exist.
var ErrCompanyNotFound = errors.New("company not found")

// FleetStore reads dispatch data. Every query is filtered by company_id.
type FleetStore struct {
	db *sqlx.DB
}

func NewFleetStore(db *sqlx.DB) *FleetStore {
	return &FleetStore{db: db}
}

type companyRow struct {
	ID               string   `db:"id"`
	DefaultAddress   *string  `db:"default_address"`
	DefaultLatitude  *float64 `db:"default_latitude"`
	DefaultLongitude *float64 `db:"default_longitude"`
}

// DefaultCenter returns the company's map center, or nil when none is
// configured. A missing company yields ErrCompanyNotFound.
func (s *FleetStore) DefaultCenter(ctx context.Context, companyID string) (*models.MapCenter, error) {
	var row companyRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, default_address, default_latitude, default_longitude
		FROM companies
		WHERE id = $1
	`, companyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCompanyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query company: %w", err)
	}

	return row.center(), nil
}

func (r companyRow) center() *models.MapCenter {
	address := ""
	if r.DefaultAddress != nil {
		address = *r.DefaultAddress
	}
	location := pointOf(r.DefaultLatitude, r.DefaultLongitude)
	if address == "" && location == nil {
		return nil
	}
	return &models.MapCenter{Address: address, Location: location}
}

// ListTechnicians returns non-archived team members with the technician role.
func (s *FleetStore) ListTechnicians(ctx context.Context, companyID string) ([]models.TechnicianRecord, error) {
	records := []models.TechnicianRecord{}
	err := s.db.SelectContext(ctx, &records, `
		SELECT
			tm.id,
			tm.user_id,
			u.name AS profile_name,
			tm.invited_name,
			COALESCE(u.email, tm.invited_email) AS email,
			tm.phone,
			tm.status,
			tm.role
		FROM team_members tm
		LEFT JOIN users u ON u.id = tm.user_id
		WHERE tm.company_id = $1
			AND tm.role = 'technician'
			AND tm.archived_at IS NULL
		ORDER BY COALESCE(u.name, tm.invited_name, ''), tm.id
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("query technicians: %w", err)
	}
	return records, nil
}

// LatestLocations returns the most recent fix per technician.
func (s *FleetStore) LatestLocations(ctx context.Context, companyID string) ([]models.GpsFix, error) {
	fixes := []models.GpsFix{}
	err := s.db.SelectContext(ctx, &fixes, `
		SELECT DISTINCT ON (tl.technician_id)
			tl.technician_id, tl.latitude, tl.longitude, tl.recorded_at
		FROM technician_locations tl
		WHERE tl.company_id = $1
		ORDER BY tl.technician_id, tl.recorded_at DESC
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("query latest locations: %w", err)
	}
	return fixes, nil
}

// LatestLocation returns one technician's most recent fix, or nil if the
// technician has never reported a position.
func (s *FleetStore) LatestLocation(ctx context.Context, companyID, technicianID string) (*models.GpsFix, error) {
	var fix models.GpsFix
	err := s.db.GetContext(ctx, &fix, `
		SELECT technician_id, latitude, longitude, recorded_at
		FROM technician_locations
		WHERE company_id = $1 AND technician_id = $2
		ORDER BY recorded_at DESC
		LIMIT 1
	`, companyID, technicianID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query technician location: %w", err)
	}
	return &fix, nil
}

const jobColumns = `
	j.id AS job_id,
	j.title AS job_title,
	j.status AS job_status,
	j.revenue AS job_revenue,
	j.created_at AS job_created_at,
	c.id AS customer_id,
	c.name AS customer_name,
	c.latitude AS customer_latitude,
	c.longitude AS customer_longitude,
	p.id AS property_id,
	p.address AS property_address,
	p.latitude AS property_latitude,
	p.longitude AS property_longitude`

const jobJoins = `
	LEFT JOIN customers c ON c.id = j.customer_id AND c.company_id = j.company_id
	LEFT JOIN properties p ON p.id = j.property_id AND p.company_id = j.company_id`

type jobRow struct {
	JobID             string    `db:"job_id"`
	JobTitle          string    `db:"job_title"`
	JobStatus         string    `db:"job_status"`
	JobRevenue        *float64  `db:"job_revenue"`
	JobCreatedAt      time.Time `db:"job_created_at"`
	CustomerID        *string   `db:"customer_id"`
	CustomerName      *string   `db:"customer_name"`
	CustomerLatitude  *float64  `db:"customer_latitude"`
	CustomerLongitude *float64  `db:"customer_longitude"`
	PropertyID        *string   `db:"property_id"`
	PropertyAddress   *string   `db:"property_address"`
	PropertyLatitude  *float64  `db:"property_latitude"`
	PropertyLongitude *float64  `db:"property_longitude"`
}

func (r jobRow) toJob() models.Job {
	job := models.Job{
		ID:        r.JobID,
		Title:     r.JobTitle,
		Status:    r.JobStatus,
		Revenue:   r.JobRevenue,
		CreatedAt: r.JobCreatedAt,
	}
	if r.CustomerID != nil {
		job.Customer = &models.Customer{
			ID:       *r.CustomerID,
			Name:     deref(r.CustomerName),
			Location: pointOf(r.CustomerLatitude, r.CustomerLongitude),
		}
	}
	if r.PropertyID != nil {
		job.Property = &models.Property{
			ID:       *r.PropertyID,
			Address:  deref(r.PropertyAddress),
			Location: pointOf(r.PropertyLatitude, r.PropertyLongitude),
		}
	}
	return job
}

type appointmentRow struct {
	ID        string    `db:"id"`
	StartTime time.Time `db:"start_time"`
	EndTime   time.Time `db:"end_time"`
	Status    string    `db:"status"`
	jobRow
}

type assignmentRow struct {
	AppointmentID string `db:"appointment_id"`
	TechnicianID  string `db:"technician_id"`
}

// ListAppointments returns appointments starting in [from, to) with their
// job, customer, property and assigned technicians.
func (s *FleetStore) ListAppointments(ctx context.Context, companyID string, from, to time.Time) ([]models.Appointment, error) {
	rows := []appointmentRow{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT a.id, a.start_time, a.end_time, a.status,`+jobColumns+`
		FROM appointments a
		JOIN jobs j ON j.id = a.job_id AND j.company_id = a.company_id`+jobJoins+`
		WHERE a.company_id = $1
			AND a.start_time >= $2
			AND a.start_time < $3
		ORDER BY a.start_time, a.id
	`, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}

	appointments := make([]models.Appointment, 0, len(rows))
	if len(rows) == 0 {
		return appointments, nil
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}

	assignments := []assignmentRow{}
	err = s.db.SelectContext(ctx, &assignments, `
		SELECT at.appointment_id, at.technician_id
		FROM appointment_technicians at
		JOIN appointments a ON a.id = at.appointment_id
		WHERE a.company_id = $1 AND at.appointment_id = ANY($2)
		ORDER BY at.appointment_id, at.technician_id
	`, companyID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query appointment technicians: %w", err)
	}

	return joinAssignments(rows, assignments), nil
}

func joinAssignments(rows []appointmentRow, assignments []assignmentRow) []models.Appointment {
	byAppointment := make(map[string][]string, len(rows))
	for _, a := range assignments {
		byAppointment[a.AppointmentID] = append(byAppointment[a.AppointmentID], a.TechnicianID)
	}

	appointments := make([]models.Appointment, 0, len(rows))
	for _, r := range rows {
		techIDs := byAppointment[r.ID]
		if techIDs == nil {
			techIDs = []string{}
		}
		appointments = append(appointments, models.Appointment{
			ID:            r.ID,
			StartTime:     r.StartTime,
			EndTime:       r.EndTime,
			Status:        r.Status,
			TechnicianIDs: techIDs,
			Job:           r.jobRow.toJob(),
		})
	}
	return appointments
}

// ListUnassignedJobs returns pending, non-archived jobs that have no
// appointment, newest first, at most limit rows.
func (s *FleetStore) ListUnassignedJobs(ctx context.Context, companyID string, limit int) ([]models.Job, error) {
	rows := []jobRow{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT`+jobColumns+`
		FROM jobs j`+jobJoins+`
		WHERE j.company_id = $1
			AND j.status = $2
			AND j.archived_at IS NULL
			AND NOT EXISTS (
				SELECT 1 FROM appointments a
				WHERE a.job_id = j.id AND a.company_id = j.company_id
			)
		ORDER BY j.created_at DESC, j.id
		LIMIT $3
	`, companyID, models.JobStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("query unassigned jobs: %w", err)
	}

	jobs := make([]models.Job, 0, len(rows))
	for _, r := range rows {
		jobs = append(jobs, r.toJob())
	}
	return jobs, nil
}

func pointOf(lat, lng *float64) *geo.GeoPoint {
	if lat == nil || lng == nil {
		return nil
	}
	p := geo.GeoPoint{Latitude: *lat, Longitude: *lng}
	if !geo.ValidPoint(p) {
		return nil
	}
	return &p
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
