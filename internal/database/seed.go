package database

import (
	"context"
	"fmt"
	"time"

	"fieldops-dispatch/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// DemoCompanyID is the fixed id of the seeded demo tenant.
const DemoCompanyID = "demo-company"

type seedSite struct {
	name      string
	address   string
	latitude  float64
	longitude float64
}

var demoSites = []seedSite{
	{"Alvarez Residence", "233 S Wacker Dr, Chicago, IL", 41.8789, -87.6359},
	{"Lakeview Dental", "3145 N Broadway, Chicago, IL", 41.9396, -87.6443},
	{"Hyde Park Bakery", "1525 E 53rd St, Chicago, IL", 41.7994, -87.5880},
	{"Wicker Loft Condos", "1600 N Milwaukee Ave, Chicago, IL", 41.9098, -87.6774},
	{"Pilsen Community Center", "1831 S Racine Ave, Chicago, IL", 41.8566, -87.6567},
	{"Evanston Office Park", "1603 Orrington Ave, Evanston, IL", 42.0472, -87.6815},
}

// SeedDemoCompany inserts a small demo tenant for local development:
// three technicians (one invited, one without any GPS fix), customers,
// two appointments today and pending backlog jobs. It is a no-op when the
// demo company already exists.
func SeedDemoCompany(ctx context.Context, db *sqlx.DB, now time.Time, log zerolog.Logger) error {
	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM companies WHERE id = $1", DemoCompanyID); err != nil {
		return fmt.Errorf("check demo company: %w", err)
	}
	if count > 0 {
		log.Info().Str("company_id", DemoCompanyID).Msg("demo company already seeded, skipping")
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	exec := func(query string, args ...any) {
		if err != nil {
			return
		}
		_, err = tx.ExecContext(ctx, query, args...)
	}

	exec(`INSERT INTO companies (id, name, default_address, default_latitude, default_longitude)
		VALUES ($1, $2, $3, $4, $5)`,
		DemoCompanyID, "Demo Field Services", "233 S Wacker Dr, Chicago, IL", 41.8789, -87.6359)

	userID := uuid.NewString()
	exec(`INSERT INTO users (id, email, name) VALUES ($1, $2, $3)`, userID, "dana@example.com", "Dana Ruiz")

	techs := []string{uuid.NewString(), uuid.NewString(), uuid.NewString()}
	exec(`INSERT INTO team_members (id, company_id, user_id, phone, role, status) VALUES ($1, $2, $3, $4, 'technician', 'available')`,
		techs[0], DemoCompanyID, userID, "+1-312-555-0101")
	exec(`INSERT INTO team_members (id, company_id, invited_name, invited_email, role, status) VALUES ($1, $2, $3, $4, 'technician', 'busy')`,
		techs[1], DemoCompanyID, "Sam (invited)", "sam@example.com")
	exec(`INSERT INTO team_members (id, company_id, role, status) VALUES ($1, $2, 'technician', 'offline')`,
		techs[2], DemoCompanyID)

	// an older and a newer fix for the first technician; only the newer one is current
	exec(`INSERT INTO technician_locations (company_id, technician_id, latitude, longitude, recorded_at) VALUES ($1, $2, $3, $4, $5)`,
		DemoCompanyID, techs[0], 41.8500, -87.6500, now.Add(-2*time.Hour))
	exec(`INSERT INTO technician_locations (company_id, technician_id, latitude, longitude, recorded_at) VALUES ($1, $2, $3, $4, $5)`,
		DemoCompanyID, techs[0], 41.8827, -87.6233, now.Add(-5*time.Minute))
	exec(`INSERT INTO technician_locations (company_id, technician_id, latitude, longitude, recorded_at) VALUES ($1, $2, $3, $4, $5)`,
		DemoCompanyID, techs[1], 41.9214, -87.6513, now.Add(-12*time.Minute))

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for i, site := range demoSites {
		customerID, propertyID, jobID := uuid.NewString(), uuid.NewString(), uuid.NewString()
		exec(`INSERT INTO customers (id, company_id, name, latitude, longitude) VALUES ($1, $2, $3, $4, $5)`,
			customerID, DemoCompanyID, site.name, site.latitude, site.longitude)
		exec(`INSERT INTO properties (id, company_id, customer_id, address, latitude, longitude) VALUES ($1, $2, $3, $4, $5, $6)`,
			propertyID, DemoCompanyID, customerID, site.address, site.latitude, site.longitude)
		exec(`INSERT INTO jobs (id, company_id, customer_id, property_id, title, status, revenue) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			jobID, DemoCompanyID, customerID, propertyID, "HVAC service visit", models.JobStatusPending, 180+float64(i)*35)

		// first two sites get appointments today, the rest stay in the backlog
		if i < 2 {
			appointmentID := uuid.NewString()
			start := day.Add(time.Duration(9+2*i) * time.Hour)
			exec(`UPDATE jobs SET status = 'scheduled' WHERE id = $1`, jobID)
			exec(`INSERT INTO appointments (id, company_id, job_id, start_time, end_time, status) VALUES ($1, $2, $3, $4, $5, 'scheduled')`,
				appointmentID, DemoCompanyID, jobID, start, start.Add(90*time.Minute))
			exec(`INSERT INTO appointment_technicians (appointment_id, technician_id) VALUES ($1, $2)`,
				appointmentID, techs[i])
		}
	}

	if err != nil {
		return fmt.Errorf("seed demo company: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}

	log.Info().Str("company_id", DemoCompanyID).Int("technicians", len(techs)).Int("sites", len(demoSites)).Msg("demo company seeded")
	return nil
}
