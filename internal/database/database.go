package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

const pingTimeout = 5 * time.Second

// Connect opens the Postgres pool and verifies it with a ping.
func Connect(ctx context.Context, dbURL string, log zerolog.Logger) (*sqlx.DB, error) {
	log.Info().Int("url_length", len(dbURL)).Msg("connecting to database")

	db, err := sqlx.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	log.Info().Msg("database connection established")
	return db, nil
}

// Migrate creates the dispatch schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS companies (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			default_address TEXT,
			default_latitude DOUBLE PRECISION,
			default_longitude DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			name TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// a team member may exist before the invited user signs up
		`CREATE TABLE IF NOT EXISTS team_members (
			id TEXT PRIMARY KEY,
			company_id TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
			user_id TEXT REFERENCES users(id) ON DELETE SET NULL,
			invited_name TEXT,
			invited_email TEXT,
			phone TEXT,
			role TEXT NOT NULL CHECK(role IN ('owner', 'admin', 'dispatcher', 'technician')),
			status TEXT NOT NULL DEFAULT 'offline' CHECK(status IN ('available', 'busy', 'on_break', 'offline')),
			archived_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS technician_locations (
			id BIGSERIAL PRIMARY KEY,
			company_id TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
			technician_id TEXT NOT NULL REFERENCES team_members(id) ON DELETE CASCADE,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			accuracy DOUBLE PRECISION,
			recorded_at TIMESTAMPTZ NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS customers (
			id TEXT PRIMARY KEY,
			company_id TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS properties (
			id TEXT PRIMARY KEY,
			company_id TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
			customer_id TEXT REFERENCES customers(id) ON DELETE SET NULL,
			address TEXT NOT NULL,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			company_id TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
			customer_id TEXT REFERENCES customers(id) ON DELETE SET NULL,
			property_id TEXT REFERENCES properties(id) ON DELETE SET NULL,
			title TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			revenue NUMERIC(12,2),
			archived_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS appointments (
			id TEXT PRIMARY KEY,
			company_id TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
			job_id TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL DEFAULT 'scheduled',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (end_time >= start_time)
		)`,

		`CREATE TABLE IF NOT EXISTS appointment_technicians (
			appointment_id TEXT NOT NULL REFERENCES appointments(id) ON DELETE CASCADE,
			technician_id TEXT NOT NULL REFERENCES team_members(id) ON DELETE CASCADE,
			PRIMARY KEY (appointment_id, technician_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_team_members_company_role ON team_members(company_id, role) WHERE archived_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_technician_locations_latest ON technician_locations(company_id, technician_id, recorded_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_customers_company_id ON customers(company_id)`,
		`CREATE INDEX IF NOT EXISTS idx_properties_company_id ON properties(company_id)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_company_status ON jobs(company_id, status) WHERE archived_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_company_start ON appointments(company_id, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_job_id ON appointments(job_id)`,
	}

	for i, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}

	return nil
}

// TableCounts returns row counts for the dispatch tables, scoped to one
// company when companyID is set.
func TableCounts(ctx context.Context, db *sqlx.DB, companyID string) (map[string]int, error) {
	tables := []string{"team_members", "technician_locations", "customers", "properties", "jobs", "appointments"}
	counts := make(map[string]int, len(tables))

	for _, table := range tables {
		query := "SELECT COUNT(*) FROM " + table
		args := []any{}
		if companyID != "" {
			query += " WHERE company_id = $1"
			args = append(args, companyID)
		}

		var n int
		if err := db.GetContext(ctx, &n, query, args...); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
