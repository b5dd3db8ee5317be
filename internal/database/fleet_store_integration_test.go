//go:build postgres_integration

package database

import (
	"os"
	"testing"
	"time"

	"fieldops-dispatch/internal/models"

	"github.com/rs/zerolog"
)

func TestFleetStoreAgainstPostgres(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	ctx := t.Context()
	db, err := Connect(ctx, dsn, zerolog.Nop())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()

	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	now := time.Now()
	if err := SeedDemoCompany(ctx, db, now, zerolog.Nop()); err != nil {
		t.Fatalf("SeedDemoCompany: %v", err)
	}

	store := NewFleetStore(db)

	if _, err := store.DefaultCenter(ctx, "no-such-company"); err != ErrCompanyNotFound {
		t.Fatalf("expected ErrCompanyNotFound, got %v", err)
	}

	techs, err := store.ListTechnicians(ctx, DemoCompanyID)
	if err != nil || len(techs) == 0 {
		t.Fatalf("ListTechnicians: %d, %v", len(techs), err)
	}
	fixes, err := store.LatestLocations(ctx, DemoCompanyID)
	if err != nil {
		t.Fatalf("LatestLocations: %v", err)
	}
	seen := map[string]bool{}
	for _, f := range fixes {
		if seen[f.TechnicianID] {
			t.Fatalf("more than one fix for %s", f.TechnicianID)
		}
		seen[f.TechnicianID] = true
	}

	jobs, err := store.ListUnassignedJobs(ctx, DemoCompanyID, 2)
	if err != nil || len(jobs) > 2 {
		t.Fatalf("ListUnassignedJobs: %d, %v", len(jobs), err)
	}
	if len(jobs) == 0 {
		t.Fatal("seeded backlog returned no jobs")
	}
	for _, j := range jobs {
		if j.Status != models.JobStatusPending {
			t.Fatalf("job %s has status %q", j.ID, j.Status)
		}
	}
}
