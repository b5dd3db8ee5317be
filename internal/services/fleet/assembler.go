// Package fleet assembles the read-only dispatch view of one company:
// technicians with their latest position, the day's appointments, the
// unassigned backlog and the default map center.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fieldops-dispatch/internal/database"
	"fieldops-dispatch/internal/geo"
	"fieldops-dispatch/internal/metrics"
	"fieldops-dispatch/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrNoActiveCompany means the caller has no company to show. Clients
// route to onboarding instead of rendering an empty map.
var ErrNoActiveCompany = errors.New("no active company")

// Repository is the company-scoped read model the assembler needs.
// *database.FleetStore implements it.
type Repository interface {
	DefaultCenter(ctx context.Context, companyID string) (*models.MapCenter, error)
	ListTechnicians(ctx context.Context, companyID string) ([]models.TechnicianRecord, error)
	LatestLocations(ctx context.Context, companyID string) ([]models.GpsFix, error)
	LatestLocation(ctx context.Context, companyID, technicianID string) (*models.GpsFix, error)
	ListAppointments(ctx context.Context, companyID string, from, to time.Time) ([]models.Appointment, error)
	ListUnassignedJobs(ctx context.Context, companyID string, limit int) ([]models.Job, error)
}

type Assembler struct {
	repo         Repository
	backlogLimit int
	log          zerolog.Logger
}

func NewAssembler(repo Repository, backlogLimit int, log zerolog.Logger) *Assembler {
	if backlogLimit < 1 {
		backlogLimit = 1
	}
	return &Assembler{
		repo:         repo,
		backlogLimit: backlogLimit,
		log:          log.With().Str("component", "fleet").Logger(),
	}
}

// Assemble builds the snapshot for companyID and window. Every sub-fetch
// uses the same company id; missing data yields empty lists, never an error.
func (a *Assembler) Assemble(ctx context.Context, companyID string, window DayWindow) (*models.FleetSnapshot, error) {
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return nil, ErrNoActiveCompany
	}

	center, err := a.repo.DefaultCenter(ctx, companyID)
	if errors.Is(err, database.ErrCompanyNotFound) {
		return nil, ErrNoActiveCompany
	}
	if err != nil {
		return nil, fmt.Errorf("load company: %w", err)
	}

	var (
		records      []models.TechnicianRecord
		fixes        []models.GpsFix
		appointments []models.Appointment
		backlog      []models.Job
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		records, err = a.repo.ListTechnicians(gctx, companyID)
		return err
	})
	g.Go(func() (err error) {
		fixes, err = a.repo.LatestLocations(gctx, companyID)
		return err
	})
	g.Go(func() (err error) {
		appointments, err = a.repo.ListAppointments(gctx, companyID, window.From, window.To)
		return err
	})
	g.Go(func() (err error) {
		backlog, err = a.repo.ListUnassignedJobs(gctx, companyID, a.backlogLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("assemble snapshot: %w", err)
	}

	technicians, gps := joinLocations(records, fixes)
	if appointments == nil {
		appointments = []models.Appointment{}
	}
	if backlog == nil {
		backlog = []models.Job{}
	}
	if len(backlog) > a.backlogLimit {
		backlog = backlog[:a.backlogLimit]
	}

	metrics.SnapshotSize.WithLabelValues("technicians").Observe(float64(len(technicians)))
	metrics.SnapshotSize.WithLabelValues("appointments").Observe(float64(len(appointments)))
	metrics.SnapshotSize.WithLabelValues("unassigned_jobs").Observe(float64(len(backlog)))

	a.log.Debug().
		Str("company_id", companyID).
		Int("technicians", len(technicians)).
		Int("appointments", len(appointments)).
		Int("unassigned_jobs", len(backlog)).
		Msg("snapshot assembled")

	return &models.FleetSnapshot{
		CompanyID:      companyID,
		WindowStart:    window.From,
		WindowEnd:      window.To,
		Technicians:    technicians,
		GPSLocations:   gps,
		Appointments:   appointments,
		UnassignedJobs: backlog,
		DefaultCenter:  center,
	}, nil
}

// Technicians returns the company's technicians with their latest
// positions, without the rest of the snapshot.
func (a *Assembler) Technicians(ctx context.Context, companyID string) ([]models.Technician, error) {
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return nil, ErrNoActiveCompany
	}

	var (
		records []models.TechnicianRecord
		fixes   []models.GpsFix
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		records, err = a.repo.ListTechnicians(gctx, companyID)
		return err
	})
	g.Go(func() (err error) {
		fixes, err = a.repo.LatestLocations(gctx, companyID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load technicians: %w", err)
	}

	technicians, _ := joinLocations(records, fixes)
	return technicians, nil
}

// TechnicianLocation returns a technician's latest known position within
// the company. ok is false when the technician never reported one.
func (a *Assembler) TechnicianLocation(ctx context.Context, companyID, technicianID string) (geo.GeoPoint, bool, error) {
	if strings.TrimSpace(companyID) == "" || strings.TrimSpace(technicianID) == "" {
		return geo.GeoPoint{}, false, nil
	}

	fix, err := a.repo.LatestLocation(ctx, companyID, technicianID)
	if err != nil {
		return geo.GeoPoint{}, false, fmt.Errorf("load technician location: %w", err)
	}
	if fix == nil {
		return geo.GeoPoint{}, false, nil
	}

	p := fix.Point()
	return p, geo.ValidPoint(p), nil
}

// joinLocations attaches the newest fix to each technician. Fixes for
// technicians not in records are dropped; duplicates resolve latest-wins.
func joinLocations(records []models.TechnicianRecord, fixes []models.GpsFix) ([]models.Technician, []models.GpsFix) {
	latest := make(map[string]models.GpsFix, len(fixes))
	for _, f := range fixes {
		if cur, ok := latest[f.TechnicianID]; !ok || f.RecordedAt.After(cur.RecordedAt) {
			latest[f.TechnicianID] = f
		}
	}

	technicians := make([]models.Technician, 0, len(records))
	gps := make([]models.GpsFix, 0, len(latest))
	for _, r := range records {
		t := models.Technician{
			ID:     r.ID,
			Name:   r.DisplayName(),
			Email:  r.Email,
			Phone:  r.Phone,
			Status: r.Status,
		}
		if f, ok := latest[r.ID]; ok && geo.ValidPoint(f.Point()) {
			p := f.Point()
			recordedAt := f.RecordedAt
			t.CurrentLocation = &p
			t.LocationUpdatedAt = &recordedAt
			gps = append(gps, f)
		}
		technicians = append(technicians, t)
	}
	return technicians, gps
}
