package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"fieldops-dispatch/internal/middleware"
	"fieldops-dispatch/internal/models"
	"fieldops-dispatch/internal/services/fleet"
	"fieldops-dispatch/pkg/utils"

	"github.com/rs/zerolog"
)

// CodeNoActiveCompany tells clients to show onboarding instead of a map.
const CodeNoActiveCompany = "no_active_company"

type SnapshotAssembler interface {
	Assemble(ctx context.Context, companyID string, window fleet.DayWindow) (*models.FleetSnapshot, error)
}

// GetDispatchSnapshot returns the fleet snapshot for the caller's company
// and one calendar day (?date=YYYY-MM-DD&tz=IANA, both optional).
func GetDispatchSnapshot(assembler SnapshotAssembler, defaultLoc *time.Location, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		window, err := fleet.ParseDay(q.Get("date"), q.Get("tz"), defaultLoc, time.Now())
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		companyID := middleware.CompanyIDFromContext(r.Context())
		snapshot, err := assembler.Assemble(r.Context(), companyID, window)
		if errors.Is(err, fleet.ErrNoActiveCompany) {
			utils.RespondErrorCode(w, http.StatusNotFound, CodeNoActiveCompany, "No active company. Sign in or finish onboarding to see the dispatch map.")
			return
		}
		if err != nil {
			log.Error().Err(err).Str("company_id", companyID).Msg("dispatch snapshot failed")
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load dispatch snapshot")
			return
		}

		utils.RespondJSON(w, http.StatusOK, snapshot)
	}
}
