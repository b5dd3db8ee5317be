package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"fieldops-dispatch/internal/middleware"
	"fieldops-dispatch/internal/services/advisor"
	"fieldops-dispatch/pkg/utils"

	"github.com/rs/zerolog"
)

const maxOptimizeBody = 1 << 20

type ScheduleAdvisor interface {
	Suggest(ctx context.Context, companyID string, req *advisor.Request) (advisor.Suggestion, error)
}

// OptimizeSchedule returns a suggestion for one job. External service
// failures never reach the caller; only a bad payload is an error.
func OptimizeSchedule(adv ScheduleAdvisor, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req advisor.Request
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOptimizeBody)).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid payload: "+err.Error())
			return
		}

		companyID := middleware.CompanyIDFromContext(r.Context())
		suggestion, err := adv.Suggest(r.Context(), companyID, &req)
		if errors.Is(err, advisor.ErrInvalidPayload) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			log.Error().Err(err).Str("company_id", companyID).Msg("schedule optimization failed")
			utils.RespondError(w, http.StatusInternalServerError, "Failed to optimize schedule")
			return
		}

		utils.RespondJSON(w, http.StatusOK, suggestion)
	}
}
