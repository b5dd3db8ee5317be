package handlers

import (
	"context"
	"net/http"
	"time"

	"fieldops-dispatch/pkg/utils"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health reports 200 when the database answers within two seconds.
func Health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			utils.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
