package handlers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"fieldops-dispatch/internal/geo"
	"fieldops-dispatch/internal/middleware"
	"fieldops-dispatch/internal/models"
	"fieldops-dispatch/internal/services/fleet"
	"fieldops-dispatch/pkg/utils"

	"github.com/rs/zerolog"
)

type TechnicianLister interface {
	Technicians(ctx context.Context, companyID string) ([]models.Technician, error)
}

type nearbyTechnician struct {
	models.Technician
	DistanceMiles float64  `json:"distanceMiles"`
	Distance      string   `json:"distance"`
	Band          geo.Band `json:"band"`
}

type nearbyResponse struct {
	Origin      geo.GeoPoint       `json:"origin"`
	RadiusMiles *float64           `json:"radiusMiles"`
	Count       int                `json:"count"`
	Closest     *nearbyTechnician  `json:"closest"`
	VeryClose   []nearbyTechnician `json:"veryClose"`
	Close       []nearbyTechnician `json:"close"`
	Nearby      []nearbyTechnician `json:"nearby"`
	Far         []nearbyTechnician `json:"far"`
}

// GetNearbyTechnicians ranks the company's located technicians around
// ?lat=&lng= (lon/latitude/longitude accepted), grouped by distance band.
// radius (miles) is optional.
func GetNearbyTechnicians(lister TechnicianLister, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		coords, err := coordinatesFromQuery(q.Get)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		origin, ok := coords.Point()
		if !ok {
			utils.RespondError(w, http.StatusBadRequest, "lat and lng are required and must be valid coordinates")
			return
		}

		radius := math.Inf(1)
		var radiusOut *float64
		if raw := strings.TrimSpace(q.Get("radius")); raw != "" {
			radius, err = strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(radius) || radius < 0 {
				utils.RespondError(w, http.StatusBadRequest, "radius must be a non-negative number of miles")
				return
			}
			if !math.IsInf(radius, 1) {
				radiusOut = &radius
			}
		}

		companyID := middleware.CompanyIDFromContext(r.Context())
		technicians, err := lister.Technicians(r.Context(), companyID)
		if errors.Is(err, fleet.ErrNoActiveCompany) {
			utils.RespondErrorCode(w, http.StatusNotFound, CodeNoActiveCompany, "No active company")
			return
		}
		if err != nil {
			log.Error().Err(err).Str("company_id", companyID).Msg("nearby technicians failed")
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load technicians")
			return
		}

		inRange := geo.FindNearby(origin, technicians, radius)
		located := make([]models.Technician, len(inRange))
		for i, ranked := range inRange {
			located[i] = ranked.Entity
		}
		bands := geo.GroupByDistanceBand(origin, located)

		resp := nearbyResponse{
			Origin:      origin,
			RadiusMiles: radiusOut,
			Count:       bands.Len(),
			VeryClose:   toNearby(bands.VeryClose, geo.BandVeryClose),
			Close:       toNearby(bands.Close, geo.BandClose),
			Nearby:      toNearby(bands.Nearby, geo.BandNearby),
			Far:         toNearby(bands.Far, geo.BandFar),
		}
		if closest, ok := geo.FindClosest(origin, located); ok {
			c := nearbyTechnicianOf(closest, geo.BandFor(closest.Miles))
			resp.Closest = &c
		}

		utils.RespondSuccess(w, resp)
	}
}

func coordinatesFromQuery(get func(string) string) (*geo.Coordinates, error) {
	var c geo.Coordinates
	fields := []struct {
		name string
		dst  **float64
	}{
		{"lat", &c.Lat},
		{"latitude", &c.Latitude},
		{"lng", &c.Lng},
		{"lon", &c.Lon},
		{"longitude", &c.Longitude},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(get(f.name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number", f.name)
		}
		*f.dst = &v
	}
	return &c, nil
}

func toNearby(ranked []geo.Ranked[models.Technician], band geo.Band) []nearbyTechnician {
	out := make([]nearbyTechnician, len(ranked))
	for i, r := range ranked {
		out[i] = nearbyTechnicianOf(r, band)
	}
	return out
}

func nearbyTechnicianOf(r geo.Ranked[models.Technician], band geo.Band) nearbyTechnician {
	return nearbyTechnician{
		Technician:    r.Entity,
		DistanceMiles: math.Round(r.Miles*100) / 100,
		Distance:      geo.FormatDistance(r.Miles),
		Band:          band,
	}
}
