package main

import (
	"net/http"
	"time"

	"fieldops-dispatch/internal/config"
	"fieldops-dispatch/internal/handlers"
	"fieldops-dispatch/internal/metrics"
	"fieldops-dispatch/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

type fleetService interface {
	handlers.SnapshotAssembler
	handlers.TechnicianLister
}

type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	db        handlers.Pinger
	assembler fleetService
	advisor   handlers.ScheduleAdvisor
	location  *time.Location
}

// dispatchRoles may read the fleet view and request suggestions.
var dispatchRoles = []string{"owner", "admin", "dispatcher"}

func newRouter(a app) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(a.log))
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", handlers.Health(a.db))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(a.cfg.JWTSecret))
			r.Use(middleware.RequireRole(dispatchRoles...))

			r.Get("/dispatch/snapshot", handlers.GetDispatchSnapshot(a.assembler, a.location, a.log))
			r.Get("/dispatch/nearby", handlers.GetNearbyTechnicians(a.assembler, a.log))
			r.Post("/schedule/optimize", handlers.OptimizeSchedule(a.advisor, a.log))
		})
	})

	return r
}
