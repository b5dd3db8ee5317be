package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fieldops-dispatch/internal/config"
	"fieldops-dispatch/internal/database"
	"fieldops-dispatch/internal/metrics"
	"fieldops-dispatch/internal/services/advisor"
	"fieldops-dispatch/internal/services/fleet"
	"fieldops-dispatch/internal/services/reasoning"
	"fieldops-dispatch/internal/services/traveltime"
	"fieldops-dispatch/pkg/logger"

	"github.com/rs/zerolog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "dispatch server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, envFileLoaded, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.IsDevelopment()})
	if !envFileLoaded {
		log.Warn().Msg(".env file not found, using environment variables from system")
	}
	metrics.RegisterDefault()

	db, err := database.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	log.Info().Msg("database migrations completed")

	assembler := fleet.NewAssembler(database.NewFleetStore(db), cfg.UnassignedJobsLimit, log)

	estimator, closeEstimator := newEstimator(ctx, cfg, log)
	defer closeEstimator()

	var reasoner advisor.Reasoner
	if cfg.Reasoning.APIKey != "" {
		reasoner = reasoning.NewOpenAIClient(reasoning.Config{APIKey: cfg.Reasoning.APIKey, Model: cfg.Reasoning.Model})
		log.Info().Str("model", cfg.Reasoning.Model).Msg("reasoning service enabled")
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set - suggestions use the deterministic fallback")
	}

	adv := advisor.New(estimator, advisor.Options{
		Reasoner:         reasoner,
		Locator:          assembler,
		ReasoningTimeout: cfg.Reasoning.Timeout,
	}, log)

	// validated by config.Load
	loc, _ := time.LoadLocation(cfg.DefaultTimezone)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: newRouter(app{
			cfg:       cfg,
			log:       log,
			db:        db,
			assembler: assembler,
			advisor:   adv,
			location:  loc,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newEstimator wires the routing provider and its cache. Without an API
// key every estimate is straight-line. The returned func releases the
// Redis connection, if any.
func newEstimator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*traveltime.Estimator, func()) {
	if cfg.Routing.APIKey == "" {
		log.Warn().Msg("GOOGLE_MAPS_API_KEY not set - travel times use the straight-line estimate")
		return traveltime.NewEstimator(log), func() {}
	}

	provider := traveltime.NewDistanceMatrixClient(traveltime.DistanceMatrixConfig{
		APIKey:  cfg.Routing.APIKey,
		Timeout: cfg.Routing.Timeout,
		RPS:     cfg.Routing.RPS,
	})

	var cache traveltime.Cache
	closeCache := func() {}
	if cfg.Cache.RedisAddr != "" {
		client, err := traveltime.ConnectRedis(ctx, traveltime.RedisConfig{Addr: cfg.Cache.RedisAddr, DB: cfg.Cache.RedisDB})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using in-memory travel cache")
		} else {
			cache = traveltime.NewRedisCache(client, cfg.Cache.TTL)
			closeCache = func() { _ = client.Close() }
			log.Info().Str("addr", cfg.Cache.RedisAddr).Msg("redis travel cache connected")
		}
	}
	if cache == nil {
		cache = traveltime.NewMemoryCache(ctx, cfg.Cache.Size, cfg.Cache.TTL)
	}

	log.Info().Float64("rps", cfg.Routing.RPS).Dur("timeout", cfg.Routing.Timeout).Msg("distance matrix enabled")
	return traveltime.NewEstimator(log, traveltime.WithCache(provider, cache, log)), closeCache
}
