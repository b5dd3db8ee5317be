// Package config loads process configuration from the environment.
package config

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// MaxUnassignedJobsLimit bounds the backlog page size however it is configured.
const MaxUnassignedJobsLimit = 200

type Config struct {
	Port      string `env:"PORT, default=8080"`
	Env       string `env:"ENV, default=development"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	JWTSecret string `env:"APP_JWT_SECRET, required"`

	DatabaseURL string `env:"DATABASE_URL, required"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS, default=*"`
	DefaultTimezone    string   `env:"DEFAULT_TIMEZONE, default=America/Chicago"`

	UnassignedJobsLimit int `env:"UNASSIGNED_JOBS_LIMIT, default=50"`

	Routing   RoutingConfig
	Reasoning ReasoningConfig
	Cache     CacheConfig
}

// RoutingConfig configures the distance-matrix provider. An empty APIKey
// means travel times come from the straight-line estimate only.
type RoutingConfig struct {
	APIKey  string        `env:"GOOGLE_MAPS_API_KEY"`
	Timeout time.Duration `env:"ROUTING_TIMEOUT, default=5s"`
	RPS     float64       `env:"ROUTING_RPS, default=10"`
}

// ReasoningConfig configures the optional suggestion refinement step.
type ReasoningConfig struct {
	APIKey  string        `env:"OPENAI_API_KEY"`
	Model   string        `env:"OPENAI_MODEL, default=gpt-4o-mini"`
	Timeout time.Duration `env:"REASONING_TIMEOUT, default=15s"`
}

// CacheConfig configures the travel-time cache. With no RedisAddr an
// in-process cache is used.
type CacheConfig struct {
	RedisAddr string        `env:"REDIS_ADDR"`
	RedisDB   int           `env:"REDIS_DB, default=0"`
	TTL       time.Duration `env:"TRAVEL_CACHE_TTL, default=10m"`
	Size      int           `env:"TRAVEL_CACHE_SIZE, default=1000"`
}

// IsDevelopment reports whether the service runs locally.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads an optional .env file and then the process environment.
// envFileLoaded is false when no .env was found, which is normal in
// deployed environments.
func Load(ctx context.Context) (cfg *Config, envFileLoaded bool, err error) {
	envFileLoaded = godotenv.Load() == nil

	cfg, err = load(ctx, envconfig.OsLookuper())
	return cfg, envFileLoaded, err
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.UnassignedJobsLimit < 1 {
		cfg.UnassignedJobsLimit = 1
	}
	if cfg.UnassignedJobsLimit > MaxUnassignedJobsLimit {
		cfg.UnassignedJobsLimit = MaxUnassignedJobsLimit
	}
	if _, err := time.LoadLocation(cfg.DefaultTimezone); err != nil {
		return nil, fmt.Errorf("config: DEFAULT_TIMEZONE: %w", err)
	}

	return &cfg, nil
}

// MigrateConfig is the subset of settings the migrate tool needs.
type MigrateConfig struct {
	DatabaseURL string `env:"DATABASE_URL, required"`
	LogLevel    string `env:"LOG_LEVEL, default=info"`
}

// LoadMigrate is Load for the migrate tool, which must run without the
// API's secrets.
func LoadMigrate(ctx context.Context) (cfg *MigrateConfig, envFileLoaded bool, err error) {
	envFileLoaded = godotenv.Load() == nil

	cfg = &MigrateConfig{}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: envconfig.OsLookuper(),
	}); err != nil {
		return nil, envFileLoaded, fmt.Errorf("config: %w", err)
	}
	return cfg, envFileLoaded, nil
}
