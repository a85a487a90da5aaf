// Package bootstrap wires the process-level dependencies shared by the
// commands: database, Redis and tracing.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"devflow/internal/cache"
	"devflow/internal/config"
	"devflow/internal/database"
	"devflow/internal/observability"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// Tracing installs the OpenTelemetry provider configured in cfg.
	Tracing bool
	// ServiceName labels the spans; defaults to "devflow-api".
	ServiceName string
}

// Runtime holds the initialized dependencies.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client

	stopTracing func(context.Context) error
}

// InitRuntime connects to the database (applying the schema policy) and
// Redis. An unreachable Redis leaves Redis nil and caching disabled.
func InitRuntime(cfg *config.Config, opts Options) (*Runtime, error) {
	rt := &Runtime{stopTracing: func(context.Context) error { return nil }}

	if opts.Tracing {
		name := opts.ServiceName
		if name == "" {
			name = "devflow-api"
		}
		stop, err := observability.InitTracing(observability.TracingConfig{
			ServiceName:    name,
			ServiceVersion: "1.0.0",
			Environment:    cfg.Env,
			Enabled:        cfg.TracingEnabled,
			Exporter:       cfg.TracingExporter,
			OTLPEndpoint:   cfg.OTLPEndpoint,
			SamplerRatio:   cfg.TracingSamplerRatio,
		})
		if err != nil {
			return nil, fmt.Errorf("tracing init failed: %w", err)
		}
		rt.stopTracing = stop
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	rt.DB = db

	cache.InitRedis(cfg.RedisURL)
	rt.Redis = cache.GetClient()

	return rt, nil
}

// Close flushes tracing and closes the connections.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	if err := r.stopTracing(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop tracing: %w", err))
	}
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if r.DB != nil {
		if sqlDB, err := r.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close db: %w", err))
			}
		}
	}
	return errors.Join(errs...)
}
