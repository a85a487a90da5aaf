package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"devflow/internal/config"
	"devflow/internal/middleware"

	"gorm.io/gorm"
)

// DB_SCHEMA_MODE values.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaPlan is what ApplySchema will do for a configuration. SQL migrations
// own the constraints the consistency guarantees depend on (the vote, saved
// item and tag key unique indexes); AutoMigrate only fills in columns during
// development.
type SchemaPlan struct {
	Mode           string
	Environment    string
	RunSQL         bool
	RunAutoMigrate bool
}

// SchemaStatus is a SchemaPlan plus the migration ledger state.
type SchemaStatus struct {
	SchemaPlan
	Applied []int
	Pending []Migration
}

// PlanSchema resolves DB_SCHEMA_MODE for the environment. Hybrid (the
// default) runs SQL everywhere and AutoMigrate outside production-like
// environments; auto in a production-like environment needs an explicit
// override.
func PlanSchema(cfg *config.Config) (SchemaPlan, error) {
	plan := SchemaPlan{
		Mode:        strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)),
		Environment: cfg.Env,
	}
	if plan.Mode == "" {
		plan.Mode = SchemaModeHybrid
	}

	prodLike := isProdLikeEnv(cfg.Env)
	switch plan.Mode {
	case SchemaModeSQL:
		plan.RunSQL = true
	case SchemaModeHybrid:
		plan.RunSQL, plan.RunAutoMigrate = true, !prodLike
	case SchemaModeAuto:
		if prodLike && !cfg.DBAutoMigrateAllowDestructive {
			return plan, fmt.Errorf("DB_SCHEMA_MODE=auto in %q needs DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		plan.RunAutoMigrate = true
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", plan.Mode)
	}
	return plan, nil
}

func isProdLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

// ApplySchema brings the database up to date according to the schema plan.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return err
	}

	if plan.RunSQL {
		n, err := NewMigrator(db, nil).Up(ctx)
		if err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
		if n > 0 {
			middleware.Logger.InfoContext(ctx, "schema migrated", slog.Int("applied", n))
		}
	}

	if plan.RunAutoMigrate {
		if plan.Mode == SchemaModeAuto && isProdLikeEnv(plan.Environment) {
			middleware.Logger.WarnContext(ctx, "running AutoMigrate in a production-like environment", slog.String("env", plan.Environment))
		}
		if err := AutoMigrate(db.WithContext(ctx)); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}
	return nil
}

// GetSchemaStatus reports the plan and, when SQL migrations are in play,
// which ones are applied and pending.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{SchemaPlan: plan}
	if !plan.RunSQL {
		return status, nil
	}

	m := NewMigrator(db, nil)
	if status.Applied, err = m.Applied(ctx); err != nil {
		return nil, err
	}
	if status.Pending, err = m.Pending(ctx); err != nil {
		return nil, err
	}
	return status, nil
}
