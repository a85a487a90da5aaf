package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"devflow/internal/middleware"

	"gorm.io/gorm"
)

// appliedMigration is one row of the schema_migrations ledger.
type appliedMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (appliedMigration) TableName() string {
	return "schema_migrations"
}

// Migrator applies SQL migrations in version order and records each one in
// schema_migrations in the same transaction as its script.
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

// NewMigrator binds a Migrator to db. A nil set uses the embedded migrations.
func NewMigrator(db *gorm.DB, set []Migration) *Migrator {
	if set == nil {
		set = migrations
	}
	return &Migrator{db: db, migrations: set}
}

func (m *Migrator) ensureLedger(ctx context.Context) error {
	db := m.db.WithContext(ctx)
	if db.Migrator().HasTable(&appliedMigration{}) {
		return nil
	}
	if err := db.Migrator().CreateTable(&appliedMigration{}); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

// Applied lists recorded versions in ascending order. A database that was
// never migrated has none.
func (m *Migrator) Applied(ctx context.Context) ([]int, error) {
	db := m.db.WithContext(ctx)
	if !db.Migrator().HasTable(&appliedMigration{}) {
		return []int{}, nil
	}
	var versions []int
	if err := db.Model(&appliedMigration{}).Order("version ASC").Pluck("version", &versions).Error; err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	return versions, nil
}

// Pending returns the migrations not yet recorded. It fails when the ledger
// holds versions this binary does not know, which means the database was
// migrated by a newer build.
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateAppliedVersions(applied, m.migrations); err != nil {
		return nil, err
	}

	var pending []Migration
	for _, mig := range m.migrations {
		if !slices.Contains(applied, mig.Version) {
			pending = append(pending, mig)
		}
	}
	return pending, nil
}

// Up applies every pending migration and returns how many ran. A failing
// script stops the run and leaves earlier migrations applied.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.ensureLedger(ctx); err != nil {
		return 0, err
	}
	pending, err := m.Pending(ctx)
	if err != nil {
		return 0, err
	}

	for i, mig := range pending {
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mig.UpScript).Error; err != nil {
				return fmt.Errorf("apply %s: %w", mig.String(), err)
			}
			return tx.Create(&appliedMigration{Version: mig.Version, Name: mig.Name}).Error
		})
		if err != nil {
			return i, err
		}
		middleware.Logger.InfoContext(ctx, "migration applied", slog.String("migration", mig.String()))
	}
	return len(pending), nil
}

// Down reverts version. Only the most recently applied migration may be
// reverted so the ledger never has holes.
func (m *Migrator) Down(ctx context.Context, version int) error {
	var mig *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == version {
			mig = &m.migrations[i]
		}
	}
	if mig == nil {
		return fmt.Errorf("migration %06d is not registered", version)
	}

	applied, err := m.Applied(ctx)
	if err != nil {
		return err
	}
	switch {
	case !slices.Contains(applied, version):
		return fmt.Errorf("migration %s has not been applied", mig.String())
	case applied[len(applied)-1] != version:
		return fmt.Errorf("migration %s is not the latest applied (%06d)", mig.String(), applied[len(applied)-1])
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(mig.DownScript).Error; err != nil {
			return fmt.Errorf("revert %s: %w", mig.String(), err)
		}
		return tx.Where("version = ?", version).Delete(&appliedMigration{}).Error
	})
	if err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "migration reverted", slog.String("migration", mig.String()))
	return nil
}

func validateAppliedVersions(applied []int, registered []Migration) error {
	var unknown []string
	for _, version := range applied {
		known := slices.ContainsFunc(registered, func(m Migration) bool { return m.Version == version })
		if !known {
			unknown = append(unknown, fmt.Sprintf("%06d", version))
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return fmt.Errorf("schema_migrations has versions unknown to this build: %s", strings.Join(unknown, ", "))
}
