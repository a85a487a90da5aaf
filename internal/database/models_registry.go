package database

import (
	"devflow/internal/models"

	"gorm.io/gorm"
)

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Question{},
		&models.Answer{},
		&models.Tag{},
		&models.TagQuestion{},
		&models.Vote{},
		&models.SavedItem{},
		&models.Interaction{},
	}
}

// AutoMigrate creates or updates the tables for PersistentModels. Used by
// tests and the "auto" schema mode.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}
