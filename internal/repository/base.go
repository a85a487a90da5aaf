// Package repository provides data access layer implementations for the application.
package repository

import (
	"strings"

	"devflow/internal/database"

	"gorm.io/gorm"
)

func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a case-folded LIKE pattern matching q anywhere.
func containsPattern(q string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(q))) + "%"
}

// textSearch filters title or content by a case-insensitive substring.
func textSearch(db *gorm.DB, table, q string) *gorm.DB {
	if strings.TrimSpace(q) == "" {
		return db
	}
	pattern := containsPattern(q)
	return db.Where(
		"LOWER("+table+".title) LIKE ? ESCAPE '\\' OR LOWER("+table+".content) LIKE ? ESCAPE '\\'",
		pattern, pattern,
	)
}

// Page is an offset window over an ordered result.
type Page struct {
	Offset int
	Limit  int
}

func (p Page) apply(db *gorm.DB) *gorm.DB {
	if p.Offset > 0 {
		db = db.Offset(p.Offset)
	}
	if p.Limit > 0 {
		db = db.Limit(p.Limit)
	}
	return db
}
