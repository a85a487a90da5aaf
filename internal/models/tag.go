package models

import (
	"strings"
	"time"
)

// Tag is a shared label. NameKey is the case-folded identity; Name keeps the
// casing of the first writer. Questions is the live link reference count.
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:15;not null" json:"name"`
	NameKey   string    `gorm:"size:15;not null;uniqueIndex" json:"-"`
	Questions int       `gorm:"not null;default:0" json:"questions"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TagQuestion links a question to a tag. Link order is insertion order.
type TagQuestion struct {
	ID         uint      `gorm:"primaryKey"`
	TagID      uint      `gorm:"not null;uniqueIndex:idx_tag_question"`
	QuestionID uint      `gorm:"not null;uniqueIndex:idx_tag_question;index"`
	CreatedAt  time.Time `json:"created_at"`
}

// TagKey folds a tag name into its identity key.
func TagKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Tag list filters.
const (
	TagFilterPopular = "popular"
	TagFilterRecent  = "recent"
	TagFilterOldest  = "oldest"
	TagFilterName    = "name"
)
