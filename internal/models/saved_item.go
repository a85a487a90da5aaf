package models

import "time"

// SavedItem is a question in an author's collection.
type SavedItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	AuthorID   uint      `gorm:"not null;uniqueIndex:idx_saved_author_question" json:"author_id"`
	QuestionID uint      `gorm:"not null;uniqueIndex:idx_saved_author_question;index" json:"question_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Collection list filters.
const (
	SavedFilterMostRecent   = "mostrecent"
	SavedFilterOldest       = "oldest"
	SavedFilterMostVoted    = "mostvoted"
	SavedFilterMostAnswered = "mostanswered"
)
