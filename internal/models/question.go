// Package models contains data structures for the application's domain models.
package models

import "time"

// Question is a post asking the community for an answer. Answers, Views,
// Upvotes and Downvotes are denormalized counters maintained by the services.
type Question struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:130;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Answers   int       `gorm:"not null;default:0" json:"answers"`
	Views     int       `gorm:"not null;default:0;index" json:"views"`
	Upvotes   int       `gorm:"not null;default:0;index" json:"upvotes"`
	Downvotes int       `gorm:"not null;default:0" json:"downvotes"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Tags is loaded from tag_questions in link order.
	Tags []Tag `gorm:"-" json:"tags"`
	// ContentHTML is the rendered markdown body (computed).
	ContentHTML string `gorm:"-" json:"content_html,omitempty"`
}

// TagIDs returns the ids of the loaded tags in order.
func (q *Question) TagIDs() []uint {
	ids := make([]uint, 0, len(q.Tags))
	for _, t := range q.Tags {
		ids = append(ids, t.ID)
	}
	return ids
}

// Question list filters.
const (
	QuestionFilterNewest      = "newest"
	QuestionFilterUnanswered  = "unanswered"
	QuestionFilterPopular     = "popular"
	QuestionFilterRecommended = "recommended"
)
