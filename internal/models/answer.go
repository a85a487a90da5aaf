package models

import "time"

// Answer is a reply to a Question.
type Answer struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	QuestionID uint      `gorm:"not null;index" json:"question_id"`
	AuthorID   uint      `gorm:"not null;index" json:"author_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Upvotes    int       `gorm:"not null;default:0" json:"upvotes"`
	Downvotes  int       `gorm:"not null;default:0" json:"downvotes"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	ContentHTML string `gorm:"-" json:"content_html,omitempty"`
}

// Answer list filters.
const (
	AnswerFilterLatest  = "latest"
	AnswerFilterOldest  = "oldest"
	AnswerFilterPopular = "popular"
)
