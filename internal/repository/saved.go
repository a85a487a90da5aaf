package repository

import (
	"context"

	"devflow/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SavedRepository defines the interface for collection membership
type SavedRepository interface {
	Add(ctx context.Context, authorID, questionID uint) (bool, error)
	Remove(ctx context.Context, authorID, questionID uint) (bool, error)
	Exists(ctx context.Context, authorID, questionID uint) (bool, error)
	DeleteByQuestion(ctx context.Context, questionID uint) (int64, error)
}

type savedRepository struct {
	db *gorm.DB
}

// NewSavedRepository creates a new saved item repository
func NewSavedRepository(db *gorm.DB) SavedRepository {
	return &savedRepository{db: db}
}

// Add inserts the membership row, reporting false when it already existed.
func (r *savedRepository) Add(ctx context.Context, authorID, questionID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.SavedItem{AuthorID: authorID, QuestionID: questionID})
	return res.RowsAffected > 0, res.Error
}

// Remove deletes the membership row, reporting whether one was present.
func (r *savedRepository) Remove(ctx context.Context, authorID, questionID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("author_id = ? AND question_id = ?", authorID, questionID).
		Delete(&models.SavedItem{})
	return res.RowsAffected > 0, res.Error
}

func (r *savedRepository) Exists(ctx context.Context, authorID, questionID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.SavedItem{}).
		Where("author_id = ? AND question_id = ?", authorID, questionID).
		Count(&n).Error
	return n > 0, err
}

func (r *savedRepository) DeleteByQuestion(ctx context.Context, questionID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("question_id = ?", questionID).Delete(&models.SavedItem{})
	return res.RowsAffected, res.Error
}
