package repository

import (
	"context"

	"devflow/internal/models"

	"gorm.io/gorm"
)

// AnswerRepository defines the interface for answer data operations
type AnswerRepository interface {
	Create(ctx context.Context, a *models.Answer) error
	GetByID(ctx context.Context, id uint) (*models.Answer, error)
	GetForUpdate(ctx context.Context, id uint) (*models.Answer, error)
	ListByQuestion(ctx context.Context, questionID uint, filter string, page Page) ([]models.Answer, int64, error)
	IDsByQuestion(ctx context.Context, questionID uint) ([]uint, error)
	DeleteByQuestion(ctx context.Context, questionID uint) (int64, error)
	Delete(ctx context.Context, id uint) (int64, error)
	AdjustVotes(ctx context.Context, id uint, upDelta, downDelta int) error
	VoteCounts(ctx context.Context, id uint) (int, int, error)
}

type answerRepository struct {
	db *gorm.DB
}

// NewAnswerRepository creates a new answer repository
func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) Create(ctx context.Context, a *models.Answer) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *answerRepository) GetByID(ctx context.Context, id uint) (*models.Answer, error) {
	var a models.Answer
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *answerRepository) GetForUpdate(ctx context.Context, id uint) (*models.Answer, error) {
	var a models.Answer
	if err := lockForUpdate(r.db.WithContext(ctx)).First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *answerRepository) ListByQuestion(ctx context.Context, questionID uint, filter string, page Page) ([]models.Answer, int64, error) {
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.Answer{}).Where("question_id = ?", questionID)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at DESC, id DESC"
	switch filter {
	case models.AnswerFilterOldest:
		order = "created_at ASC, id ASC"
	case models.AnswerFilterPopular:
		order = "upvotes DESC, created_at DESC, id DESC"
	}

	var out []models.Answer
	if err := page.apply(base().Order(order)).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *answerRepository) IDsByQuestion(ctx context.Context, questionID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Answer{}).
		Where("question_id = ?", questionID).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *answerRepository) DeleteByQuestion(ctx context.Context, questionID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("question_id = ?", questionID).Delete(&models.Answer{})
	return res.RowsAffected, res.Error
}

func (r *answerRepository) Delete(ctx context.Context, id uint) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.Answer{}, id)
	return res.RowsAffected, res.Error
}

func (r *answerRepository) AdjustVotes(ctx context.Context, id uint, upDelta, downDelta int) error {
	if err := adjustCounter(r.db.WithContext(ctx), &models.Answer{}, id, "upvotes", upDelta); err != nil {
		return err
	}
	return adjustCounter(r.db.WithContext(ctx), &models.Answer{}, id, "downvotes", downDelta)
}

func (r *answerRepository) VoteCounts(ctx context.Context, id uint) (int, int, error) {
	var a models.Answer
	if err := r.db.WithContext(ctx).Select("id", "upvotes", "downvotes").First(&a, id).Error; err != nil {
		return 0, 0, err
	}
	return a.Upvotes, a.Downvotes, nil
}
