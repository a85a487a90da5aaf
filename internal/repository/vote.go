package repository

import (
	"context"

	"devflow/internal/models"

	"gorm.io/gorm"
)

// VoteRepository defines the interface for vote row operations
type VoteRepository interface {
	Find(ctx context.Context, authorID, targetID uint, kind models.TargetType) (*models.Vote, error)
	Create(ctx context.Context, v *models.Vote) error
	Delete(ctx context.Context, id uint) error
	UpdateType(ctx context.Context, id uint, voteType models.VoteType) error
	DeleteByTargets(ctx context.Context, kind models.TargetType, targetIDs []uint) (int64, error)
}

type voteRepository struct {
	db *gorm.DB
}

// NewVoteRepository creates a new vote repository
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

// Find returns the author's vote on the target, or nil when there is none.
func (r *voteRepository) Find(ctx context.Context, authorID, targetID uint, kind models.TargetType) (*models.Vote, error) {
	var votes []models.Vote
	err := r.db.WithContext(ctx).
		Where("author_id = ? AND target_id = ? AND target_type = ?", authorID, targetID, kind).
		Limit(1).
		Find(&votes).Error
	if err != nil || len(votes) == 0 {
		return nil, err
	}
	return &votes[0], nil
}

func (r *voteRepository) Create(ctx context.Context, v *models.Vote) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *voteRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Vote{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *voteRepository) UpdateType(ctx context.Context, id uint, voteType models.VoteType) error {
	res := r.db.WithContext(ctx).Model(&models.Vote{}).Where("id = ?", id).Update("vote_type", voteType)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteByTargets removes every vote on the given targets of one kind.
func (r *voteRepository) DeleteByTargets(ctx context.Context, kind models.TargetType, targetIDs []uint) (int64, error) {
	if len(targetIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id IN ?", kind, targetIDs).
		Delete(&models.Vote{})
	return res.RowsAffected, res.Error
}

