package repository

import (
	"context"

	"devflow/internal/models"

	"gorm.io/gorm"
)

// InteractionRepository appends and reads the interaction log.
type InteractionRepository interface {
	Create(ctx context.Context, in *models.Interaction) error
	RecentByActor(ctx context.Context, actorID uint, kind models.TargetType, actions []models.InteractionAction, limit int) ([]models.Interaction, error)
}

type interactionRepository struct {
	db *gorm.DB
}

// NewInteractionRepository creates a new interaction repository
func NewInteractionRepository(db *gorm.DB) InteractionRepository {
	return &interactionRepository{db: db}
}

func (r *interactionRepository) Create(ctx context.Context, in *models.Interaction) error {
	return r.db.WithContext(ctx).Create(in).Error
}

// RecentByActor returns the actor's newest interactions on kind whose action
// is one of actions.
func (r *interactionRepository) RecentByActor(ctx context.Context, actorID uint, kind models.TargetType, actions []models.InteractionAction, limit int) ([]models.Interaction, error) {
	var out []models.Interaction
	db := r.db.WithContext(ctx).
		Where("actor_id = ? AND target_type = ?", actorID, kind)
	if len(actions) > 0 {
		db = db.Where("action IN ?", actions)
	}
	err := db.Order("created_at DESC, id DESC").Limit(limit).Find(&out).Error
	return out, err
}
