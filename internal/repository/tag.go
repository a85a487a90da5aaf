package repository

import (
	"context"
	"strings"
	"time"

	"devflow/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TagQuery selects a page of tags.
type TagQuery struct {
	Filter string
	Search string
	Page
}

// TagRepository defines the interface for tag data operations
type TagRepository interface {
	Resolve(ctx context.Context, name string) (*models.Tag, bool, error)
	Release(ctx context.Context, ids []uint) error
	Link(ctx context.Context, questionID uint, tagIDs []uint) error
	Unlink(ctx context.Context, questionID uint, tagIDs []uint) error
	UnlinkAll(ctx context.Context, questionID uint) ([]uint, error)
	ListByQuestion(ctx context.Context, questionID uint) ([]models.Tag, error)
	TagIDsForQuestions(ctx context.Context, questionIDs []uint) ([]uint, error)
	GetByID(ctx context.Context, id uint) (*models.Tag, error)
	List(ctx context.Context, q TagQuery) ([]models.Tag, int64, error)
	PruneOrphans(ctx context.Context) (int64, error)
}

type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository creates a new tag repository
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

// Resolve finds the tag whose case-folded name matches name, creating it when
// absent, and takes one reference on it in a single upsert. The second result
// reports whether this was the tag's first live reference.
func (r *tagRepository) Resolve(ctx context.Context, name string) (*models.Tag, bool, error) {
	name = strings.TrimSpace(name)
	key := models.TagKey(name)
	now := time.Now()

	row := models.Tag{Name: name, NameKey: key, Questions: 1, CreatedAt: now, UpdatedAt: now}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"questions":  gorm.Expr("tags.questions + 1"),
			"updated_at": now,
		}),
	}).Create(&row).Error
	if err != nil {
		return nil, false, err
	}

	var tag models.Tag
	if err := r.db.WithContext(ctx).Where("name_key = ?", key).First(&tag).Error; err != nil {
		return nil, false, err
	}
	return &tag, tag.Questions == 1, nil
}

// Release drops one reference from each tag, flooring at zero. Tags are kept.
func (r *tagRepository) Release(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Tag{}).
		Where("id IN ?", ids).
		UpdateColumns(map[string]interface{}{
			"questions":  gorm.Expr("CASE WHEN questions > 0 THEN questions - 1 ELSE 0 END"),
			"updated_at": time.Now(),
		}).Error
}

// Link appends tag links for the question in the order given.
func (r *tagRepository) Link(ctx context.Context, questionID uint, tagIDs []uint) error {
	if len(tagIDs) == 0 {
		return nil
	}
	links := make([]models.TagQuestion, 0, len(tagIDs))
	for _, id := range tagIDs {
		links = append(links, models.TagQuestion{TagID: id, QuestionID: questionID})
	}
	return r.db.WithContext(ctx).Create(&links).Error
}

func (r *tagRepository) Unlink(ctx context.Context, questionID uint, tagIDs []uint) error {
	if len(tagIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("question_id = ? AND tag_id IN ?", questionID, tagIDs).
		Delete(&models.TagQuestion{}).Error
}

// UnlinkAll removes every tag link of the question and returns the tag ids
// that were linked.
func (r *tagRepository) UnlinkAll(ctx context.Context, questionID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.TagQuestion{}).
		Where("question_id = ?", questionID).
		Order("id").
		Pluck("tag_id", &ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	err = r.db.WithContext(ctx).Where("question_id = ?", questionID).Delete(&models.TagQuestion{}).Error
	return ids, err
}

func (r *tagRepository) ListByQuestion(ctx context.Context, questionID uint) ([]models.Tag, error) {
	var tags []models.Tag
	err := r.db.WithContext(ctx).Model(&models.Tag{}).
		Select("tags.*").
		Joins("JOIN tag_questions ON tag_questions.tag_id = tags.id").
		Where("tag_questions.question_id = ?", questionID).
		Order("tag_questions.id ASC").
		Find(&tags).Error
	return tags, err
}

// TagIDsForQuestions returns the distinct tags attached to any of the questions.
func (r *tagRepository) TagIDsForQuestions(ctx context.Context, questionIDs []uint) ([]uint, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.TagQuestion{}).
		Distinct("tag_id").
		Where("question_id IN ?", questionIDs).
		Order("tag_id").
		Pluck("tag_id", &ids).Error
	return ids, err
}

func (r *tagRepository) GetByID(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := r.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *tagRepository) List(ctx context.Context, q TagQuery) ([]models.Tag, int64, error) {
	base := func() *gorm.DB {
		db := r.db.WithContext(ctx).Model(&models.Tag{})
		if strings.TrimSpace(q.Search) != "" {
			db = db.Where("name_key LIKE ? ESCAPE '\\'", containsPattern(q.Search))
		}
		return db
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var order string
	switch q.Filter {
	case models.TagFilterRecent:
		order = "created_at DESC, id DESC"
	case models.TagFilterOldest:
		order = "created_at ASC, id ASC"
	case models.TagFilterName:
		order = "name_key ASC"
	default:
		order = "questions DESC, name_key ASC"
	}

	var tags []models.Tag
	if err := q.Page.apply(base().Order(order)).Find(&tags).Error; err != nil {
		return nil, 0, err
	}
	return tags, total, nil
}

// PruneOrphans deletes tags with no references and no remaining links.
func (r *tagRepository) PruneOrphans(ctx context.Context) (int64, error) {
	linked := r.db.Model(&models.TagQuestion{}).Select("1").Where("tag_questions.tag_id = tags.id")
	res := r.db.WithContext(ctx).
		Where("questions <= 0").
		Where("NOT EXISTS (?)", linked).
		Delete(&models.Tag{})
	return res.RowsAffected, res.Error
}
