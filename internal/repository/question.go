package repository

import (
	"context"

	"devflow/internal/models"

	"gorm.io/gorm"
)

// QuestionQuery selects a page of questions.
type QuestionQuery struct {
	Filter string
	Search string
	Page
}

// RecommendQuery selects candidate questions for one actor.
type RecommendQuery struct {
	ActorID    uint
	ExcludeIDs []uint
	TagIDs     []uint
	Search     string
	Page
}

// QuestionRepository defines the interface for question data operations
type QuestionRepository interface {
	Create(ctx context.Context, q *models.Question) error
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	GetForUpdate(ctx context.Context, id uint) (*models.Question, error)
	UpdateContent(ctx context.Context, id uint, changes map[string]any) error
	Delete(ctx context.Context, id uint) (int64, error)
	AdjustAnswers(ctx context.Context, id uint, delta int) error
	AdjustVotes(ctx context.Context, id uint, upDelta, downDelta int) error
	VoteCounts(ctx context.Context, id uint) (int, int, error)
	IncrementViews(ctx context.Context, id uint) (int, error)
	List(ctx context.Context, q QuestionQuery) ([]models.Question, int64, error)
	Hot(ctx context.Context, limit int) ([]models.Question, error)
	Recommend(ctx context.Context, q RecommendQuery) ([]models.Question, int64, error)
	ListByTag(ctx context.Context, tagID uint, search string, page Page) ([]models.Question, int64, error)
	ListSaved(ctx context.Context, authorID uint, q QuestionQuery) ([]models.Question, int64, error)
}

// questionRepository implements QuestionRepository
type questionRepository struct {
	db *gorm.DB
}

// NewQuestionRepository creates a new question repository
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) Create(ctx context.Context, q *models.Question) error {
	return r.db.WithContext(ctx).Create(q).Error
}

func (r *questionRepository) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	var q models.Question
	if err := r.db.WithContext(ctx).First(&q, id).Error; err != nil {
		return nil, err
	}
	if err := loadTags(r.db.WithContext(ctx), []*models.Question{&q}); err != nil {
		return nil, err
	}
	return &q, nil
}

// GetForUpdate loads the question with its tags, locking the row on postgres.
func (r *questionRepository) GetForUpdate(ctx context.Context, id uint) (*models.Question, error) {
	var q models.Question
	if err := lockForUpdate(r.db.WithContext(ctx)).First(&q, id).Error; err != nil {
		return nil, err
	}
	if err := loadTags(r.db.WithContext(ctx), []*models.Question{&q}); err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *questionRepository) UpdateContent(ctx context.Context, id uint, changes map[string]any) error {
	if len(changes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Question{}).Where("id = ?", id).Updates(changes).Error
}

func (r *questionRepository) Delete(ctx context.Context, id uint) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.Question{}, id)
	return res.RowsAffected, res.Error
}

func (r *questionRepository) AdjustAnswers(ctx context.Context, id uint, delta int) error {
	return adjustCounter(r.db.WithContext(ctx), &models.Question{}, id, "answers", delta)
}

func (r *questionRepository) AdjustVotes(ctx context.Context, id uint, upDelta, downDelta int) error {
	if err := adjustCounter(r.db.WithContext(ctx), &models.Question{}, id, "upvotes", upDelta); err != nil {
		return err
	}
	return adjustCounter(r.db.WithContext(ctx), &models.Question{}, id, "downvotes", downDelta)
}

func (r *questionRepository) VoteCounts(ctx context.Context, id uint) (int, int, error) {
	var q models.Question
	if err := r.db.WithContext(ctx).Select("id", "upvotes", "downvotes").First(&q, id).Error; err != nil {
		return 0, 0, err
	}
	return q.Upvotes, q.Downvotes, nil
}

// IncrementViews bumps the view counter and returns the new value.
func (r *questionRepository) IncrementViews(ctx context.Context, id uint) (int, error) {
	res := r.db.WithContext(ctx).Model(&models.Question{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	var views int
	err := r.db.WithContext(ctx).Model(&models.Question{}).Where("id = ?", id).Pluck("views", &views).Error
	return views, err
}

func (r *questionRepository) List(ctx context.Context, q QuestionQuery) ([]models.Question, int64, error) {
	base := func() *gorm.DB {
		db := textSearch(r.db.WithContext(ctx).Model(&models.Question{}), "questions", q.Search)
		if q.Filter == models.QuestionFilterUnanswered {
			db = db.Where("questions.answers = 0")
		}
		return db
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "questions.created_at DESC, questions.id DESC"
	if q.Filter == models.QuestionFilterPopular {
		order = "questions.upvotes DESC, questions.created_at DESC, questions.id DESC"
	}

	var out []models.Question
	if err := q.Page.apply(base().Order(order)).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, loadTagsSlice(r.db.WithContext(ctx), out)
}

// Hot returns the most viewed questions, breaking ties by upvotes.
func (r *questionRepository) Hot(ctx context.Context, limit int) ([]models.Question, error) {
	var out []models.Question
	err := r.db.WithContext(ctx).
		Order("views DESC, upvotes DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, loadTagsSlice(r.db.WithContext(ctx), out)
}

// Recommend returns questions sharing a tag with q.TagIDs, not written by the
// actor and not in q.ExcludeIDs, ranked by upvotes then views.
func (r *questionRepository) Recommend(ctx context.Context, q RecommendQuery) ([]models.Question, int64, error) {
	if len(q.TagIDs) == 0 {
		return nil, 0, nil
	}

	base := func() *gorm.DB {
		tagged := r.db.Model(&models.TagQuestion{}).Select("question_id").Where("tag_id IN ?", q.TagIDs)
		db := r.db.WithContext(ctx).Model(&models.Question{}).
			Where("questions.author_id <> ?", q.ActorID).
			Where("questions.id IN (?)", tagged)
		if len(q.ExcludeIDs) > 0 {
			db = db.Where("questions.id NOT IN ?", q.ExcludeIDs)
		}
		return textSearch(db, "questions", q.Search)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []models.Question
	err := q.Page.apply(base().Order("questions.upvotes DESC, questions.views DESC, questions.id DESC")).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, loadTagsSlice(r.db.WithContext(ctx), out)
}

func (r *questionRepository) ListByTag(ctx context.Context, tagID uint, search string, page Page) ([]models.Question, int64, error) {
	base := func() *gorm.DB {
		db := r.db.WithContext(ctx).Model(&models.Question{}).
			Joins("JOIN tag_questions ON tag_questions.question_id = questions.id").
			Where("tag_questions.tag_id = ?", tagID)
		return textSearch(db, "questions", search)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []models.Question
	if err := page.apply(base().Order("questions.created_at DESC, questions.id DESC")).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, loadTagsSlice(r.db.WithContext(ctx), out)
}

func (r *questionRepository) ListSaved(ctx context.Context, authorID uint, q QuestionQuery) ([]models.Question, int64, error) {
	base := func() *gorm.DB {
		db := r.db.WithContext(ctx).Model(&models.Question{}).
			Joins("JOIN saved_items ON saved_items.question_id = questions.id").
			Where("saved_items.author_id = ?", authorID)
		return textSearch(db, "questions", q.Search)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var order string
	switch q.Filter {
	case models.SavedFilterMostRecent:
		order = "questions.created_at DESC, questions.id DESC"
	case models.SavedFilterOldest:
		order = "questions.created_at ASC, questions.id ASC"
	case models.SavedFilterMostVoted:
		order = "questions.upvotes DESC, questions.id DESC"
	case models.SavedFilterMostAnswered:
		order = "questions.answers DESC, questions.id DESC"
	default:
		order = "saved_items.created_at DESC, saved_items.id DESC"
	}

	var out []models.Question
	if err := q.Page.apply(base().Select("questions.*").Order(order)).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, loadTagsSlice(r.db.WithContext(ctx), out)
}

// adjustCounter applies a relative delta in one UPDATE. A zero delta is a no-op.
func adjustCounter(db *gorm.DB, model any, id uint, column string, delta int) error {
	if delta == 0 {
		return nil
	}
	res := db.Model(model).Where("id = ?", id).UpdateColumn(column, gorm.Expr(column+" + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

type tagLinkRow struct {
	QuestionID uint
	TagID      uint
	Name       string
	Questions  int
}

func loadTagsSlice(db *gorm.DB, questions []models.Question) error {
	ptrs := make([]*models.Question, len(questions))
	for i := range questions {
		ptrs[i] = &questions[i]
	}
	return loadTags(db, ptrs)
}

// loadTags fills Tags on each question in link order with one query.
func loadTags(db *gorm.DB, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}
	byID := make(map[uint]*models.Question, len(questions))
	ids := make([]uint, 0, len(questions))
	for _, q := range questions {
		q.Tags = []models.Tag{}
		byID[q.ID] = q
		ids = append(ids, q.ID)
	}

	var rows []tagLinkRow
	err := db.Table("tag_questions").
		Select("tag_questions.question_id, tag_questions.tag_id, tags.name, tags.questions").
		Joins("JOIN tags ON tags.id = tag_questions.tag_id").
		Where("tag_questions.question_id IN ?", ids).
		Order("tag_questions.id ASC").
		Scan(&rows).Error
	if err != nil {
		return err
	}
	for _, row := range rows {
		if q, ok := byID[row.QuestionID]; ok {
			q.Tags = append(q.Tags, models.Tag{ID: row.TagID, Name: row.Name, Questions: row.Questions})
		}
	}
	return nil
}
