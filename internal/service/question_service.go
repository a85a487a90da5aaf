package service

import (
	"context"
	"log/slog"

	"devflow/internal/cache"
	"devflow/internal/content"
	"devflow/internal/featureflags"
	"devflow/internal/middleware"
	"devflow/internal/models"
	"devflow/internal/observability"
	"devflow/internal/repository"
	"devflow/internal/validation"
)

const hotQuestionsLimit = 5

// QuestionService manages the question lifecycle: create, edit, cascading
// delete and the question read paths.
type QuestionService struct {
	store *repository.Store
	tags  *TagService
	recs  *RecommendationService
	flags *featureflags.Manager
	sink  InteractionSink
}

type CreateQuestionInput struct {
	AuthorID uint     `json:"-"`
	Title    string   `json:"title" validate:"notblank,min=5,max=130"`
	Content  string   `json:"content" validate:"notblank,max=50000"`
	Tags     []string `json:"tags" validate:"min=1,max=3,dive,notblank,max=15"`
}

type EditQuestionInput struct {
	ActorID    uint     `json:"-"`
	QuestionID uint     `json:"-"`
	Title      string   `json:"title" validate:"notblank,min=5,max=130"`
	Content    string   `json:"content" validate:"notblank,max=50000"`
	Tags       []string `json:"tags" validate:"min=1,max=3,dive,notblank,max=15"`
}

type DeleteQuestionInput struct {
	ActorID    uint
	QuestionID uint
}

type ListQuestionsInput struct {
	ActorID uint   `json:"-"`
	Filter  string `json:"filter" validate:"omitempty,oneof=newest unanswered popular recommended"`
	Query   string `json:"query"`
	Pagination
}

type IncrementViewsInput struct {
	ActorID    uint
	QuestionID uint
}

// CascadeReport counts what a question delete removed.
type CascadeReport struct {
	QuestionID    uint  `json:"question_id"`
	Answers       int64 `json:"answers"`
	QuestionVotes int64 `json:"question_votes"`
	AnswerVotes   int64 `json:"answer_votes"`
	SavedItems    int64 `json:"saved_items"`
	TagsReleased  int   `json:"tags_released"`
}

func NewQuestionService(
	store *repository.Store,
	tags *TagService,
	recs *RecommendationService,
	flags *featureflags.Manager,
	sink InteractionSink,
) *QuestionService {
	if sink == nil {
		sink = NopSink{}
	}
	if flags == nil {
		flags = featureflags.NewManager("")
	}
	return &QuestionService{store: store, tags: tags, recs: recs, flags: flags, sink: sink}
}

func (s *QuestionService) CreateQuestion(ctx context.Context, in CreateQuestionInput) (*models.Question, error) {
	return s.CreateQuestionTx(ctx, s.store, in)
}

// CreateQuestionTx inserts the question and links its tags inside tx.
func (s *QuestionService) CreateQuestionTx(ctx context.Context, tx *repository.Store, in CreateQuestionInput) (q *models.Question, err error) {
	if in.AuthorID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required to ask a question")
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	ctx, end := observability.StartOperation(ctx, "question.create", in.AuthorID)
	defer func() { end(err) }()
	observe := observability.ObserveTransaction("question.create")
	defer func() { observe(err) }()

	err = tx.WithinTx(ctx, func(tx *repository.Store) error {
		q = &models.Question{AuthorID: in.AuthorID, Title: in.Title, Content: in.Content}
		if err := tx.Questions().Create(ctx, q); err != nil {
			return storeError(err, "Question", nil)
		}

		tags, err := s.tags.ResolveTags(ctx, tx, in.Tags)
		if err != nil {
			return err
		}
		if err := tx.Tags().Link(ctx, q.ID, tagIDs(tags)); err != nil {
			return storeError(err, "Question", q.ID)
		}
		q.Tags = tags

		questionID := q.ID
		tx.AfterCommit(ctx, func(ctx context.Context) {
			s.sink.Record(ctx, models.Interaction{
				ActorID:    in.AuthorID,
				Action:     models.ActionPost,
				TargetType: models.TargetQuestion,
				TargetID:   questionID,
				AuthorID:   in.AuthorID,
			})
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionService) EditQuestion(ctx context.Context, in EditQuestionInput) (*models.Question, error) {
	return s.EditQuestionTx(ctx, s.store, in)
}

// EditQuestionTx updates changed fields and reconciles tags inside tx.
func (s *QuestionService) EditQuestionTx(ctx context.Context, tx *repository.Store, in EditQuestionInput) (q *models.Question, err error) {
	if in.ActorID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required to edit a question")
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	ctx, end := observability.StartOperation(ctx, "question.edit", in.ActorID)
	defer func() { end(err) }()
	observe := observability.ObserveTransaction("question.edit")
	defer func() { observe(err) }()

	err = tx.WithinTx(ctx, func(tx *repository.Store) error {
		current, err := tx.Questions().GetForUpdate(ctx, in.QuestionID)
		if err != nil {
			return storeError(err, "Question", in.QuestionID)
		}
		if current.AuthorID != in.ActorID {
			return models.NewForbiddenError("You can only edit your own questions")
		}

		changes := map[string]any{}
		if in.Title != current.Title {
			changes["title"] = in.Title
		}
		if in.Content != current.Content {
			changes["content"] = in.Content
		}
		if err := tx.Questions().UpdateContent(ctx, current.ID, changes); err != nil {
			return storeError(err, "Question", current.ID)
		}

		diff := s.tags.Diff(in.ActorID, current.Tags, in.Tags)
		if len(diff.ToRemove) > 0 {
			removed := tagIDs(diff.ToRemove)
			if err := s.tags.ReleaseTags(ctx, tx, removed); err != nil {
				return err
			}
			if err := tx.Tags().Unlink(ctx, current.ID, removed); err != nil {
				return storeError(err, "Question", current.ID)
			}
		}
		if len(diff.ToAdd) > 0 {
			added, err := s.tags.ResolveTags(ctx, tx, diff.ToAdd)
			if err != nil {
				return err
			}
			if err := tx.Tags().Link(ctx, current.ID, tagIDs(added)); err != nil {
				return storeError(err, "Question", current.ID)
			}
		}

		if q, err = tx.Questions().GetByID(ctx, current.ID); err != nil {
			return storeError(err, "Question", current.ID)
		}

		questionID := current.ID
		tx.AfterCommit(ctx, func(ctx context.Context) {
			cache.InvalidateQuestion(ctx, questionID)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionService) DeleteQuestion(ctx context.Context, in DeleteQuestionInput) (*CascadeReport, error) {
	return s.DeleteQuestionTx(ctx, s.store, in)
}

// DeleteQuestionTx removes the question with everything that hangs off it in
// one transaction: saved items, tag links (releasing each tag), votes on the
// question, answers and the votes on those answers.
func (s *QuestionService) DeleteQuestionTx(ctx context.Context, tx *repository.Store, in DeleteQuestionInput) (report *CascadeReport, err error) {
	if in.ActorID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required to delete a question")
	}

	ctx, end := observability.StartOperation(ctx, "question.delete", in.ActorID)
	defer func() { end(err) }()
	observe := observability.ObserveTransaction("question.delete")
	defer func() { observe(err) }()

	err = tx.WithinTx(ctx, func(tx *repository.Store) error {
		q, err := tx.Questions().GetForUpdate(ctx, in.QuestionID)
		if err != nil {
			return storeError(err, "Question", in.QuestionID)
		}
		if q.AuthorID != in.ActorID {
			return models.NewForbiddenError("You can only delete your own questions")
		}

		r := &CascadeReport{QuestionID: q.ID}

		if r.SavedItems, err = tx.Saved().DeleteByQuestion(ctx, q.ID); err != nil {
			return storeError(err, "Question", q.ID)
		}

		linked, err := tx.Tags().UnlinkAll(ctx, q.ID)
		if err != nil {
			return storeError(err, "Question", q.ID)
		}
		if err := s.tags.ReleaseTags(ctx, tx, linked); err != nil {
			return err
		}
		r.TagsReleased = len(linked)

		if r.QuestionVotes, err = tx.Votes().DeleteByTargets(ctx, models.TargetQuestion, []uint{q.ID}); err != nil {
			return storeError(err, "Question", q.ID)
		}

		answerIDs, err := tx.Answers().IDsByQuestion(ctx, q.ID)
		if err != nil {
			return storeError(err, "Question", q.ID)
		}
		if r.AnswerVotes, err = tx.Votes().DeleteByTargets(ctx, models.TargetAnswer, answerIDs); err != nil {
			return storeError(err, "Question", q.ID)
		}
		if r.Answers, err = tx.Answers().DeleteByQuestion(ctx, q.ID); err != nil {
			return storeError(err, "Question", q.ID)
		}

		deleted, err := tx.Questions().Delete(ctx, q.ID)
		if err != nil {
			return storeError(err, "Question", q.ID)
		}
		if deleted == 0 {
			return models.NewNotFoundError("Question", q.ID)
		}

		report = r
		tx.AfterCommit(ctx, func(ctx context.Context) {
			cache.InvalidateQuestion(ctx, r.QuestionID)
			observability.CascadeDeletedRows.WithLabelValues("answers").Add(float64(r.Answers))
			observability.CascadeDeletedRows.WithLabelValues("votes").Add(float64(r.QuestionVotes + r.AnswerVotes))
			observability.CascadeDeletedRows.WithLabelValues("saved_items").Add(float64(r.SavedItems))
			observability.CascadeDeletedRows.WithLabelValues("tag_links").Add(float64(r.TagsReleased))
			middleware.Logger.InfoContext(ctx, "question deleted",
				slog.Any("question_id", r.QuestionID),
				slog.Int64("answers", r.Answers),
				slog.Int64("question_votes", r.QuestionVotes),
				slog.Int64("answer_votes", r.AnswerVotes),
				slog.Int64("saved_items", r.SavedItems),
				slog.Int("tags_released", r.TagsReleased),
			)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// GetQuestion returns the question with ordered tags and rendered body,
// served from cache when possible.
func (s *QuestionService) GetQuestion(ctx context.Context, id uint) (*models.Question, error) {
	return cache.Aside(ctx, cache.QuestionKey(id), cache.QuestionTTL, func(ctx context.Context) (*models.Question, error) {
		q, err := s.store.Reader().Questions().GetByID(ctx, id)
		if err != nil {
			return nil, storeError(err, "Question", id)
		}
		if q.ContentHTML, err = content.Render(q.Content); err != nil {
			return nil, models.NewInternalError(err)
		}
		return q, nil
	})
}

func (s *QuestionService) ListQuestions(ctx context.Context, in ListQuestionsInput) (*QuestionPage, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if in.Filter == models.QuestionFilterRecommended {
		return s.recs.ListRecommended(ctx, RecommendInput{ActorID: in.ActorID, Query: in.Query, Pagination: in.Pagination})
	}

	w := in.window()
	questions, total, err := s.store.Reader().Questions().List(ctx, repository.QuestionQuery{
		Filter: in.Filter,
		Search: in.Query,
		Page:   w,
	})
	if err != nil {
		return nil, storeError(err, "Question", nil)
	}
	if questions == nil {
		questions = []models.Question{}
	}
	return &QuestionPage{Questions: questions, IsNext: hasMore(total, w, len(questions))}, nil
}

// IncrementViews bumps the view counter and returns the new count. Retries may
// count twice.
func (s *QuestionService) IncrementViews(ctx context.Context, in IncrementViewsInput) (int, error) {
	views, err := s.store.Questions().IncrementViews(ctx, in.QuestionID)
	if err != nil {
		return 0, storeError(err, "Question", in.QuestionID)
	}
	cache.Invalidate(ctx, cache.QuestionKey(in.QuestionID))

	if in.ActorID != 0 && s.flags.Enabled(featureflags.RecordViewInteractions, in.ActorID) {
		if q, err := s.store.Questions().GetByID(ctx, in.QuestionID); err == nil {
			s.sink.Record(ctx, models.Interaction{
				ActorID:    in.ActorID,
				Action:     models.ActionView,
				TargetType: models.TargetQuestion,
				TargetID:   in.QuestionID,
				AuthorID:   q.AuthorID,
			})
		}
	}
	return views, nil
}

// ListHotQuestions returns the most viewed questions.
func (s *QuestionService) ListHotQuestions(ctx context.Context) ([]models.Question, error) {
	return cache.Aside(ctx, cache.HotQuestionsKey, cache.HotQuestionsTTL, func(ctx context.Context) ([]models.Question, error) {
		questions, err := s.store.Reader().Questions().Hot(ctx, hotQuestionsLimit)
		if err != nil {
			return nil, storeError(err, "Question", nil)
		}
		if questions == nil {
			questions = []models.Question{}
		}
		return questions, nil
	})
}
