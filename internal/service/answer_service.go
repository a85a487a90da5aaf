package service

import (
	"context"

	"devflow/internal/cache"
	"devflow/internal/content"
	"devflow/internal/models"
	"devflow/internal/observability"
	"devflow/internal/repository"
	"devflow/internal/validation"
)

// AnswerService manages answers and the parent question's answer counter.
type AnswerService struct {
	store *repository.Store
	sink  InteractionSink
}

type CreateAnswerInput struct {
	AuthorID   uint   `json:"-"`
	QuestionID uint   `json:"-"`
	Content    string `json:"content" validate:"notblank,max=50000"`
}

type DeleteAnswerInput struct {
	ActorID  uint
	AnswerID uint
}

type ListAnswersInput struct {
	QuestionID uint   `json:"-"`
	Filter     string `json:"filter" validate:"omitempty,oneof=latest oldest popular"`
	Pagination
}

// AnswerPage is one page of a question's answers.
type AnswerPage struct {
	Answers      []models.Answer `json:"answers"`
	TotalAnswers int64           `json:"total_answers"`
	IsNext       bool            `json:"is_next"`
}

func NewAnswerService(store *repository.Store, sink InteractionSink) *AnswerService {
	if sink == nil {
		sink = NopSink{}
	}
	return &AnswerService{store: store, sink: sink}
}

func (s *AnswerService) CreateAnswer(ctx context.Context, in CreateAnswerInput) (*models.Answer, error) {
	return s.CreateAnswerTx(ctx, s.store, in)
}

// CreateAnswerTx inserts the answer and counts it on the question inside tx.
func (s *AnswerService) CreateAnswerTx(ctx context.Context, tx *repository.Store, in CreateAnswerInput) (a *models.Answer, err error) {
	if in.AuthorID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required to answer")
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	ctx, end := observability.StartOperation(ctx, "answer.create", in.AuthorID)
	defer func() { end(err) }()
	observe := observability.ObserveTransaction("answer.create")
	defer func() { observe(err) }()

	err = tx.WithinTx(ctx, func(tx *repository.Store) error {
		if _, err := tx.Questions().GetForUpdate(ctx, in.QuestionID); err != nil {
			return storeError(err, "Question", in.QuestionID)
		}

		a = &models.Answer{QuestionID: in.QuestionID, AuthorID: in.AuthorID, Content: in.Content}
		if err := tx.Answers().Create(ctx, a); err != nil {
			return storeError(err, "Answer", nil)
		}
		if err := tx.Questions().AdjustAnswers(ctx, in.QuestionID, 1); err != nil {
			return storeError(err, "Question", in.QuestionID)
		}

		answerID := a.ID
		tx.AfterCommit(ctx, func(ctx context.Context) {
			cache.InvalidateQuestion(ctx, in.QuestionID)
			s.sink.Record(ctx, models.Interaction{
				ActorID:    in.AuthorID,
				Action:     models.ActionPost,
				TargetType: models.TargetAnswer,
				TargetID:   answerID,
				AuthorID:   in.AuthorID,
			})
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AnswerService) DeleteAnswer(ctx context.Context, in DeleteAnswerInput) error {
	return s.DeleteAnswerTx(ctx, s.store, in)
}

// DeleteAnswerTx removes the answer and its votes and uncounts it on the
// question inside tx.
func (s *AnswerService) DeleteAnswerTx(ctx context.Context, tx *repository.Store, in DeleteAnswerInput) (err error) {
	if in.ActorID == 0 {
		return models.NewUnauthorizedError("Authentication required to delete an answer")
	}

	ctx, end := observability.StartOperation(ctx, "answer.delete", in.ActorID)
	defer func() { end(err) }()
	observe := observability.ObserveTransaction("answer.delete")
	defer func() { observe(err) }()

	return tx.WithinTx(ctx, func(tx *repository.Store) error {
		a, err := tx.Answers().GetForUpdate(ctx, in.AnswerID)
		if err != nil {
			return storeError(err, "Answer", in.AnswerID)
		}
		if a.AuthorID != in.ActorID {
			return models.NewForbiddenError("You can only delete your own answers")
		}

		if err := tx.Questions().AdjustAnswers(ctx, a.QuestionID, -1); err != nil {
			return storeError(err, "Question", a.QuestionID)
		}
		votes, err := tx.Votes().DeleteByTargets(ctx, models.TargetAnswer, []uint{a.ID})
		if err != nil {
			return storeError(err, "Answer", a.ID)
		}
		deleted, err := tx.Answers().Delete(ctx, a.ID)
		if err != nil {
			return storeError(err, "Answer", a.ID)
		}
		if deleted == 0 {
			return models.NewNotFoundError("Answer", a.ID)
		}

		tx.AfterCommit(ctx, func(ctx context.Context) {
			cache.InvalidateQuestion(ctx, a.QuestionID)
			observability.CascadeDeletedRows.WithLabelValues("votes").Add(float64(votes))
		})
		return nil
	})
}

func (s *AnswerService) ListAnswers(ctx context.Context, in ListAnswersInput) (*AnswerPage, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	reader := s.store.Reader()
	if _, _, err := reader.Questions().VoteCounts(ctx, in.QuestionID); err != nil {
		return nil, storeError(err, "Question", in.QuestionID)
	}

	w := in.window()
	answers, total, err := reader.Answers().ListByQuestion(ctx, in.QuestionID, in.Filter, w)
	if err != nil {
		return nil, storeError(err, "Answer", nil)
	}
	if answers == nil {
		answers = []models.Answer{}
	}
	for i := range answers {
		if answers[i].ContentHTML, err = content.Render(answers[i].Content); err != nil {
			return nil, models.NewInternalError(err)
		}
	}
	return &AnswerPage{Answers: answers, TotalAnswers: total, IsNext: hasMore(total, w, len(answers))}, nil
}
