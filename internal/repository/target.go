package repository

import (
	"context"

	"devflow/internal/models"
)

// VoteTarget is the shared capability of votable content. Implementations
// exist for questions and answers and are picked by Store.Target.
type VoteTarget interface {
	Kind() models.TargetType
	// Author returns the owner of the target, or gorm.ErrRecordNotFound.
	Author(ctx context.Context, id uint) (uint, error)
	// AdjustVotes applies relative deltas to the up and down counters.
	AdjustVotes(ctx context.Context, id uint, upDelta, downDelta int) error
	// Counts returns the current counters.
	Counts(ctx context.Context, id uint) (upvotes, downvotes int, err error)
	// QuestionID is the question the target belongs to, used for cache invalidation.
	QuestionID(ctx context.Context, id uint) (uint, error)
}

type questionTarget struct {
	repo QuestionRepository
}

func (questionTarget) Kind() models.TargetType { return models.TargetQuestion }

func (t questionTarget) Author(ctx context.Context, id uint) (uint, error) {
	q, err := t.repo.GetForUpdate(ctx, id)
	if err != nil {
		return 0, err
	}
	return q.AuthorID, nil
}

func (t questionTarget) AdjustVotes(ctx context.Context, id uint, upDelta, downDelta int) error {
	return t.repo.AdjustVotes(ctx, id, upDelta, downDelta)
}

func (t questionTarget) Counts(ctx context.Context, id uint) (int, int, error) {
	return t.repo.VoteCounts(ctx, id)
}

func (questionTarget) QuestionID(_ context.Context, id uint) (uint, error) {
	return id, nil
}

type answerTarget struct {
	repo AnswerRepository
}

func (answerTarget) Kind() models.TargetType { return models.TargetAnswer }

func (t answerTarget) Author(ctx context.Context, id uint) (uint, error) {
	a, err := t.repo.GetForUpdate(ctx, id)
	if err != nil {
		return 0, err
	}
	return a.AuthorID, nil
}

func (t answerTarget) AdjustVotes(ctx context.Context, id uint, upDelta, downDelta int) error {
	return t.repo.AdjustVotes(ctx, id, upDelta, downDelta)
}

func (t answerTarget) Counts(ctx context.Context, id uint) (int, int, error) {
	return t.repo.VoteCounts(ctx, id)
}

func (t answerTarget) QuestionID(ctx context.Context, id uint) (uint, error) {
	a, err := t.repo.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return a.QuestionID, nil
}
