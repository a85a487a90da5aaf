package service

import (
	"context"

	"devflow/internal/models"
	"devflow/internal/repository"
	"devflow/internal/validation"
)

// CollectionService manages each author's saved questions.
type CollectionService struct {
	store *repository.Store
	sink  InteractionSink
}

type ToggleSavedInput struct {
	ActorID    uint
	QuestionID uint
}

type ListSavedInput struct {
	ActorID uint   `json:"-"`
	Filter  string `json:"filter" validate:"omitempty,oneof=mostrecent oldest mostvoted mostanswered"`
	Query   string `json:"query"`
	Pagination
}

// SavedState reports collection membership.
type SavedState struct {
	Saved bool `json:"saved"`
}

func NewCollectionService(store *repository.Store, sink InteractionSink) *CollectionService {
	if sink == nil {
		sink = NopSink{}
	}
	return &CollectionService{store: store, sink: sink}
}

// ToggleSaved adds the question to the actor's collection, or removes it when
// already present. The insert is conditional on the unique (author, question)
// index, so two concurrent toggles leave one row or none, never two.
func (s *CollectionService) ToggleSaved(ctx context.Context, in ToggleSavedInput) (*SavedState, error) {
	if in.ActorID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required to save questions")
	}

	var state SavedState
	err := s.store.WithinTx(ctx, func(tx *repository.Store) error {
		q, err := tx.Questions().GetByID(ctx, in.QuestionID)
		if err != nil {
			return storeError(err, "Question", in.QuestionID)
		}

		added, err := tx.Saved().Add(ctx, in.ActorID, q.ID)
		if err != nil {
			return storeError(err, "SavedItem", q.ID)
		}
		if !added {
			if _, err := tx.Saved().Remove(ctx, in.ActorID, q.ID); err != nil {
				return storeError(err, "SavedItem", q.ID)
			}
			state.Saved = false
			return nil
		}

		state.Saved = true
		authorID := q.AuthorID
		tx.AfterCommit(ctx, func(ctx context.Context) {
			s.sink.Record(ctx, models.Interaction{
				ActorID:    in.ActorID,
				Action:     models.ActionBookmark,
				TargetType: models.TargetQuestion,
				TargetID:   in.QuestionID,
				AuthorID:   authorID,
			})
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// GetSavedState reports membership; anonymous callers get false.
func (s *CollectionService) GetSavedState(ctx context.Context, actorID, questionID uint) (*SavedState, error) {
	if actorID == 0 {
		return &SavedState{}, nil
	}
	ok, err := s.store.Reader().Saved().Exists(ctx, actorID, questionID)
	if err != nil {
		return nil, storeError(err, "SavedItem", questionID)
	}
	return &SavedState{Saved: ok}, nil
}

func (s *CollectionService) ListSaved(ctx context.Context, in ListSavedInput) (*QuestionPage, error) {
	if in.ActorID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required to view your collection")
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	w := in.window()
	questions, total, err := s.store.Reader().Questions().ListSaved(ctx, in.ActorID, repository.QuestionQuery{
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
