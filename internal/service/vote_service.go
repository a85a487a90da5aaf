package service

import (
	"context"

	"devflow/internal/cache"
	"devflow/internal/models"
	"devflow/internal/observability"
	"devflow/internal/repository"
)

// VoteService is the vote ledger: per-actor vote rows plus the denormalized
// counters on the target.
type VoteService struct {
	store *repository.Store
	sink  InteractionSink
}

type CastVoteInput struct {
	ActorID    uint
	TargetID   uint
	TargetType models.TargetType
	VoteType   models.VoteType
}

// VoteResult is the caller's vote state and the target counters after a cast.
type VoteResult struct {
	State     models.VoteState `json:"state"`
	Upvotes   int              `json:"upvotes"`
	Downvotes int              `json:"downvotes"`
}

// VoteStatus is the read-only view of an actor's vote on one target.
type VoteStatus struct {
	HasUpvoted   bool `json:"has_upvoted"`
	HasDownvoted bool `json:"has_downvoted"`
}

func NewVoteService(store *repository.Store, sink InteractionSink) *VoteService {
	if sink == nil {
		sink = NopSink{}
	}
	return &VoteService{store: store, sink: sink}
}

// CastVote toggles the actor's vote on the target in its own transaction.
func (s *VoteService) CastVote(ctx context.Context, in CastVoteInput) (*VoteResult, error) {
	return s.CastVoteTx(ctx, s.store, in)
}

// CastVoteTx casts inside tx, joining it when tx is already transactional.
//
// No vote: create it and add one to the matching counter. Same polarity:
// delete it and subtract one. Opposite polarity: flip it, subtract one from the
// old counter and add one to the new one as two separate writes.
func (s *VoteService) CastVoteTx(ctx context.Context, tx *repository.Store, in CastVoteInput) (result *VoteResult, err error) {
	if in.ActorID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required to vote")
	}
	if !in.TargetType.Valid() {
		return nil, models.NewValidationError("target_type must be question or answer")
	}
	if !in.VoteType.Valid() {
		return nil, models.NewValidationError("vote_type must be upvote or downvote")
	}

	ctx, end := observability.StartOperation(ctx, "vote.cast", in.ActorID)
	defer func() { end(err) }()
	observe := observability.ObserveTransaction("vote.cast")
	defer func() { observe(err) }()

	resource := resourceName(in.TargetType)
	err = tx.WithinTx(ctx, func(tx *repository.Store) error {
		target, err := tx.Target(in.TargetType)
		if err != nil {
			return err
		}
		authorID, err := target.Author(ctx, in.TargetID)
		if err != nil {
			return storeError(err, resource, in.TargetID)
		}

		existing, err := tx.Votes().Find(ctx, in.ActorID, in.TargetID, in.TargetType)
		if err != nil {
			return storeError(err, "Vote", in.TargetID)
		}

		var up, down int
		state := models.VoteStateNone
		switch {
		case existing == nil:
			vote := &models.Vote{
				AuthorID:   in.ActorID,
				TargetID:   in.TargetID,
				TargetType: in.TargetType,
				VoteType:   in.VoteType,
			}
			if err := tx.Votes().Create(ctx, vote); err != nil {
				return storeError(err, "Vote", in.TargetID)
			}
			up, down = counterDelta(in.VoteType, 1)
			state = models.StateFor(in.VoteType)
		case existing.VoteType == in.VoteType:
			if err := tx.Votes().Delete(ctx, existing.ID); err != nil {
				return storeError(err, "Vote", existing.ID)
			}
			up, down = counterDelta(in.VoteType, -1)
		default:
			if err := tx.Votes().UpdateType(ctx, existing.ID, in.VoteType); err != nil {
				return storeError(err, "Vote", existing.ID)
			}
			oldUp, oldDown := counterDelta(existing.VoteType, -1)
			newUp, newDown := counterDelta(in.VoteType, 1)
			up, down = oldUp+newUp, oldDown+newDown
			state = models.StateFor(in.VoteType)
		}

		if err := target.AdjustVotes(ctx, in.TargetID, up, down); err != nil {
			return storeError(err, resource, in.TargetID)
		}
		upvotes, downvotes, err := target.Counts(ctx, in.TargetID)
		if err != nil {
			return storeError(err, resource, in.TargetID)
		}
		questionID, err := target.QuestionID(ctx, in.TargetID)
		if err != nil {
			return storeError(err, resource, in.TargetID)
		}

		result = &VoteResult{State: state, Upvotes: upvotes, Downvotes: downvotes}
		observability.VotesCast.WithLabelValues(string(in.TargetType), string(state)).Inc()

		tx.AfterCommit(ctx, func(ctx context.Context) {
			cache.InvalidateQuestion(ctx, questionID)
			s.sink.Record(ctx, models.Interaction{
				ActorID:    in.ActorID,
				Action:     voteAction(in.VoteType),
				TargetType: in.TargetType,
				TargetID:   in.TargetID,
				AuthorID:   authorID,
			})
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetVoteState reports the actor's current vote. Anonymous callers get a
// neutral result.
func (s *VoteService) GetVoteState(ctx context.Context, actorID, targetID uint, kind models.TargetType) (*VoteStatus, error) {
	if actorID == 0 {
		return &VoteStatus{}, nil
	}
	if !kind.Valid() {
		return nil, models.NewValidationError("target_type must be question or answer")
	}
	vote, err := s.store.Reader().Votes().Find(ctx, actorID, targetID, kind)
	if err != nil {
		return nil, storeError(err, "Vote", targetID)
	}
	if vote == nil {
		return &VoteStatus{}, nil
	}
	return &VoteStatus{
		HasUpvoted:   vote.VoteType == models.VoteUp,
		HasDownvoted: vote.VoteType == models.VoteDown,
	}, nil
}

// counterDelta splits a signed change for polarity v into (up, down) deltas.
func counterDelta(v models.VoteType, delta int) (int, int) {
	if v == models.VoteDown {
		return 0, delta
	}
	return delta, 0
}

func voteAction(v models.VoteType) models.InteractionAction {
	if v == models.VoteDown {
		return models.ActionDownvote
	}
	return models.ActionUpvote
}

func resourceName(kind models.TargetType) string {
	if kind == models.TargetAnswer {
		return "Answer"
	}
	return "Question"
}
