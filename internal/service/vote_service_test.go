package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"devflow/internal/models"
	"devflow/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestVoteService_ToggleScenario(t *testing.T) {
	f := newFixture(t, "")
	q := f.ask(t, 1, "Vote scenario question", "go")
	const actor = 2

	steps := []struct {
		vote     models.VoteType
		state    models.VoteState
		up, down int
	}{
		{models.VoteUp, models.VoteStateUpvoted, 1, 0},
		{models.VoteUp, models.VoteStateNone, 0, 0},
		{models.VoteDown, models.VoteStateDownvoted, 0, 1},
		{models.VoteUp, models.VoteStateUpvoted, 1, 0},
	}
	for i, step := range steps {
		res := f.vote(t, actor, q.ID, models.TargetQuestion, step.vote)
		assert.Equal(t, step.state, res.State, "step %d", i)
		assert.Equal(t, step.up, res.Upvotes, "step %d", i)
		assert.Equal(t, step.down, res.Downvotes, "step %d", i)

		stored := f.reload(t, q.ID)
		assert.Equal(t, step.up, stored.Upvotes, "step %d", i)
		assert.Equal(t, step.down, stored.Downvotes, "step %d", i)
	}

	assert.EqualValues(t, 1, f.count(t, &models.Vote{}, "target_id = ? AND target_type = ?", q.ID, models.TargetQuestion))
}

func TestVoteService_SwitchConservesTotal(t *testing.T) {
	f := newFixture(t, "")
	q := f.ask(t, 1, "Conservation question", "go")
	a := f.answer(t, 2, q.ID)

	f.vote(t, 3, a.ID, models.TargetAnswer, models.VoteUp)
	f.vote(t, 4, a.ID, models.TargetAnswer, models.VoteUp)
	f.vote(t, 5, a.ID, models.TargetAnswer, models.VoteDown)

	res := f.vote(t, 3, a.ID, models.TargetAnswer, models.VoteDown)
	assert.Equal(t, models.VoteStateDownvoted, res.State)
	assert.Equal(t, 1, res.Upvotes)
	assert.Equal(t, 2, res.Downvotes)
	assert.Equal(t, 3, res.Upvotes+res.Downvotes)

	// Votes on the answer never touch the question counters.
	stored := f.reload(t, q.ID)
	assert.Zero(t, stored.Upvotes)
	assert.Zero(t, stored.Downvotes)
}

func TestVoteService_Failures(t *testing.T) {
	f := newFixture(t, "")
	q := f.ask(t, 1, "Failure question", "go")
	ctx := context.Background()

	_, err := f.votes.CastVote(ctx, CastVoteInput{TargetID: q.ID, TargetType: models.TargetQuestion, VoteType: models.VoteUp})
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))

	_, err = f.votes.CastVote(ctx, CastVoteInput{ActorID: 2, TargetID: q.ID + 10, TargetType: models.TargetQuestion, VoteType: models.VoteUp})
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	_, err = f.votes.CastVote(ctx, CastVoteInput{ActorID: 2, TargetID: q.ID, TargetType: "comment", VoteType: models.VoteUp})
	assert.True(t, models.IsCode(err, models.CodeValidation))

	_, err = f.votes.CastVote(ctx, CastVoteInput{ActorID: 2, TargetID: q.ID, TargetType: models.TargetQuestion, VoteType: "meh"})
	assert.True(t, models.IsCode(err, models.CodeValidation))
}

func TestVoteService_RecordsAfterCommitOnly(t *testing.T) {
	f := newFixture(t, "")
	q := f.ask(t, 1, "Recording question", "go")
	ctx := context.Background()
	before := len(f.sink.all())

	boom := errors.New("outer failure")
	err := f.store.WithinTx(ctx, func(tx *repository.Store) error {
		_, err := f.votes.CastVoteTx(ctx, tx, CastVoteInput{
			ActorID: 2, TargetID: q.ID, TargetType: models.TargetQuestion, VoteType: models.VoteUp,
		})
		require.NoError(t, err)
		assert.Len(t, f.sink.all(), before, "nothing recorded before commit")
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Len(t, f.sink.all(), before)
	assert.Zero(t, f.reload(t, q.ID).Upvotes, "outer abort rolls back the vote")

	f.vote(t, 2, q.ID, models.TargetQuestion, models.VoteDown)
	events := f.sink.all()
	require.Len(t, events, before+1)
	last := events[len(events)-1]
	assert.Equal(t, models.ActionDownvote, last.Action)
	assert.Equal(t, uint(1), last.AuthorID)
}

func TestVoteService_GetVoteState(t *testing.T) {
	f := newFixture(t, "")
	q := f.ask(t, 1, "State question", "go")
	ctx := context.Background()

	state, err := f.votes.GetVoteState(ctx, 0, q.ID, models.TargetQuestion)
	require.NoError(t, err)
	assert.False(t, state.HasUpvoted)
	assert.False(t, state.HasDownvoted)

	f.vote(t, 2, q.ID, models.TargetQuestion, models.VoteDown)
	state, err = f.votes.GetVoteState(ctx, 2, q.ID, models.TargetQuestion)
	require.NoError(t, err)
	assert.False(t, state.HasUpvoted)
	assert.True(t, state.HasDownvoted)
}

func TestStoreError(t *testing.T) {
	assert.Nil(t, storeError(nil, "Question", 1))

	tests := []struct {
		name string
		err  error
		code string
	}{
		{"app error passes through", models.NewForbiddenError("no"), models.CodeForbidden},
		{"record not found", gorm.ErrRecordNotFound, models.CodeNotFound},
		{"duplicated key", gorm.ErrDuplicatedKey, models.CodeConflict},
		{"unique violation", &pgconn.PgError{Code: "23505"}, models.CodeConflict},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, models.CodeConflict},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, models.CodeConflict},
		{"wrapped unique violation", fmt.Errorf("resolve tag: %w", &pgconn.PgError{Code: "23505"}), models.CodeConflict},
		{"other sqlstate", &pgconn.PgError{Code: "23503"}, models.CodeInternal},
		{"plain error", errors.New("disk full"), models.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := storeError(tt.err, "Question", 1)
			assert.True(t, models.IsCode(err, tt.code), "got %v", err)

			var appErr *models.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.code == models.CodeConflict, appErr.Retryable())
		})
	}
}
