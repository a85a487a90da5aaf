package repository

import (
	"context"
	"log/slog"
	"sync"

	"devflow/internal/middleware"
	"devflow/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the unit of work over the record repositories. A Store is either
// bound to the primary connection or to one open transaction; repositories
// obtained from it run on the same handle.
type Store struct {
	db *gorm.DB
	tx *txScope
}

// txScope carries the deferred tasks of the outermost transaction.
type txScope struct {
	mu    sync.Mutex
	hooks []func(context.Context)
}

func (s *txScope) add(fn func(context.Context)) {
	s.mu.Lock()
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

func (s *txScope) run(ctx context.Context) {
	s.mu.Lock()
	hooks := s.hooks
	s.hooks = nil
	s.mu.Unlock()

	for _, fn := range hooks {
		runHook(ctx, fn)
	}
}

func runHook(ctx context.Context, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			middleware.Logger.ErrorContext(ctx, "after-commit task panicked", slog.Any("panic", r))
		}
	}()
	fn(ctx)
}

// NewStore returns a Store bound to db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for callers that need raw access.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// InTx reports whether the store is bound to a transaction.
func (s *Store) InTx() bool {
	return s.tx != nil
}

// WithinTx runs fn in a transaction. When the store is already bound to one,
// fn joins it and the outer caller owns commit. Deferred tasks registered with
// AfterCommit run once the outermost transaction commits, and are discarded if
// it aborts.
func (s *Store) WithinTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	scope := &txScope{}
	err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&Store{db: gtx, tx: scope})
	})
	if err != nil {
		return err
	}
	scope.run(context.WithoutCancel(ctx))
	return nil
}

// AfterCommit defers fn until the surrounding transaction commits. Outside a
// transaction fn runs immediately.
func (s *Store) AfterCommit(ctx context.Context, fn func(context.Context)) {
	if s.tx == nil {
		runHook(ctx, fn)
		return
	}
	s.tx.add(fn)
}

// Reader returns a store for read-only paths: the read replica when one is
// configured and the store is not transactional, otherwise s.
func (s *Store) Reader() *Store {
	if s.tx != nil {
		return s
	}
	return &Store{db: readDB(s.db)}
}

// lockForUpdate adds SELECT ... FOR UPDATE on dialects that support it.
func lockForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

func (s *Store) Questions() QuestionRepository {
	return NewQuestionRepository(s.db)
}

func (s *Store) Answers() AnswerRepository {
	return NewAnswerRepository(s.db)
}

func (s *Store) Tags() TagRepository {
	return NewTagRepository(s.db)
}

func (s *Store) Votes() VoteRepository {
	return NewVoteRepository(s.db)
}

func (s *Store) Saved() SavedRepository {
	return NewSavedRepository(s.db)
}

func (s *Store) Interactions() InteractionRepository {
	return NewInteractionRepository(s.db)
}

// Target returns the vote-target capability for kind.
func (s *Store) Target(kind models.TargetType) (VoteTarget, error) {
	switch kind {
	case models.TargetQuestion:
		return questionTarget{repo: s.Questions()}, nil
	case models.TargetAnswer:
		return answerTarget{repo: s.Answers()}, nil
	default:
		return nil, models.NewValidationError("target_type must be question or answer")
	}
}
