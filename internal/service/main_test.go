package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"devflow/internal/database"
	"devflow/internal/featureflags"
	"devflow/internal/models"
	"devflow/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *repository.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := database.GormConfig()
	cfg.Logger = logger.Default.LogMode(logger.Silent)

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)), cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return repository.NewStore(db)
}

// captureSink records interactions synchronously.
type captureSink struct {
	mu     sync.Mutex
	events []models.Interaction
}

func (c *captureSink) Record(_ context.Context, in models.Interaction) {
	c.mu.Lock()
	c.events = append(c.events, in)
	c.mu.Unlock()
}

func (c *captureSink) all() []models.Interaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Interaction(nil), c.events...)
}

type fixture struct {
	store     *repository.Store
	sink      *captureSink
	tags      *TagService
	questions *QuestionService
	answers   *AnswerService
	votes     *VoteService
	saved     *CollectionService
	recs      *RecommendationService
}

func newFixture(t *testing.T, flags string) *fixture {
	t.Helper()
	store := newTestStore(t)
	sink := &captureSink{}
	mgr := featureflags.NewManager(flags)
	tags := NewTagService(store, mgr)
	recs := NewRecommendationService(store)
	return &fixture{
		store:     store,
		sink:      sink,
		tags:      tags,
		recs:      recs,
		questions: NewQuestionService(store, tags, recs, mgr, sink),
		answers:   NewAnswerService(store, sink),
		votes:     NewVoteService(store, sink),
		saved:     NewCollectionService(store, sink),
	}
}

func (f *fixture) ask(t *testing.T, author uint, title string, tags ...string) *models.Question {
	t.Helper()
	q, err := f.questions.CreateQuestion(context.Background(), CreateQuestionInput{
		AuthorID: author,
		Title:    title,
		Content:  "Body of " + title,
		Tags:     tags,
	})
	require.NoError(t, err)
	return q
}

func (f *fixture) answer(t *testing.T, author, questionID uint) *models.Answer {
	t.Helper()
	a, err := f.answers.CreateAnswer(context.Background(), CreateAnswerInput{
		AuthorID:   author,
		QuestionID: questionID,
		Content:    "An answer",
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) vote(t *testing.T, actor, target uint, kind models.TargetType, v models.VoteType) *VoteResult {
	t.Helper()
	res, err := f.votes.CastVote(context.Background(), CastVoteInput{
		ActorID: actor, TargetID: target, TargetType: kind, VoteType: v,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) reload(t *testing.T, id uint) *models.Question {
	t.Helper()
	q, err := f.store.Questions().GetByID(context.Background(), id)
	require.NoError(t, err)
	return q
}

func (f *fixture) tagCount(t *testing.T, name string) int {
	t.Helper()
	var tag models.Tag
	require.NoError(t, f.store.DB().Where("name_key = ?", models.TagKey(name)).First(&tag).Error)
	return tag.Questions
}

func (f *fixture) count(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.store.DB().Model(model).Where(where, args...).Count(&n).Error)
	return n
}
