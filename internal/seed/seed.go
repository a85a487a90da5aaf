package seed

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"devflow/internal/database"
	"devflow/internal/featureflags"
	"devflow/internal/middleware"
	"devflow/internal/models"
	"devflow/internal/repository"
	"devflow/internal/service"

	"gorm.io/gorm"
)

// Report counts what a run wrote.
type Report struct {
	Questions int
	Answers   int
	Votes     int
	Saves     int
	Views     int
}

// Seeder writes a Profile's worth of content through the services.
type Seeder struct {
	db      *gorm.DB
	store   *repository.Store
	profile *Profile
	factory *Factory

	questions   *service.QuestionService
	answers     *service.AnswerService
	votes       *service.VoteService
	collections *service.CollectionService
}

// storeSink writes interactions synchronously so a seeded database already
// has recommendation history.
type storeSink struct {
	store *repository.Store
}

func (s storeSink) Record(ctx context.Context, in models.Interaction) {
	if err := s.store.Interactions().Create(ctx, &in); err != nil {
		middleware.Logger.WarnContext(ctx, "seed interaction failed", slog.String("error", err.Error()))
	}
}

// NewSeeder binds a Seeder to db.
func NewSeeder(db *gorm.DB, p *Profile) *Seeder {
	store := repository.NewStore(db)

	var sink service.InteractionSink = service.NopSink{}
	if p.RecordInteractions {
		sink = storeSink{store: store}
	}
	flags := featureflags.NewManager("")
	tags := service.NewTagService(store, flags)

	return &Seeder{
		db:          db,
		store:       store,
		profile:     p,
		factory:     NewFactory(p.Seed, p.Tags),
		questions:   service.NewQuestionService(store, tags, service.NewRecommendationService(store), flags, sink),
		answers:     service.NewAnswerService(store, sink),
		votes:       service.NewVoteService(store, sink),
		collections: service.NewCollectionService(store, sink),
	}
}

// Run seeds questions with answers, then spreads votes, saves and views over
// them.
func (s *Seeder) Run(ctx context.Context) (*Report, error) {
	p, f := s.profile, s.factory
	report := &Report{}
	log := middleware.Logger

	log.InfoContext(ctx, "seeding",
		slog.String("profile", p.Name),
		slog.Int("users", p.Users),
		slog.Int("questions", p.Questions),
	)

	var answerIDs []uint
	questionIDs := make([]uint, 0, p.Questions)
	for range p.Questions {
		q, err := s.questions.CreateQuestion(ctx, f.Question(f.Actor(p.Users)))
		if err != nil {
			return report, fmt.Errorf("create question: %w", err)
		}
		if err := s.db.WithContext(ctx).Model(&models.Question{}).Where("id = ?", q.ID).
			UpdateColumn("created_at", f.Backdate(p.MaxDays)).Error; err != nil {
			return report, fmt.Errorf("backdate question: %w", err)
		}
		questionIDs = append(questionIDs, q.ID)
		report.Questions++

		for range f.Between(0, p.MaxAnswers) {
			a, err := s.answers.CreateAnswer(ctx, f.Answer(f.Actor(p.Users), q.ID))
			if err != nil {
				return report, fmt.Errorf("create answer: %w", err)
			}
			answerIDs = append(answerIDs, a.ID)
			report.Answers++
		}
	}

	for _, id := range questionIDs {
		if err := s.engage(ctx, id, report); err != nil {
			return report, err
		}
	}
	for _, id := range answerIDs {
		if err := s.vote(ctx, models.TargetAnswer, id, f.Between(0, p.MaxVotes/2), report); err != nil {
			return report, err
		}
	}

	log.InfoContext(ctx, "seeding complete",
		slog.Int("questions", report.Questions),
		slog.Int("answers", report.Answers),
		slog.Int("votes", report.Votes),
		slog.Int("saves", report.Saves),
		slog.Int("views", report.Views),
	)
	return report, nil
}

func (s *Seeder) engage(ctx context.Context, questionID uint, report *Report) error {
	p, f := s.profile, s.factory

	if err := s.vote(ctx, models.TargetQuestion, questionID, f.Between(0, p.MaxVotes), report); err != nil {
		return err
	}

	for range f.Between(0, p.MaxSaves) {
		state, err := s.collections.ToggleSaved(ctx, service.ToggleSavedInput{
			ActorID:    f.Actor(p.Users),
			QuestionID: questionID,
		})
		if err != nil {
			return fmt.Errorf("toggle saved: %w", err)
		}
		if state.Saved {
			report.Saves++
		} else {
			report.Saves--
		}
	}

	// A few views go through the service for interaction history; the rest
	// bump the counter directly.
	views := f.Between(0, p.MaxViews)
	tracked := min(views, 3)
	for range tracked {
		if _, err := s.questions.IncrementViews(ctx, service.IncrementViewsInput{
			ActorID:    f.Actor(p.Users),
			QuestionID: questionID,
		}); err != nil {
			return fmt.Errorf("increment views: %w", err)
		}
	}
	if rest := views - tracked; rest > 0 {
		if err := s.db.WithContext(ctx).Model(&models.Question{}).Where("id = ?", questionID).
			UpdateColumn("views", gorm.Expr("views + ?", rest)).Error; err != nil {
			return fmt.Errorf("bump views: %w", err)
		}
	}
	report.Views += views
	return nil
}

func (s *Seeder) vote(ctx context.Context, kind models.TargetType, targetID uint, n int, report *Report) error {
	for range n {
		voteType := models.VoteUp
		// Skew towards upvotes.
		if !s.factory.Bool() && !s.factory.Bool() {
			voteType = models.VoteDown
		}
		if _, err := s.votes.CastVote(ctx, service.CastVoteInput{
			ActorID:    s.factory.Actor(s.profile.Users),
			TargetID:   targetID,
			TargetType: kind,
			VoteType:   voteType,
		}); err != nil {
			return fmt.Errorf("cast vote: %w", err)
		}
		report.Votes++
	}
	return nil
}

// Clear deletes every row of the content tables.
func Clear(ctx context.Context, db *gorm.DB) error {
	tables := database.PersistentModels()
	slices.Reverse(tables)
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range tables {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return fmt.Errorf("clear %T: %w", m, err)
			}
		}
		return nil
	})
}
