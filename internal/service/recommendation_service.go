package service

import (
	"context"

	"devflow/internal/models"
	"devflow/internal/repository"
)

// affinityWindow caps how much history feeds one recommendation.
const affinityWindow = 50

// RecommendationService ranks questions by tag affinity with what the actor
// recently viewed, upvoted, bookmarked or posted.
type RecommendationService struct {
	store *repository.Store
}

type RecommendInput struct {
	ActorID uint
	Query   string
	Pagination
}

func NewRecommendationService(store *repository.Store) *RecommendationService {
	return &RecommendationService{store: store}
}

// ListRecommended returns candidates that share a tag with the actor's recent
// questions, excluding the actor's own questions and ones already touched,
// ordered by upvotes then views. No history means an empty page.
func (s *RecommendationService) ListRecommended(ctx context.Context, in RecommendInput) (*QuestionPage, error) {
	empty := &QuestionPage{Questions: []models.Question{}}
	if in.ActorID == 0 {
		return empty, nil
	}

	reader := s.store.Reader()
	history, err := reader.Interactions().RecentByActor(ctx, in.ActorID, models.TargetQuestion, models.AffinityActions, affinityWindow)
	if err != nil {
		return nil, storeError(err, "Interaction", in.ActorID)
	}
	touched := distinctTargets(history)
	if len(touched) == 0 {
		return empty, nil
	}

	affinity, err := reader.Tags().TagIDsForQuestions(ctx, touched)
	if err != nil {
		return nil, storeError(err, "Tag", nil)
	}
	if len(affinity) == 0 {
		return empty, nil
	}

	w := in.window()
	questions, total, err := reader.Questions().Recommend(ctx, repository.RecommendQuery{
		ActorID:    in.ActorID,
		ExcludeIDs: touched,
		TagIDs:     affinity,
		Search:     in.Query,
		Page:       w,
	})
	if err != nil {
		return nil, storeError(err, "Question", nil)
	}
	if questions == nil {
		questions = []models.Question{}
	}
	return &QuestionPage{Questions: questions, IsNext: hasMore(total, w, len(questions))}, nil
}

func distinctTargets(history []models.Interaction) []uint {
	seen := make(map[uint]struct{}, len(history))
	ids := make([]uint, 0, len(history))
	for _, in := range history {
		if _, ok := seen[in.TargetID]; ok {
			continue
		}
		seen[in.TargetID] = struct{}{}
		ids = append(ids, in.TargetID)
	}
	return ids
}
