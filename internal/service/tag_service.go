package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"devflow/internal/featureflags"
	"devflow/internal/middleware"
	"devflow/internal/models"
	"devflow/internal/observability"
	"devflow/internal/repository"
	"devflow/internal/validation"
)

// TagService owns tag identity, reference counts and question links.
type TagService struct {
	store *repository.Store
	flags *featureflags.Manager
}

// TagDiff is the reconciliation plan between a question's tags and a desired
// name list.
type TagDiff struct {
	ToAdd    []string
	ToRemove []models.Tag
}

type ListTagsInput struct {
	Filter string `json:"filter" validate:"omitempty,oneof=popular recent oldest name"`
	Query  string `json:"query"`
	Pagination
}

type ListTagQuestionsInput struct {
	TagID uint
	Query string
	Pagination
}

// TagPage is one page of tags.
type TagPage struct {
	Tags   []models.Tag `json:"tags"`
	IsNext bool         `json:"is_next"`
}

// TagQuestionsPage is a tag with one page of its questions.
type TagQuestionsPage struct {
	Tag       models.Tag        `json:"tag"`
	Questions []models.Question `json:"questions"`
	IsNext    bool              `json:"is_next"`
}

func NewTagService(store *repository.Store, flags *featureflags.Manager) *TagService {
	if flags == nil {
		flags = featureflags.NewManager("")
	}
	return &TagService{store: store, flags: flags}
}

// NormalizeTagNames trims names, drops blanks and collapses case-insensitive
// duplicates, keeping the first spelling.
func NormalizeTagNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		key := models.TagKey(name)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}

// DiffTags compares current against desired. With containment false names
// match by case-insensitive equality. With containment true a desired name is
// kept when some current tag name contains it, and a current tag is kept when
// some desired name contains its name, so "java" and "javascript" are treated
// as the same tag.
func DiffTags(current []models.Tag, desired []string, containment bool) TagDiff {
	desired = NormalizeTagNames(desired)
	var diff TagDiff

	if !containment {
		have := make(map[string]struct{}, len(current))
		for _, tag := range current {
			have[models.TagKey(tag.Name)] = struct{}{}
		}
		want := make(map[string]struct{}, len(desired))
		for _, name := range desired {
			key := models.TagKey(name)
			want[key] = struct{}{}
			if _, ok := have[key]; !ok {
				diff.ToAdd = append(diff.ToAdd, name)
			}
		}
		for _, tag := range current {
			if _, ok := want[models.TagKey(tag.Name)]; !ok {
				diff.ToRemove = append(diff.ToRemove, tag)
			}
		}
		return diff
	}

	for _, name := range desired {
		key := models.TagKey(name)
		matched := false
		for _, tag := range current {
			if strings.Contains(models.TagKey(tag.Name), key) {
				matched = true
				break
			}
		}
		if !matched {
			diff.ToAdd = append(diff.ToAdd, name)
		}
	}
	for _, tag := range current {
		tagKey := models.TagKey(tag.Name)
		matched := false
		for _, name := range desired {
			if strings.Contains(models.TagKey(name), tagKey) {
				matched = true
				break
			}
		}
		if !matched {
			diff.ToRemove = append(diff.ToRemove, tag)
		}
	}
	return diff
}

// Diff plans a reconciliation using the matching policy configured for actor.
func (s *TagService) Diff(actorID uint, current []models.Tag, desired []string) TagDiff {
	return DiffTags(current, desired, s.flags.Enabled(featureflags.TagContainmentDiff, actorID))
}

var errTagsOutsideTx = models.NewInternalError(errors.New("tag references changed outside a transaction"))

// ResolveTags takes one reference on each named tag, creating missing ones,
// and returns them in input order. tx must be transactional so the count
// moves with the link rows.
func (s *TagService) ResolveTags(ctx context.Context, tx *repository.Store, names []string) ([]models.Tag, error) {
	if !tx.InTx() {
		return nil, errTagsOutsideTx
	}
	names = NormalizeTagNames(names)
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		tag, first, err := tx.Tags().Resolve(ctx, name)
		if err != nil {
			return nil, storeError(err, "Tag", name)
		}
		outcome := "linked"
		if first {
			outcome = "created"
		}
		observability.TagsResolved.WithLabelValues(outcome).Inc()
		tags = append(tags, *tag)
	}
	return tags, nil
}

// ReleaseTags drops one reference from each tag. Tags reaching zero are kept.
func (s *TagService) ReleaseTags(ctx context.Context, tx *repository.Store, ids []uint) error {
	if !tx.InTx() {
		return errTagsOutsideTx
	}
	return storeError(tx.Tags().Release(ctx, ids), "Tag", ids)
}

func tagIDs(tags []models.Tag) []uint {
	ids := make([]uint, 0, len(tags))
	for _, t := range tags {
		ids = append(ids, t.ID)
	}
	return ids
}

func (s *TagService) ListTags(ctx context.Context, in ListTagsInput) (*TagPage, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	w := in.window()
	tags, total, err := s.store.Reader().Tags().List(ctx, repository.TagQuery{
		Filter: in.Filter,
		Search: in.Query,
		Page:   w,
	})
	if err != nil {
		return nil, storeError(err, "Tag", nil)
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	return &TagPage{Tags: tags, IsNext: hasMore(total, w, len(tags))}, nil
}

func (s *TagService) ListTagQuestions(ctx context.Context, in ListTagQuestionsInput) (*TagQuestionsPage, error) {
	reader := s.store.Reader()
	tag, err := reader.Tags().GetByID(ctx, in.TagID)
	if err != nil {
		return nil, storeError(err, "Tag", in.TagID)
	}

	w := in.window()
	questions, total, err := reader.Questions().ListByTag(ctx, in.TagID, in.Query, w)
	if err != nil {
		return nil, storeError(err, "Question", nil)
	}
	if questions == nil {
		questions = []models.Question{}
	}
	return &TagQuestionsPage{Tag: *tag, Questions: questions, IsNext: hasMore(total, w, len(questions))}, nil
}

// PruneOrphanTags deletes tags that no question references. Normal flows never
// call it; tags otherwise form a stable namespace.
func (s *TagService) PruneOrphanTags(ctx context.Context) (int64, error) {
	n, err := s.store.Tags().PruneOrphans(ctx)
	if err != nil {
		return 0, storeError(err, "Tag", nil)
	}
	middleware.Logger.InfoContext(ctx, "pruned orphan tags", slog.Int64("deleted", n))
	return n, nil
}
