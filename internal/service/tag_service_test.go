package service

import (
	"context"
	"testing"

	"devflow/internal/models"
	"devflow/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(tags []models.Tag) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.Name)
	}
	return out
}

func TestNormalizeTagNames(t *testing.T) {
	assert.Equal(t, []string{"Go", "rust"}, NormalizeTagNames([]string{" Go ", "", "go", "rust", "  "}))
}

func TestDiffTags(t *testing.T) {
	current := []models.Tag{{ID: 1, Name: "javascript"}, {ID: 2, Name: "React"}}

	tests := []struct {
		name        string
		desired     []string
		containment bool
		add         []string
		remove      []string
	}{
		{"unchanged ignores case", []string{"JavaScript", "react"}, false, nil, nil},
		{"exact add and remove", []string{"java", "react"}, false, []string{"java"}, []string{"javascript"}},
		{"containment treats java as javascript", []string{"java", "react"}, true, nil, []string{"javascript"}},
		{"containment keeps superset names", []string{"reactjs", "javascript"}, true, []string{"reactjs"}, nil},
		{"empty desired removes all", nil, false, nil, []string{"javascript", "React"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff := DiffTags(current, tt.desired, tt.containment)
			assert.Equal(t, tt.add, diff.ToAdd)
			if tt.remove == nil {
				assert.Empty(t, diff.ToRemove)
			} else {
				assert.Equal(t, tt.remove, names(diff.ToRemove))
			}
		})
	}
}

func TestTagService_CaseInsensitiveIdentity(t *testing.T) {
	f := newFixture(t, "")
	f.ask(t, 1, "First go question", "Go")
	f.ask(t, 2, "Second go question", "go")

	assert.EqualValues(t, 1, f.count(t, &models.Tag{}, "name_key = ?", "go"))
	assert.Equal(t, 2, f.tagCount(t, "GO"))
}

func TestTagService_ListTagsAndQuestions(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	q := f.ask(t, 1, "Tagged question one", "go", "sql")
	f.ask(t, 1, "Tagged question two", "go")

	page, err := f.tags.ListTags(ctx, ListTagsInput{Filter: models.TagFilterPopular})
	require.NoError(t, err)
	require.Len(t, page.Tags, 2)
	assert.Equal(t, "go", page.Tags[0].Name)
	assert.False(t, page.IsNext)

	page, err = f.tags.ListTags(ctx, ListTagsInput{Pagination: Pagination{Page: 1, PageSize: 1}})
	require.NoError(t, err)
	assert.True(t, page.IsNext)

	_, err = f.tags.ListTags(ctx, ListTagsInput{Filter: "hottest"})
	assert.True(t, models.IsCode(err, models.CodeValidation))

	sqlTag := q.Tags[1]
	tq, err := f.tags.ListTagQuestions(ctx, ListTagQuestionsInput{TagID: sqlTag.ID})
	require.NoError(t, err)
	assert.Equal(t, "sql", tq.Tag.Name)
	require.Len(t, tq.Questions, 1)
	assert.Equal(t, q.ID, tq.Questions[0].ID)

	_, err = f.tags.ListTagQuestions(ctx, ListTagQuestionsInput{TagID: 999})
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestTagService_PruneOrphanTags(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	q := f.ask(t, 1, "Soon gone question", "ephemeral", "go")
	f.ask(t, 2, "Staying question", "go")

	_, err := f.questions.DeleteQuestion(ctx, DeleteQuestionInput{ActorID: 1, QuestionID: q.ID})
	require.NoError(t, err)
	assert.Zero(t, f.tagCount(t, "ephemeral"), "zero-count tags persist until pruned")

	n, err := f.tags.PruneOrphanTags(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Zero(t, f.count(t, &models.Tag{}, "name_key = ?", "ephemeral"))
	assert.Equal(t, 1, f.tagCount(t, "go"))
}

func TestTagService_ReferencesNeedTransaction(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	_, err := f.tags.ResolveTags(ctx, f.store, []string{"go"})
	assert.True(t, models.IsCode(err, models.CodeInternal))
	assert.True(t, models.IsCode(f.tags.ReleaseTags(ctx, f.store, []uint{1}), models.CodeInternal))
	assert.Zero(t, f.count(t, &models.Tag{}, "name_key = ?", "go"), "nothing written outside a transaction")

	err = f.store.WithinTx(ctx, func(tx *repository.Store) error {
		tags, err := f.tags.ResolveTags(ctx, tx, []string{"go"})
		require.NoError(t, err)
		require.Len(t, tags, 1)
		return f.tags.ReleaseTags(ctx, tx, []uint{tags[0].ID})
	})
	require.NoError(t, err)
	assert.Zero(t, f.tagCount(t, "go"))
}
