// Package seed generates development data by driving the services, so the
// seeded counters obey the same rules as live traffic.
package seed

import (
	"fmt"
	"strings"
	"time"

	"devflow/internal/service"
	"devflow/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
)

// Factory builds service inputs from fake content.
type Factory struct {
	faker *gofakeit.Faker
	tags  []string
}

// NewFactory returns a Factory drawing tags from pool. A zero seed picks a
// random one.
func NewFactory(seed int64, pool []string) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{faker: gofakeit.New(seed), tags: pool}
}

// Question builds a valid create request for authorID.
func (f *Factory) Question(authorID uint, overrides ...func(*service.CreateQuestionInput)) service.CreateQuestionInput {
	in := service.CreateQuestionInput{
		AuthorID: authorID,
		Title:    f.title(),
		Content:  f.markdown(),
		Tags:     f.pickTags(),
	}
	for _, override := range overrides {
		override(&in)
	}
	return in
}

// Answer builds a valid answer request.
func (f *Factory) Answer(authorID, questionID uint) service.CreateAnswerInput {
	return service.CreateAnswerInput{
		AuthorID:   authorID,
		QuestionID: questionID,
		Content:    f.markdown(),
	}
}

// Between returns a number in [lo, hi].
func (f *Factory) Between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return f.faker.Number(lo, hi)
}

// Actor returns a user id in [1, users].
func (f *Factory) Actor(users int) uint {
	return uint(f.Between(1, users))
}

// Bool flips a coin.
func (f *Factory) Bool() bool {
	return f.faker.Bool()
}

// Backdate returns a creation time up to maxDays in the past.
func (f *Factory) Backdate(maxDays int) time.Time {
	if maxDays <= 0 {
		maxDays = 90
	}
	offset := time.Duration(f.Between(0, maxDays*24*60)) * time.Minute
	return time.Now().Add(-offset)
}

func (f *Factory) title() string {
	phrase := strings.TrimSuffix(f.faker.HackerPhrase(), ".")
	if phrase == "" {
		phrase = f.faker.Sentence(6)
	}
	title := "How do I " + strings.ToLower(phrase[:1]) + phrase[1:] + "?"
	if len(title) > validation.TitleMaxLen {
		title = title[:validation.TitleMaxLen-1] + "?"
	}
	return title
}

func (f *Factory) markdown() string {
	return fmt.Sprintf("%s\n\n```go\nfmt.Println(%q)\n```\n\n%s",
		f.faker.Paragraph(1, 3, 12, "\n\n"),
		f.faker.HackerNoun(),
		f.faker.Sentence(10),
	)
}

func (f *Factory) pickTags() []string {
	n := f.Between(1, min(validation.MaxTags, len(f.tags)))
	pool := append([]string(nil), f.tags...)
	f.faker.ShuffleStrings(pool)
	return pool[:n]
}
