package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	QuestionKeyPrefix = "question:%d"
	HotQuestionsKey   = "questions:hot"
)

const (
	QuestionTTL     = 10 * time.Minute
	HotQuestionsTTL = 5 * time.Minute
)

func QuestionKey(questionID uint) string {
	return fmt.Sprintf(QuestionKeyPrefix, questionID)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateQuestion drops the question detail and the hot list, which may
// embed it.
func InvalidateQuestion(ctx context.Context, questionID uint) {
	Invalidate(ctx, QuestionKey(questionID), HotQuestionsKey)
}
