package validation

import (
	"strings"
	"testing"

	"devflow/internal/models"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Title  string   `json:"title" validate:"notblank,min=5,max=130"`
	Tags   []string `json:"tags" validate:"min=1,max=3,dive,notblank,max=15"`
	Filter string   `json:"filter" validate:"omitempty,oneof=newest popular"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		in      sample
		wantMsg string
	}{
		{"valid", sample{Title: "Hello world", Tags: []string{"go"}}, ""},
		{"blank title", sample{Title: "   ", Tags: []string{"go"}}, "title is required"},
		{"short title", sample{Title: "Hey", Tags: []string{"go"}}, "title must be at least 5 characters"},
		{"no tags", sample{Title: "Hello world"}, "tags must have at least 1 item(s)"},
		{"too many tags", sample{Title: "Hello world", Tags: []string{"a", "b", "c", "d"}}, "tags must have at most 3 items"},
		{"long tag", sample{Title: "Hello world", Tags: []string{strings.Repeat("x", 16)}}, "must be at most 15 characters"},
		{"bad filter", sample{Title: "Hello world", Tags: []string{"go"}, Filter: "hot"}, "filter must be one of: newest popular"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, models.IsCode(err, models.CodeValidation))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
