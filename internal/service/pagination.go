package service

import (
	"math"

	"devflow/internal/models"
	"devflow/internal/repository"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Pagination is the 1-based page window accepted by list operations.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

func (p Pagination) window() repository.Page {
	page, size := p.Page, p.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	page = min(page, math.MaxInt/size)
	return repository.Page{Offset: (page - 1) * size, Limit: size}
}

// hasMore reports whether rows remain past the returned window.
func hasMore(total int64, w repository.Page, returned int) bool {
	return total > int64(w.Offset+returned)
}

// QuestionPage is one page of questions.
type QuestionPage struct {
	Questions []models.Question `json:"questions"`
	IsNext    bool              `json:"is_next"`
}
