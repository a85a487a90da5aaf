package server

import (
	"devflow/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListTags handles GET /api/tags?filter=&query=&page=&page_size=
func (s *Server) ListTags(c *fiber.Ctx) error {
	page, err := s.tagService.ListTags(c.UserContext(), service.ListTagsInput{
		Filter:     c.Query("filter"),
		Query:      c.Query("query"),
		Pagination: parsePagination(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// ListTagQuestions handles GET /api/tags/:id/questions
func (s *Server) ListTagQuestions(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	page, err := s.tagService.ListTagQuestions(c.UserContext(), service.ListTagQuestionsInput{
		TagID:      id,
		Query:      c.Query("query"),
		Pagination: parsePagination(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}
