package server

import (
	"devflow/internal/middleware"
	"devflow/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ToggleSaved handles POST /api/questions/:id/save
func (s *Server) ToggleSaved(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	state, err := s.collectionService.ToggleSaved(c.UserContext(), service.ToggleSavedInput{
		ActorID:    middleware.UserID(c),
		QuestionID: id,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(state)
}

// GetSavedState handles GET /api/questions/:id/saved
func (s *Server) GetSavedState(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	state, err := s.collectionService.GetSavedState(c.UserContext(), middleware.UserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(state)
}

// ListSavedQuestions handles GET /api/collections?filter=&query=&page=&page_size=
func (s *Server) ListSavedQuestions(c *fiber.Ctx) error {
	page, err := s.collectionService.ListSaved(c.UserContext(), service.ListSavedInput{
		ActorID:    middleware.UserID(c),
		Filter:     c.Query("filter"),
		Query:      c.Query("query"),
		Pagination: parsePagination(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}
