package server

import (
	"devflow/internal/middleware"
	"devflow/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListAnswers handles GET /api/questions/:id/answers?filter=&page=&page_size=
func (s *Server) ListAnswers(c *fiber.Ctx) error {
	questionID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	page, err := s.answerService.ListAnswers(c.UserContext(), service.ListAnswersInput{
		QuestionID: questionID,
		Filter:     c.Query("filter"),
		Pagination: parsePagination(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// CreateAnswer handles POST /api/questions/:id/answers
func (s *Server) CreateAnswer(c *fiber.Ctx) error {
	questionID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	answer, err := s.answerService.CreateAnswer(c.UserContext(), service.CreateAnswerInput{
		AuthorID:   middleware.UserID(c),
		QuestionID: questionID,
		Content:    req.Content,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(answer)
}

// DeleteAnswer handles DELETE /api/answers/:id
func (s *Server) DeleteAnswer(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.answerService.DeleteAnswer(c.UserContext(), service.DeleteAnswerInput{
		ActorID:  middleware.UserID(c),
		AnswerID: id,
	}); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
