package server

import (
	"devflow/internal/middleware"
	"devflow/internal/service"

	"github.com/gofiber/fiber/v2"
)

type questionRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// ListQuestions handles GET /api/questions?filter=&query=&page=&page_size=
func (s *Server) ListQuestions(c *fiber.Ctx) error {
	page, err := s.questionService.ListQuestions(c.UserContext(), service.ListQuestionsInput{
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

// ListHotQuestions handles GET /api/questions/hot
func (s *Server) ListHotQuestions(c *fiber.Ctx) error {
	questions, err := s.questionService.ListHotQuestions(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(questions)
}

// ListRecommended handles GET /api/questions/recommended. Anonymous callers
// get an empty page.
func (s *Server) ListRecommended(c *fiber.Ctx) error {
	page, err := s.recommendationSvc.ListRecommended(c.UserContext(), service.RecommendInput{
		ActorID:    middleware.UserID(c),
		Query:      c.Query("query"),
		Pagination: parsePagination(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// CreateQuestion handles POST /api/questions
func (s *Server) CreateQuestion(c *fiber.Ctx) error {
	var req questionRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	q, err := s.questionService.CreateQuestion(c.UserContext(), service.CreateQuestionInput{
		AuthorID: middleware.UserID(c),
		Title:    req.Title,
		Content:  req.Content,
		Tags:     req.Tags,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(q)
}

// GetQuestion handles GET /api/questions/:id
func (s *Server) GetQuestion(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	q, err := s.questionService.GetQuestion(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(q)
}

// EditQuestion handles PUT /api/questions/:id
func (s *Server) EditQuestion(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req questionRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	q, err := s.questionService.EditQuestion(c.UserContext(), service.EditQuestionInput{
		ActorID:    middleware.UserID(c),
		QuestionID: id,
		Title:      req.Title,
		Content:    req.Content,
		Tags:       req.Tags,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(q)
}

// DeleteQuestion handles DELETE /api/questions/:id and reports what the
// cascade removed.
func (s *Server) DeleteQuestion(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	report, err := s.questionService.DeleteQuestion(c.UserContext(), service.DeleteQuestionInput{
		ActorID:    middleware.UserID(c),
		QuestionID: id,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}

// IncrementViews handles POST /api/questions/:id/views
func (s *Server) IncrementViews(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	views, err := s.questionService.IncrementViews(c.UserContext(), service.IncrementViewsInput{
		ActorID:    middleware.UserID(c),
		QuestionID: id,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"views": views})
}
