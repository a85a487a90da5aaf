package server

import (
	"devflow/internal/middleware"
	"devflow/internal/models"
	"devflow/internal/service"

	"github.com/gofiber/fiber/v2"
)

type voteRequest struct {
	TargetID   uint              `json:"target_id"`
	TargetType models.TargetType `json:"target_type"`
	VoteType   models.VoteType   `json:"vote_type"`
}

// CastVote handles POST /api/votes. Casting the same polarity twice removes
// the vote; the opposite polarity switches it.
func (s *Server) CastVote(c *fiber.Ctx) error {
	var req voteRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.TargetID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("target_id is required"))
	}

	result, err := s.voteService.CastVote(c.UserContext(), service.CastVoteInput{
		ActorID:    middleware.UserID(c),
		TargetID:   req.TargetID,
		TargetType: req.TargetType,
		VoteType:   req.VoteType,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GetVoteState handles GET /api/votes?target_id=&target_type=
func (s *Server) GetVoteState(c *fiber.Ctx) error {
	targetID := c.QueryInt("target_id", 0)
	if targetID <= 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid target ID"))
	}

	status, err := s.voteService.GetVoteState(c.UserContext(),
		middleware.UserID(c), uint(targetID), models.TargetType(c.Query("target_type")))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status)
}
