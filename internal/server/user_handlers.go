package server

import (
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetUserByID handles GET /api/v1/users/id/:userId
// @Summary Get a user's public profile
// @Tags users
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {object} models.APIResponse{data=models.PublicProfile}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/id/{userId} [get]
func (s *Server) GetUserByID(c *fiber.Ctx) error {
	id, err := parseUserID(c, "userId")
	if err != nil {
		return models.RespondWithError(c, err)
	}

	profile, err := s.userService.GetPublicProfile(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return models.Respond(c, fiber.StatusOK, "Fetched successfully", profile)
}
