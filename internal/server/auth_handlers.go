package server

import (
	"log/slog"
	"strings"

	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AuthResponse is returned by login and refresh. The tokens are also set as cookies;
// clients that authenticate with a Bearer header read them from the body.
type AuthResponse struct {
	User         *models.Identity `json:"user,omitempty"`
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
}

// Register handles POST /api/v1/users/register
// @Summary Register a user
// @Description Create an account. Does not start a session.
// @Tags users
// @Accept json
// @Produce json
// @Param request body service.RegisterInput true "Registration details"
// @Success 201 {object} models.APIResponse{data=models.Identity}
// @Failure 400 {object} models.ErrorResponse
// @Router /users/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req service.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	identity, err := s.userService.Register(c.UserContext(), req)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return models.Respond(c, fiber.StatusCreated, "Registration successful: User account created.", identity)
}

// Login handles POST /api/v1/users/login
// @Summary User login
// @Description Verify credentials, set the session cookies and return the token pair
// @Tags users
// @Accept json
// @Produce json
// @Param request body service.LoginInput true "Login credentials"
// @Success 200 {object} models.APIResponse{data=AuthResponse}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /users/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req service.LoginInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	identity, pair, err := s.userService.Login(c.UserContext(), req)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	s.setSessionCookies(c, pair.AccessToken, pair.RefreshToken)
	return models.Respond(c, fiber.StatusOK, "Login successful: Welcome back!", AuthResponse{
		User:         identity,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Logout handles POST /api/v1/users/logout
// @Summary Log out
// @Description Revoke the refresh token and clear the session cookies
// @Tags users
// @Produce json
// @Success 200 {object} models.APIResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	if err := s.userService.Logout(c.UserContext(), userID); err != nil {
		return models.RespondWithError(c, err)
	}

	s.clearSessionCookies(c)
	return models.Respond(c, fiber.StatusOK, "Logout successful: You have been logged out.", fiber.Map{})
}

// RefreshToken handles POST /api/v1/users/refresh-token
// The refresh token is read from its cookie, then a Bearer header, then a JSON body field.
// @Summary Rotate the token pair
// @Description Exchange the live refresh token for a new pair. A replayed token is rejected.
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{refreshToken=string} false "Refresh token, when not sent as cookie or Bearer"
// @Success 200 {object} models.APIResponse{data=AuthResponse}
// @Failure 401 {object} models.ErrorResponse
// @Router /users/refresh-token [post]
func (s *Server) RefreshToken(c *fiber.Ctx) error {
	presented := middleware.ExtractToken(c, middleware.RefreshTokenCookie)
	if presented == "" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if len(c.Body()) > 0 {
			_ = c.BodyParser(&body)
		}
		presented = strings.TrimSpace(body.RefreshToken)
	}

	pair, identity, err := s.tokenService.Refresh(c.UserContext(), presented)
	if err != nil {
		if models.StatusFor(err) >= fiber.StatusInternalServerError {
			middleware.Logger.ErrorContext(c.UserContext(), "token refresh failed", slog.String("error", err.Error()))
		}
		return models.RespondWithError(c, err)
	}

	s.setSessionCookies(c, pair.AccessToken, pair.RefreshToken)
	return models.Respond(c, fiber.StatusOK, "Token refresh successful: New tokens issued.", AuthResponse{
		User:         identity,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// GetCurrentUser handles GET /api/v1/users/get-current-user
// @Summary Current user
// @Tags users
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.Identity}
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/get-current-user [get]
func (s *Server) GetCurrentUser(c *fiber.Ctx) error {
	identity, err := middleware.CurrentIdentity(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "User details retrieved successfully.", identity)
}
