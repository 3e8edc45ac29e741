package server

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"quill/internal/middleware"
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const featuredImageField = "featuredImage"

// parsePage reads the "page" query parameter. Missing, unparsable and zero
// values mean the first page; negative values are rejected by the service.
func parsePage(c *fiber.Ctx) int {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil {
		return 1
	}
	return page
}

// parseUserID extracts a route parameter as a positive user id.
func parseUserID(c *fiber.Ctx, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(param), 10, 64)
	if err != nil || id == 0 {
		return 0, models.NewValidationError("Invalid user ID")
	}
	return uint(id), nil
}

// currentUserID returns the id the session middleware stored for this request.
func currentUserID(c *fiber.Ctx) (uint, error) {
	identity, err := middleware.CurrentIdentity(c)
	if err != nil {
		return 0, err
	}
	return identity.ID, nil
}

func (s *Server) sessionCookie(name, value string, expires time.Time) *fiber.Cookie {
	sameSite := fiber.CookieSameSiteLaxMode
	if s.config.CookieSecure {
		sameSite = fiber.CookieSameSiteNoneMode
	}
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: sameSite,
	}
}

// setSessionCookies stores both tokens as HttpOnly cookies that expire with the tokens.
func (s *Server) setSessionCookies(c *fiber.Ctx, accessToken, refreshToken string) {
	now := time.Now()
	c.Cookie(s.sessionCookie(middleware.AccessTokenCookie, accessToken, now.Add(s.config.AccessTokenExpiry)))
	c.Cookie(s.sessionCookie(middleware.RefreshTokenCookie, refreshToken, now.Add(s.config.RefreshTokenExpiry)))
}

func (s *Server) clearSessionCookies(c *fiber.Ctx) {
	expired := time.Unix(0, 0)
	c.Cookie(s.sessionCookie(middleware.AccessTokenCookie, "", expired))
	c.Cookie(s.sessionCookie(middleware.RefreshTokenCookie, "", expired))
}

// saveFeaturedImage stores the optional featuredImage upload in the upload
// directory and returns its path, or "" when the form carries no file. The
// caller removes the file once the request is done.
func (s *Server) saveFeaturedImage(c *fiber.Ctx) (string, error) {
	// A missing file and a non-multipart body both mean "no image".
	file, err := c.FormFile(featuredImageField)
	if err != nil {
		return "", nil
	}

	dir := s.config.UploadDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, uuid.NewString()+strings.ToLower(filepath.Ext(file.Filename)))
	if err := c.SaveFile(file, path); err != nil {
		return "", models.NewInternalError(err)
	}
	return path, nil
}
