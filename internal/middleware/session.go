package middleware

import (
	"context"
	"log/slog"
	"strings"

	"quill/internal/models"
	"quill/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// Cookie names carrying the session tokens.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// AccessVerifier resolves an access token to the identity it was issued for.
type AccessVerifier interface {
	VerifyAccess(ctx context.Context, token string) (*models.Identity, error)
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying the authenticated identity.
func WithIdentity(ctx context.Context, id *models.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity attached by Session, if any.
func IdentityFromContext(ctx context.Context) (*models.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*models.Identity)
	return id, ok && id != nil
}

// ExtractToken reads a token from the named cookie, falling back to an
// "Authorization: Bearer" header. It returns "" when neither is present.
func ExtractToken(c *fiber.Ctx, cookie string) string {
	if token := strings.TrimSpace(c.Cookies(cookie)); token != "" {
		return token
	}
	if token, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// Session authenticates the request with the access token and attaches the
// caller's identity to the user context. Failures end the request before the handler runs.
func Session(verifier AccessVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		identity, err := verifier.VerifyAccess(ctx, ExtractToken(c, AccessTokenCookie))
		if err != nil {
			observability.RecordAuthEvent(observability.AuthEventAccessRejected)
			if models.StatusFor(err) != fiber.StatusUnauthorized {
				Logger.ErrorContext(ctx, "session verification failed", slog.String("error", err.Error()))
			}
			return models.RespondWithError(c, err)
		}

		c.Locals("userID", identity.ID)
		ctx = context.WithValue(ctx, UserIDKey, identity.ID)
		c.SetUserContext(WithIdentity(ctx, identity))

		return c.Next()
	}
}

// CurrentIdentity returns the identity attached to the request, or a 401 error
// when the route is not behind Session.
func CurrentIdentity(c *fiber.Ctx) (*models.Identity, error) {
	id, ok := IdentityFromContext(c.UserContext())
	if !ok {
		return nil, models.ErrTokenMissing
	}
	return id, nil
}
