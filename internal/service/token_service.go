package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"quill/internal/auth"
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// TokenPair is an access token and its companion refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenService owns the session token lifecycle. Each user has at most one live
// refresh token, stored on the user row; presenting any other refresh token fails.
type TokenService struct {
	users   repository.UserRepository
	access  *auth.Signer
	refresh *auth.Signer
}

func NewTokenService(users repository.UserRepository, access, refresh *auth.Signer) *TokenService {
	return &TokenService{
		users:   users,
		access:  access,
		refresh: refresh,
	}
}

// IssuePair mints a new pair for userID and makes its refresh token the only valid one.
func (s *TokenService) IssuePair(ctx context.Context, userID uint) (pair *TokenPair, err error) {
	ctx, span := observability.StartSpan(ctx, "TokenService", "IssuePair", attribute.Int64("user.id", int64(userID)))
	defer func() { observability.EndSpan(span, err) }()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, asIdentityError(err)
	}

	pair, err = s.mint(user)
	if err != nil {
		return nil, err
	}

	if err := s.users.SetRefreshToken(ctx, userID, pair.RefreshToken); err != nil {
		return nil, asIdentityError(err)
	}
	return pair, nil
}

// VerifyAccess checks an access token and resolves the identity it names.
// It never reads or writes the stored refresh token.
func (s *TokenService) VerifyAccess(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, models.ErrTokenMissing
	}

	claims, err := s.access.Parse(token)
	if err != nil {
		middleware.Logger.DebugContext(ctx, "access token rejected", slog.String("error", err.Error()))
		return nil, fmt.Errorf("verify access: %w", models.ErrTokenInvalid)
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, fmt.Errorf("verify access: %w", models.ErrTokenInvalid)
	}

	identity, err := s.users.GetIdentity(ctx, userID)
	if err != nil {
		return nil, asIdentityError(err)
	}
	return identity, nil
}

// Refresh exchanges the current refresh token for a new pair. A token that is
// well formed but no longer stored is a replay and fails with ErrTokenRevoked.
// Rotation is a conditional update, so of several concurrent refreshes with the
// same token at most one succeeds.
func (s *TokenService) Refresh(ctx context.Context, presented string) (pair *TokenPair, identity *models.Identity, err error) {
	ctx, span := observability.StartSpan(ctx, "TokenService", "Refresh")
	defer func() { observability.EndSpan(span, err) }()

	// Browser clients send the literal string when the cookie was never set.
	if presented == "" || presented == "undefined" {
		return nil, nil, models.ErrTokenMissing
	}

	claims, err := s.refresh.Parse(presented)
	if err != nil {
		middleware.Logger.DebugContext(ctx, "refresh token rejected", slog.String("error", err.Error()))
		return nil, nil, fmt.Errorf("refresh: %w", models.ErrTokenInvalid)
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, nil, fmt.Errorf("refresh: %w", models.ErrTokenInvalid)
	}
	span.SetAttributes(attribute.Int64("user.id", int64(userID)))

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, asIdentityError(err)
	}

	if user.RefreshToken == nil || subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(presented)) != 1 {
		observability.RecordAuthEvent(observability.AuthEventRefreshReuse)
		middleware.Logger.WarnContext(ctx, "refresh token reuse detected",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("jti", claims.ID),
		)
		return nil, nil, models.ErrTokenRevoked
	}

	pair, err = s.mint(user)
	if err != nil {
		return nil, nil, err
	}

	rotated, err := s.users.RotateRefreshToken(ctx, userID, presented, pair.RefreshToken)
	if err != nil {
		return nil, nil, err
	}
	if !rotated {
		observability.RecordAuthEvent(observability.AuthEventRefreshRaceLost)
		middleware.Logger.WarnContext(ctx, "refresh token rotated concurrently", slog.Uint64("user_id", uint64(userID)))
		return nil, nil, models.ErrTokenRevoked
	}

	observability.RecordAuthEvent(observability.AuthEventRefresh)
	return pair, user.Identity(), nil
}

// Revoke ends the user's session by clearing the stored refresh token.
// Access tokens already issued stay valid until they expire.
func (s *TokenService) Revoke(ctx context.Context, userID uint) error {
	return s.users.ClearRefreshToken(ctx, userID)
}

func (s *TokenService) mint(user *models.User) (*TokenPair, error) {
	sub := auth.Subject{ID: user.ID, Email: user.Email, Name: user.Name}

	accessToken, err := s.access.Sign(sub)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	refreshToken, err := s.refresh.Sign(sub)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// asIdentityError maps a missing user to ErrIdentityNotFound and passes other errors through.
func asIdentityError(err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
		return models.ErrIdentityNotFound
	}
	return err
}
