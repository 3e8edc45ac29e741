package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/repository"
	"quill/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	userRepo repository.UserRepository
	tokens   *TokenService
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func NewUserService(userRepo repository.UserRepository, tokens *TokenService) *UserService {
	return &UserService{userRepo: userRepo, tokens: tokens}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.Identity, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	var missing []string
	if name == "" {
		missing = append(missing, "name is required")
	}
	if email == "" {
		missing = append(missing, "email is required")
	}
	if strings.TrimSpace(in.Password) == "" {
		missing = append(missing, "password is required")
	}
	if len(missing) > 0 {
		return nil, models.NewValidationError("All fields are required", missing...)
	}

	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError("Invalid email address")
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewValidationError("User with email already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, models.NewValidationError("Password too long (max 72 bytes)")
		}
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Password: string(hashed),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	observability.RecordAuthEvent(observability.AuthEventRegistration)
	return user.Identity(), nil
}

// Login checks credentials and starts a new session, replacing any previous one.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*models.Identity, *TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, nil, models.NewUnauthorizedError("Email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		observability.RecordAuthEvent(observability.AuthEventLoginFailed)
		return nil, nil, models.NewUnauthorizedError("Invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		observability.RecordAuthEvent(observability.AuthEventLoginFailed)
		middleware.Logger.InfoContext(ctx, "login failed", slog.Uint64("user_id", uint64(user.ID)))
		return nil, nil, models.NewUnauthorizedError("Invalid email or password")
	}

	pair, err := s.tokens.IssuePair(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	observability.RecordAuthEvent(observability.AuthEventLogin)
	return user.Identity(), pair, nil
}

func (s *UserService) Logout(ctx context.Context, userID uint) error {
	if err := s.tokens.Revoke(ctx, userID); err != nil {
		return err
	}
	observability.RecordAuthEvent(observability.AuthEventLogout)
	return nil
}

// GetPublicProfile returns the name of any user. Missing users are NotFound.
func (s *UserService) GetPublicProfile(ctx context.Context, id uint) (*models.PublicProfile, error) {
	identity, err := s.userRepo.GetIdentity(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.PublicProfile{ID: identity.ID, Name: identity.Name}, nil
}
