// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"quill/internal/cache"
	"quill/internal/models"
	"quill/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetIdentity(ctx context.Context, id uint) (*models.Identity, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	SetRefreshToken(ctx context.Context, id uint, token string) error
	RotateRefreshToken(ctx context.Context, id uint, expected, next string) (bool, error)
	ClearRefreshToken(ctx context.Context, id uint) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByID loads the full user row, credentials included. It always reads the database.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetIdentity loads the credential-free view of a user through the cache.
func (r *userRepository) GetIdentity(ctx context.Context, id uint) (*models.Identity, error) {
	var identity models.Identity

	err := cache.Aside(ctx, cache.IdentityKey(id), &identity, cache.IdentityTTL, func() error {
		err := r.db.WithContext(ctx).
			Model(&models.User{}).
			Select("id, name, email, created_at, updated_at").
			Where("id = ?", id).
			Take(&identity).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

// GetByEmail returns nil, nil when no user has that email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("User with email already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// SetRefreshToken overwrites the stored refresh token unconditionally.
func (r *userRepository) SetRefreshToken(ctx context.Context, id uint, token string) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("refresh_token", token)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

// RotateRefreshToken replaces expected with next in a single conditional update.
// It reports false when the stored token no longer equals expected.
func (r *userRepository) RotateRefreshToken(ctx context.Context, id uint, expected, next string) (bool, error) {
	defer observability.TrackQuery("rotate_refresh_token", "users")()

	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND refresh_token = ?", id, expected).
		UpdateColumn("refresh_token", next)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ClearRefreshToken drops the stored refresh token. Clearing an absent user is not an error.
func (r *userRepository) ClearRefreshToken(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("refresh_token", gorm.Expr("NULL")).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateIdentity(ctx, id)
	return nil
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}
