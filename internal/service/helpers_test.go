package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"quill/internal/auth"
	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/testutil"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	testAccessSecret  = "access-secret-for-service-tests-0123"
	testRefreshSecret = "refresh-secret-for-service-tests-012"
)

type testEnv struct {
	db     *gorm.DB
	users  repository.UserRepository
	posts  repository.PostRepository
	tokens *TokenService
	images *testutil.ImageHostStub
	userSv *UserService
	postSv *PostService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t)
	users := repository.NewUserRepository(db)
	posts := repository.NewPostRepository(db)
	tokens := NewTokenService(users,
		auth.NewSigner(testAccessSecret, time.Hour, "quill-test", auth.TokenTypeAccess),
		auth.NewSigner(testRefreshSecret, 240*time.Hour, "quill-test", auth.TokenTypeRefresh),
	)
	images := testutil.NewImageHostStub()

	return &testEnv{
		db:     db,
		users:  users,
		posts:  posts,
		tokens: tokens,
		images: images,
		userSv: NewUserService(users, tokens),
		postSv: NewPostService(posts, images),
	}
}

// createUser inserts a user with a cheap bcrypt hash of password.
func (e *testEnv) createUser(t *testing.T, password string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	u := &models.User{
		Name:     gofakeit.Name(),
		Email:    gofakeit.Email(),
		Password: string(hash),
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, models.CodeValidation)
}

func assertUnauthorizedError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, models.CodeUnauthorized)
}

func assertNotFoundError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, models.CodeNotFound)
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *models.AppError
	if assert.True(t, errors.As(err, &appErr), "expected *models.AppError, got %T (%v)", err, err) {
		assert.Equal(t, code, appErr.Code)
	}
}
