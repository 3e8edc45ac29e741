package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"quill/internal/models"
	"quill/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com", Password: "hash"}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedPost(t *testing.T, db *gorm.DB, owner uint, slug string, published bool, at time.Time) *models.Post {
	t.Helper()
	p := &models.Post{
		Slug:      slug,
		Title:     "Title " + slug,
		Content:   "Body",
		Status:    published,
		OwnerID:   owner,
		CreatedAt: at,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func TestPostRepository_OwnerScopedLookupsHideOtherUsersPosts(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	seedPost(t, db, alice.ID, "alice-post", true, time.Now())

	_, err := repo.GetBySlugAndOwner(ctx, "alice-post", bob.ID)
	assertAppErrorCode(t, err, models.CodeNotFound)

	_, err = repo.DeleteBySlugAndOwner(ctx, "alice-post", bob.ID)
	assertAppErrorCode(t, err, models.CodeNotFound)

	post, err := repo.GetBySlug(ctx, "alice-post")
	require.NoError(t, err)
	require.NotNil(t, post.Owner)
	assert.Equal(t, "alice", post.Owner.Name)
	assert.Empty(t, post.Owner.Email)

	deleted, err := repo.DeleteBySlugAndOwner(ctx, "alice-post", alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice-post", deleted.Slug)

	_, err = repo.GetBySlug(ctx, "alice-post")
	assertAppErrorCode(t, err, models.CodeNotFound)
}

func TestPostRepository_UpdateNeverChangesOwner(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	post := seedPost(t, db, alice.ID, "draft", false, time.Now())

	post.Title = "Renamed"
	post.Status = true
	require.NoError(t, repo.Update(ctx, post))

	stolen := *post
	stolen.OwnerID = bob.ID
	stolen.Title = "Stolen"
	assertAppErrorCode(t, repo.Update(ctx, &stolen), models.CodeNotFound)

	got, err := repo.GetBySlugAndOwner(ctx, "draft", alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.True(t, got.Status)
	assert.Equal(t, alice.ID, got.OwnerID)
}

func TestPostRepository_CreateDuplicateSlug(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	alice := seedUser(t, db, "alice")

	require.NoError(t, repo.Create(context.Background(), &models.Post{Slug: "same", Title: "a", Content: "a", OwnerID: alice.ID}))
	err := repo.Create(context.Background(), &models.Post{Slug: "same", Title: "b", Content: "b", OwnerID: alice.ID})
	assertAppErrorCode(t, err, models.CodeValidation)
}

func TestPostRepository_ListPublishedNewestFirst(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	alice := seedUser(t, db, "alice")
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		seedPost(t, db, alice.ID, fmt.Sprintf("post-%d", i), i != 2, base.Add(time.Duration(i)*time.Minute))
	}

	items, err := repo.ListPublished(context.Background(), 0, 3)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "post-4", items[0].Slug)
	assert.Equal(t, "post-3", items[1].Slug)
	assert.Equal(t, "post-1", items[2].Slug)

	rest, err := repo.ListPublished(context.Background(), 3, 3)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "post-0", rest[0].Slug)
}

func TestPostRepository_ListByOwner(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	now := time.Now()

	seedPost(t, db, alice.ID, "a1", true, now.Add(-3*time.Minute))
	seedPost(t, db, alice.ID, "a2", false, now.Add(-2*time.Minute))
	seedPost(t, db, alice.ID, "a3", true, now.Add(-time.Minute))
	seedPost(t, db, bob.ID, "b1", true, now)

	public, err := repo.ListByOwner(context.Background(), alice.ID, false)
	require.NoError(t, err)
	assert.Len(t, public, 2)
	assert.Equal(t, "a3", public[0].Slug)

	all, err := repo.ListByOwner(context.Background(), alice.ID, true)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.False(t, all[1].Status)

	none, err := repo.ListByOwner(context.Background(), 999, true)
	require.NoError(t, err)
	assert.Empty(t, none)
}
