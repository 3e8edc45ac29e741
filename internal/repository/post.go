package repository

import (
	"context"
	"errors"

	"quill/internal/models"
	"quill/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines persistence operations for posts.
// Methods taking an ownerID match only rows owned by that user, so a
// non-owner sees the same NotFound as a missing post.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetBySlug(ctx context.Context, slug string) (*models.Post, error)
	GetBySlugAndOwner(ctx context.Context, slug string, ownerID uint) (*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	DeleteBySlugAndOwner(ctx context.Context, slug string, ownerID uint) (*models.Post, error)
	ListPublished(ctx context.Context, offset, limit int) ([]models.FeedItem, error)
	ListByOwner(ctx context.Context, ownerID uint, includeDrafts bool) ([]models.UserPostItem, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("Post with slug already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// GetBySlug loads a post with its owner's id and name.
func (r *postRepository) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("Owner", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name")
		}).
		Where("slug = ?", slug).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", slug)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) GetBySlugAndOwner(ctx context.Context, slug string, ownerID uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Where("slug = ? AND owner_id = ?", slug, ownerID).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", slug)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

// Update writes the editable columns. The owner column is never written.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	res := r.db.WithContext(ctx).
		Model(post).
		Where("owner_id = ?", post.OwnerID).
		Select("slug", "title", "content", "status", "featured_image_url", "updated_at").
		Updates(post)
	if res.Error != nil {
		if isUniqueConstraintError(res.Error) {
			return models.NewValidationError("Post with slug already exists")
		}
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", post.Slug)
	}
	return nil
}

// DeleteBySlugAndOwner removes the owner's post and returns the deleted row.
func (r *postRepository) DeleteBySlugAndOwner(ctx context.Context, slug string, ownerID uint) (*models.Post, error) {
	var deleted models.Post
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("slug = ? AND owner_id = ?", slug, ownerID).First(&deleted).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, deleted.ID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", slug)
		}
		return nil, models.NewInternalError(err)
	}
	return &deleted, nil
}

// ListPublished returns one window of the published feed, newest first.
func (r *postRepository) ListPublished(ctx context.Context, offset, limit int) ([]models.FeedItem, error) {
	defer observability.TrackQuery("list_published", "posts")()

	items := []models.FeedItem{}
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Select("title", "slug", "featured_image_url").
		Where("status = ?", true).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return items, nil
}

// ListByOwner returns a user's posts newest first. Drafts are included only when asked.
func (r *postRepository) ListByOwner(ctx context.Context, ownerID uint, includeDrafts bool) ([]models.UserPostItem, error) {
	defer observability.TrackQuery("list_by_owner", "posts")()

	q := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Select("title", "slug", "featured_image_url", "status").
		Where("owner_id = ?", ownerID)
	if !includeDrafts {
		q = q.Where("status = ?", true)
	}

	items := []models.UserPostItem{}
	if err := q.Order("created_at DESC").Order("id DESC").Find(&items).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return items, nil
}
