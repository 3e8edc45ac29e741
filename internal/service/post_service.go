package service

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"unicode"

	"quill/internal/imagehost"
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/repository"

	"github.com/google/uuid"
)

// PostsPerPage is the size of one page of the global feed.
const PostsPerPage = 12

type PostService struct {
	postRepo repository.PostRepository
	images   imagehost.Host
}

// PostInput is the form submitted to create or update a post. ImagePath, when
// set, is a local temp file the image host takes ownership of.
type PostInput struct {
	Slug      string
	Title     string
	Content   string
	Status    string
	ImagePath string
}

type validatedPost struct {
	slug    string
	title   string
	content string
	status  bool
}

func NewPostService(postRepo repository.PostRepository, images imagehost.Host) *PostService {
	return &PostService{
		postRepo: postRepo,
		images:   images,
	}
}

func (in PostInput) validate() (*validatedPost, error) {
	v := &validatedPost{
		slug:    strings.TrimSpace(in.Slug),
		title:   strings.TrimSpace(in.Title),
		content: strings.TrimSpace(in.Content),
	}

	var missing []string
	if v.slug == "" {
		missing = append(missing, "slug is required")
	}
	if v.title == "" {
		missing = append(missing, "title is required")
	}
	if v.content == "" {
		missing = append(missing, "content is required")
	}
	if strings.TrimSpace(in.Status) == "" {
		missing = append(missing, "status is required")
	}
	if len(missing) > 0 {
		return nil, models.NewValidationError("All fields are required", missing...)
	}

	status, err := strconv.ParseBool(strings.TrimSpace(in.Status))
	if err != nil {
		return nil, models.NewValidationError("Status must be true or false")
	}
	v.status = status

	if Slugify(v.slug) == "" {
		return nil, models.NewValidationError("Slug must contain letters or digits")
	}
	return v, nil
}

// Slugify lowercases s and collapses every run of non-alphanumeric characters into one hyphen.
func Slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// uniqueSlug appends a random suffix so two posts never share a slug.
func uniqueSlug(s string) string {
	return Slugify(s) + "-" + uuid.NewString()
}

// uploadImage hands path to the image host. Failures are logged and yield "".
func (s *PostService) uploadImage(ctx context.Context, path string) string {
	if path == "" {
		return ""
	}
	url, err := s.images.Upload(ctx, path)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "featured image upload failed", slog.String("error", err.Error()))
		return ""
	}
	return url
}

func (s *PostService) deleteImage(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := s.images.Delete(ctx, url); err != nil {
		middleware.Logger.WarnContext(ctx, "featured image delete failed",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
	}
}

// CreatePost stores a new post owned by ownerID. An image upload failure does not
// fail the post; it is saved without an image.
func (s *PostService) CreatePost(ctx context.Context, ownerID uint, in PostInput) (*models.Post, error) {
	v, err := in.validate()
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Slug:             uniqueSlug(v.slug),
		Title:            v.title,
		Content:          v.content,
		Status:           v.status,
		FeaturedImageURL: s.uploadImage(ctx, in.ImagePath),
		OwnerID:          ownerID,
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		s.deleteImage(ctx, post.FeaturedImageURL)
		return nil, err
	}
	return post, nil
}

// GetPost returns a post with its author. Drafts are visible to their owner only.
func (s *PostService) GetPost(ctx context.Context, viewerID uint, slug string) (*models.PostDetail, error) {
	post, err := s.postRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !post.Status && post.OwnerID != viewerID {
		return nil, models.NewNotFoundError("Post", slug)
	}

	detail := &models.PostDetail{Post: *post}
	if post.Owner != nil {
		detail.Author = models.PublicProfile{ID: post.Owner.ID, Name: post.Owner.Name}
	}
	detail.Owner = nil
	return detail, nil
}

// UpdatePost edits a post owned by ownerID. A new image is uploaded before the
// old one is dropped, and the old one is kept if the upload fails. A changed
// slug gets a fresh suffix.
func (s *PostService) UpdatePost(ctx context.Context, ownerID uint, slug string, in PostInput) (*models.Post, error) {
	post, err := s.postRepo.GetBySlugAndOwner(ctx, slug, ownerID)
	if err != nil {
		return nil, err
	}

	v, err := in.validate()
	if err != nil {
		return nil, err
	}

	if v.slug != post.Slug {
		post.Slug = uniqueSlug(v.slug)
	}
	post.Title = v.title
	post.Content = v.content
	post.Status = v.status

	previousImage := post.FeaturedImageURL
	newImage := s.uploadImage(ctx, in.ImagePath)
	if newImage != "" {
		post.FeaturedImageURL = newImage
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		s.deleteImage(ctx, newImage)
		return nil, err
	}

	if newImage != "" {
		s.deleteImage(ctx, previousImage)
	}
	return post, nil
}

// DeletePost removes a post owned by ownerID, then its image on a best-effort basis.
func (s *PostService) DeletePost(ctx context.Context, ownerID uint, slug string) error {
	deleted, err := s.postRepo.DeleteBySlugAndOwner(ctx, slug, ownerID)
	if err != nil {
		return err
	}
	s.deleteImage(ctx, deleted.FeaturedImageURL)
	return nil
}

// ListFeed returns one page of published posts. Page 0 is treated as page 1.
func (s *PostService) ListFeed(ctx context.Context, page int) (*models.FeedPage, error) {
	if page < 0 {
		return nil, models.NewValidationError("Page must not be negative")
	}
	if page == 0 {
		page = 1
	}
	// The offset would overflow; no such page can hold posts.
	if page > math.MaxInt/PostsPerPage {
		return &models.FeedPage{Posts: []models.FeedItem{}}, nil
	}

	// Fetch one extra row to learn whether another page exists.
	items, err := s.postRepo.ListPublished(ctx, (page-1)*PostsPerPage, PostsPerPage+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > PostsPerPage
	if hasMore {
		items = items[:PostsPerPage]
	}
	return &models.FeedPage{Posts: items, HasMorePosts: hasMore}, nil
}

// ListUserPosts lists targetID's posts. Drafts are included only when the viewer is the owner.
func (s *PostService) ListUserPosts(ctx context.Context, viewerID, targetID uint) ([]models.UserPostItem, error) {
	return s.postRepo.ListByOwner(ctx, targetID, viewerID == targetID)
}
