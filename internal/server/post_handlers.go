package server

import (
	"os"

	"quill/internal/models"
	"quill/internal/service"

	"github.com/gofiber/fiber/v2"
)

// postInput reads the multipart post form. The returned path is the saved
// featured image, if any, and must be removed by the caller.
func (s *Server) postInput(c *fiber.Ctx) (service.PostInput, error) {
	path, err := s.saveFeaturedImage(c)
	if err != nil {
		return service.PostInput{}, err
	}
	return service.PostInput{
		Slug:      c.FormValue("slug"),
		Title:     c.FormValue("title"),
		Content:   c.FormValue("content"),
		Status:    c.FormValue("status"),
		ImagePath: path,
	}, nil
}

func removeUpload(path string) {
	if path != "" {
		_ = os.Remove(path)
	}
}

// CreatePost handles POST /api/v1/posts/create
// @Summary Create a post
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Param slug formData string true "Slug"
// @Param title formData string true "Title"
// @Param content formData string true "Content"
// @Param status formData string false "true to publish"
// @Param featuredImage formData file false "Featured image"
// @Success 201 {object} models.APIResponse{data=models.Post}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/create [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	in, err := s.postInput(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	defer removeUpload(in.ImagePath)

	post, err := s.postService.CreatePost(c.UserContext(), userID, in)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return models.Respond(c, fiber.StatusCreated, "Post Created Successfully", post)
}

// GetPost handles GET /api/v1/posts/:slug
// @Summary Get a post
// @Description Drafts are visible to their owner only.
// @Tags posts
// @Produce json
// @Param slug path string true "Post slug"
// @Success 200 {object} models.APIResponse{data=models.PostDetail}
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{slug} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	post, err := s.postService.GetPost(c.UserContext(), userID, c.Params("slug"))
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return models.Respond(c, fiber.StatusOK, "Post Fetched Successfully", post)
}

// UpdatePost handles PATCH /api/v1/posts/:slug
// @Summary Update an owned post
// @Description A changed slug goes in the "slug" form field and gets a fresh suffix.
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Param slug path string true "Post slug"
// @Param title formData string false "Title"
// @Param content formData string false "Content"
// @Param status formData string false "true to publish"
// @Param featuredImage formData file false "Replacement featured image"
// @Success 200 {object} models.APIResponse{data=models.Post}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{slug} [patch]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	in, err := s.postInput(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	defer removeUpload(in.ImagePath)

	post, err := s.postService.UpdatePost(c.UserContext(), userID, c.Params("slug"), in)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return models.Respond(c, fiber.StatusOK, "Post Update successfully", post)
}

// DeletePost handles DELETE /api/v1/posts/:slug
// @Summary Delete an owned post
// @Tags posts
// @Produce json
// @Param slug path string true "Post slug"
// @Success 200 {object} models.APIResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{slug} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	if err := s.postService.DeletePost(c.UserContext(), userID, c.Params("slug")); err != nil {
		return models.RespondWithError(c, err)
	}

	return models.Respond(c, fiber.StatusOK, "Post Deleted Successfully", fiber.Map{})
}

// ListPosts handles GET /api/v1/posts/all/posts?page=N
// An empty page is answered with 204 and no body.
// @Summary List published posts
// @Tags posts
// @Produce json
// @Param page query int false "Page number, from 1"
// @Success 200 {object} models.APIResponse{data=models.FeedPage}
// @Success 204 "No posts on this page"
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/all/posts [get]
func (s *Server) ListPosts(c *fiber.Ctx) error {
	page, err := s.postService.ListFeed(c.UserContext(), parsePage(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}

	if len(page.Posts) == 0 {
		return c.SendStatus(fiber.StatusNoContent)
	}

	return models.Respond(c, fiber.StatusOK, "Posts fetched Successfully", page)
}

// ListUserPosts handles GET /api/v1/posts/user/:userId
// Other users' drafts are filtered out; an empty list is answered with 204.
// @Summary List a user's posts
// @Tags posts
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {object} models.APIResponse{data=[]models.UserPostItem}
// @Success 204 "No posts"
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/user/{userId} [get]
func (s *Server) ListUserPosts(c *fiber.Ctx) error {
	viewerID, err := currentUserID(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	targetID, err := parseUserID(c, "userId")
	if err != nil {
		return models.RespondWithError(c, err)
	}

	posts, err := s.postService.ListUserPosts(c.UserContext(), viewerID, targetID)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	if len(posts) == 0 {
		return c.SendStatus(fiber.StatusNoContent)
	}

	return models.Respond(c, fiber.StatusOK, "Posts fetched Successfully", posts)
}
