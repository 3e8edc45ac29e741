package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"quill/internal/models"
	"quill/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fakePNG = []byte("\x89PNG\r\n\x1a\nnot really")

func (ts *testServer) createPost(t *testing.T, s session, slug, status string, image []byte) models.Post {
	t.Helper()

	resp := ts.doForm(t, http.MethodPost, "/api/v1/posts/create", postFields(slug, status), image, s.AccessToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var post models.Post
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &post))
	return post
}

func TestCreatePost(t *testing.T) {
	ts := newTestServer(t)
	s := ts.signUp(t)

	post := ts.createPost(t, s, "Hello World", "true", fakePNG)
	assert.True(t, strings.HasPrefix(post.Slug, "hello-world-"))
	assert.Equal(t, s.UserID, post.OwnerID)
	require.Len(t, ts.images.Uploaded, 1)
	assert.Equal(t, ts.images.Uploaded[0], post.FeaturedImageURL)

	// The saved upload never outlives the request.
	entries, err := os.ReadDir(ts.config.UploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreatePostValidation(t *testing.T) {
	ts := newTestServer(t)
	s := ts.signUp(t)

	fields := postFields("slug", "true")
	delete(fields, "title")

	resp := ts.doForm(t, http.MethodPost, "/api/v1/posts/create", fields, nil, s.AccessToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeValidation, decode(t, resp).Code)
}

func TestCreatePostUploadFailureKeepsPost(t *testing.T) {
	ts := newTestServer(t)
	ts.images.FailUploads = true
	s := ts.signUp(t)

	post := ts.createPost(t, s, "no-image", "true", fakePNG)
	assert.Empty(t, post.FeaturedImageURL)
}

func TestGetPostIncludesAuthor(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.signUp(t)
	viewer := ts.signUp(t)

	post := ts.createPost(t, owner, "visible", "true", nil)

	resp := ts.doJSON(t, http.MethodGet, "/api/v1/posts/"+post.Slug, nil, viewer.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var detail models.PostDetail
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &detail))
	assert.Equal(t, owner.UserID, detail.Author.ID)
	assert.NotEmpty(t, detail.Author.Name)

	resp = ts.doJSON(t, http.MethodGet, "/api/v1/posts/does-not-exist", nil, viewer.AccessToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDraftHiddenFromOthers(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.signUp(t)
	viewer := ts.signUp(t)

	draft := ts.createPost(t, owner, "draft", "false", nil)

	resp := ts.doJSON(t, http.MethodGet, "/api/v1/posts/"+draft.Slug, nil, owner.AccessToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.doJSON(t, http.MethodGet, "/api/v1/posts/"+draft.Slug, nil, viewer.AccessToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Only drafts means an empty listing for everyone else.
	resp = ts.doJSON(t, http.MethodGet, fmt.Sprintf("/api/v1/posts/user/%d", owner.UserID), nil, viewer.AccessToken)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.doJSON(t, http.MethodGet, fmt.Sprintf("/api/v1/posts/user/%d", owner.UserID), nil, owner.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var items []models.UserPostItem
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &items))
	require.Len(t, items, 1)
	assert.False(t, items[0].Status)
}

func TestUpdatePost(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.signUp(t)
	intruder := ts.signUp(t)

	post := ts.createPost(t, owner, "original", "true", fakePNG)
	oldImage := post.FeaturedImageURL

	resp := ts.doForm(t, http.MethodPatch, "/api/v1/posts/"+post.Slug, postFields("stolen", "true"), nil, intruder.AccessToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.doForm(t, http.MethodPatch, "/api/v1/posts/"+post.Slug, postFields("renamed", "false"), fakePNG, owner.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated models.Post
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &updated))
	assert.True(t, strings.HasPrefix(updated.Slug, "renamed-"))
	assert.False(t, updated.Status)
	assert.Equal(t, owner.UserID, updated.OwnerID)
	assert.NotEqual(t, oldImage, updated.FeaturedImageURL)
	assert.Equal(t, []string{oldImage}, ts.images.Deleted)

	resp = ts.doJSON(t, http.MethodGet, "/api/v1/posts/"+post.Slug, nil, owner.AccessToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeletePost(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.signUp(t)
	intruder := ts.signUp(t)

	post := ts.createPost(t, owner, "doomed", "true", fakePNG)

	resp := ts.doJSON(t, http.MethodDelete, "/api/v1/posts/"+post.Slug, nil, intruder.AccessToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.doJSON(t, http.MethodDelete, "/api/v1/posts/"+post.Slug, nil, owner.AccessToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{post.FeaturedImageURL}, ts.images.Deleted)

	resp = ts.doJSON(t, http.MethodDelete, "/api/v1/posts/"+post.Slug, nil, owner.AccessToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListPostsPagination(t *testing.T) {
	ts := newTestServer(t)
	s := ts.signUp(t)

	resp := ts.doJSON(t, http.MethodGet, "/api/v1/posts/all/posts", nil, s.AccessToken)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	posts := repository.NewPostRepository(ts.db)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 13; i++ {
		require.NoError(t, posts.Create(context.Background(), &models.Post{
			Slug:      fmt.Sprintf("post-%02d", i),
			Title:     fmt.Sprintf("Post %d", i),
			Content:   "c",
			Status:    true,
			OwnerID:   s.UserID,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		expectedCount  int
		expectedMore   bool
	}{
		{"Default Page", "", http.StatusOK, 12, true},
		{"Unparsable Page", "?page=abc", http.StatusOK, 12, true},
		{"Page Zero", "?page=0", http.StatusOK, 12, true},
		{"Second Page", "?page=2", http.StatusOK, 1, false},
		{"Past The End", "?page=3", http.StatusNoContent, 0, false},
		{"Offset Overflow", "?page=768614336404564652", http.StatusNoContent, 0, false},
		{"Negative Page", "?page=-1", http.StatusBadRequest, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.doJSON(t, http.MethodGet, "/api/v1/posts/all/posts"+tt.query, nil, s.AccessToken)
			require.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedStatus != http.StatusOK {
				return
			}

			var page models.FeedPage
			require.NoError(t, json.Unmarshal(decode(t, resp).Data, &page))
			assert.Len(t, page.Posts, tt.expectedCount)
			assert.Equal(t, tt.expectedMore, page.HasMorePosts)
		})
	}
}

func TestPostRoutesRequireSession(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.doJSON(t, http.MethodGet, "/api/v1/posts/all/posts", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
