package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quill/internal/config"
	"quill/internal/testutil"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testServer struct {
	*Server
	db     *gorm.DB
	images *testutil.ImageHostStub
}

// envelope mirrors models.APIResponse and models.ErrorResponse with raw data.
type envelope struct {
	StatusCode int             `json:"statusCode"`
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Code       string          `json:"code"`
	Errors     []string        `json:"errors"`
	Data       json.RawMessage `json:"data"`
}

type session struct {
	UserID       uint
	Email        string
	AccessToken  string
	RefreshToken string
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Env:                "test",
		Port:               "0",
		UploadDir:          t.TempDir(),
		AccessTokenSecret:  "access-secret-for-server-tests-01234",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenSecret: "refresh-secret-for-server-tests-0123",
		RefreshTokenExpiry: 240 * time.Hour,
		TokenIssuer:        "quill-test",
	}
}

func newTestServer(t *testing.T) *testServer {
	return newTestServerWithRedis(t, nil)
}

func newTestServerWithRedis(t *testing.T, rdb *redis.Client) *testServer {
	t.Helper()

	db := testutil.NewTestDB(t)
	images := testutil.NewImageHostStub()
	s, err := NewServerWithDeps(testConfig(t), db, rdb, images)
	require.NoError(t, err)

	return &testServer{Server: s, db: db, images: images}
}

func (ts *testServer) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := ts.App().Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (ts *testServer) doJSON(t *testing.T, method, path string, body any, accessToken string) *http.Response {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return ts.do(t, req)
}

// doForm sends a multipart post form, with a featuredImage file when image is non-nil.
func (ts *testServer) doForm(t *testing.T, method, path string, fields map[string]string, image []byte, accessToken string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		part, err := w.CreateFormFile(featuredImageField, "cover.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+accessToken)
	return ts.do(t, req)
}

func decode(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

// signUp registers a fresh user through the API and logs them in.
func (ts *testServer) signUp(t *testing.T) session {
	t.Helper()

	email := gofakeit.Email()
	resp := ts.doJSON(t, http.MethodPost, "/api/v1/users/register", map[string]string{
		"name": gofakeit.Name(), "email": email, "password": "p1",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.doJSON(t, http.MethodPost, "/api/v1/users/login", map[string]string{
		"email": email, "password": "p1",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var data AuthResponse
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &data))
	require.NotNil(t, data.User)

	return session{
		UserID:       data.User.ID,
		Email:        email,
		AccessToken:  data.AccessToken,
		RefreshToken: data.RefreshToken,
	}
}

func cookieByName(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func postFields(slug, status string) map[string]string {
	return map[string]string{
		"slug":    slug,
		"title":   "A title",
		"content": "Some content",
		"status":  status,
	}
}
