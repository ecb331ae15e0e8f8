package server_test

// These tests drive the fully wired router over httptest with an in-memory
// database — the closest thing to the running server without binding a
// port. Register/login flows use real bcrypt and real JWTs.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strivelab/strive-blog/internal/config"
	"github.com/strivelab/strive-blog/internal/server"
)

// ============================================================================
// === TEST HELPERS ===
// ============================================================================

func testConfig() *config.Config {
	return &config.Config{
		Port:          0,
		FrontendURL:   "http://localhost:3000",
		DBPath:        ":memory:",
		JWTSecret:     "test-secret-key-0123456789abcdef",
		JWTLifetime:   time.Hour,
		MaxUploadSize: 1 << 20,
	}
}

// newTestServer builds a Server over an in-memory database. mutate tweaks
// the config before wiring (nil for the defaults).
func newTestServer(t *testing.T, mutate func(*config.Config)) *server.Server {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv, err := server.New(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

// doJSON performs one request against the router. token may be empty.
func doJSON(t *testing.T, srv *server.Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rr.Body).Decode(dst), "body: %s", rr.Body.String())
}

// authPayload mirrors the register/login response.
type authPayload struct {
	Token  string         `json:"token"`
	Author map[string]any `json:"author"`
}

func register(t *testing.T, srv *server.Server, email, name string) authPayload {
	t.Helper()

	rr := doJSON(t, srv, http.MethodPost, "/authors/register", "", map[string]any{
		"email":     email,
		"password":  "correct horse battery",
		"name":      name,
		"surname":   "Tester",
		"birthDate": "1990-01-01",
	})
	require.Equal(t, http.StatusCreated, rr.Code, "register failed: %s", rr.Body.String())

	var out authPayload
	decode(t, rr, &out)
	require.NotEmpty(t, out.Token)
	return out
}

func createPost(t *testing.T, srv *server.Server, token, title string) map[string]any {
	t.Helper()

	rr := doJSON(t, srv, http.MethodPost, "/blogposts/auth", token, map[string]any{
		"category": "go",
		"title":    title,
		"content":  "Some long-form content.",
		"readTime": map[string]any{"value": 5, "unit": "minutes"},
	})
	require.Equal(t, http.StatusCreated, rr.Code, "create post failed: %s", rr.Body.String())

	var post map[string]any
	decode(t, rr, &post)
	return post
}

// ============================================================================
// === OPERATIONAL ENDPOINTS ===
// ============================================================================

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := doJSON(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	// The /health request above went through the metrics middleware, so the
	// scrape must already carry the HTTP counters.
	rr = doJSON(t, srv, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "striveblog_http_requests_total")
}

func TestGoogleRoutesAbsentWhenUnconfigured(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := doJSON(t, srv, http.MethodGet, "/auth/login-google", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// ============================================================================
// === REGISTRATION AND LOGIN ===
// ============================================================================

func TestRegisterAndLogin(t *testing.T) {
	srv := newTestServer(t, nil)

	t.Run("register normalizes email and strips the hash", func(t *testing.T) {
		out := register(t, srv, "Alice@Example.COM", "Alice")

		assert.Equal(t, "alice@example.com", out.Author["email"])
		assert.Equal(t, "Alice", out.Author["name"])
		assert.NotContains(t, out.Author, "passwordHash")
		assert.NotContains(t, out.Author, "password_hash")
	})

	t.Run("every profile field is required", func(t *testing.T) {
		// surname and birthDate missing — not just email/password/name.
		rr := doJSON(t, srv, http.MethodPost, "/authors/register", "", map[string]any{
			"email":    "incomplete@example.com",
			"password": "long enough pass",
			"name":     "Incomplete",
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)

		var body map[string]string
		decode(t, rr, &body)
		assert.Equal(t, "validation_error", body["error"])
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		rr := doJSON(t, srv, http.MethodPost, "/authors/register", "", map[string]any{
			"email":     "alice@example.com",
			"password":  "another password",
			"name":      "Impostor",
			"surname":   "Tester",
			"birthDate": "1991-02-03",
		})
		assert.Equal(t, http.StatusConflict, rr.Code)

		var body map[string]string
		decode(t, rr, &body)
		assert.Equal(t, "conflict", body["error"])
	})

	t.Run("login succeeds with the right password", func(t *testing.T) {
		rr := doJSON(t, srv, http.MethodPost, "/authors/login", "", map[string]any{
			"email":    "alice@example.com",
			"password": "correct horse battery",
		})
		assert.Equal(t, http.StatusOK, rr.Code)

		var out authPayload
		decode(t, rr, &out)
		assert.NotEmpty(t, out.Token)
		assert.Equal(t, "alice@example.com", out.Author["email"])
	})

	t.Run("wrong password and unknown email look identical", func(t *testing.T) {
		wrongPass := doJSON(t, srv, http.MethodPost, "/authors/login", "", map[string]any{
			"email":    "alice@example.com",
			"password": "wrong password!!",
		})
		unknown := doJSON(t, srv, http.MethodPost, "/authors/login", "", map[string]any{
			"email":    "nobody@example.com",
			"password": "whatever it is!",
		})

		assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
		assert.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.Equal(t, wrongPass.Body.String(), unknown.Body.String())
	})

	t.Run("validation failures are 400s", func(t *testing.T) {
		rr := doJSON(t, srv, http.MethodPost, "/authors/register", "", map[string]any{
			"email":    "not-an-email",
			"password": "long enough pass",
			"name":     "Bob",
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)

		var body map[string]string
		decode(t, rr, &body)
		assert.Equal(t, "validation_error", body["error"])
	})
}

// ============================================================================
// === AUTH GATE AND PROFILE ===
// ============================================================================

func TestProfileRoutes(t *testing.T) {
	srv := newTestServer(t, nil)
	out := register(t, srv, "carol@example.com", "Carol")

	t.Run("me requires a token", func(t *testing.T) {
		rr := doJSON(t, srv, http.MethodGet, "/authors/auth/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		rr = doJSON(t, srv, http.MethodGet, "/authors/auth/me", "not.a.jwt", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("me returns the logged-in author", func(t *testing.T) {
		rr := doJSON(t, srv, http.MethodGet, "/authors/auth/me", out.Token, nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var me map[string]any
		decode(t, rr, &me)
		assert.Equal(t, "carol@example.com", me["email"])
	})

	t.Run("profile edits are partial", func(t *testing.T) {
		rr := doJSON(t, srv, http.MethodPut, "/authors/auth/me", out.Token, map[string]any{
			"name": "Caroline",
		})
		require.Equal(t, http.StatusOK, rr.Code)

		var me map[string]any
		decode(t, rr, &me)
		assert.Equal(t, "Caroline", me["name"])
		assert.Equal(t, "Tester", me["surname"], "untouched fields survive")
	})

	t.Run("a mixed-case email edit does not break password login", func(t *testing.T) {
		rr := doJSON(t, srv, http.MethodPut, "/authors/auth/me", out.Token, map[string]any{
			"email": "Carol@Example.COM",
		})
		require.Equal(t, http.StatusOK, rr.Code)

		var me map[string]any
		decode(t, rr, &me)
		assert.Equal(t, "carol@example.com", me["email"])

		rr = doJSON(t, srv, http.MethodPost, "/authors/login", "", map[string]any{
			"email":    "carol@example.com",
			"password": "correct horse battery",
		})
		assert.Equal(t, http.StatusOK, rr.Code, "the account locked itself out: %s", rr.Body.String())
	})

	t.Run("deleting the account invalidates the token", func(t *testing.T) {
		rr := doJSON(t, srv, http.MethodDelete, "/authors/auth/me", out.Token, nil)
		assert.Equal(t, http.StatusNoContent, rr.Code)

		// The JWT is still cryptographically valid, but its subject is gone.
		rr = doJSON(t, srv, http.MethodGet, "/authors/auth/me", out.Token, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

// ============================================================================
// === POSTS: OWNERSHIP AND PAGINATION ===
// ============================================================================

func TestPostOwnership(t *testing.T) {
	srv := newTestServer(t, nil)
	alice := register(t, srv, "alice@example.com", "Alice")
	mallory := register(t, srv, "mallory@example.com", "Mallory")

	post := createPost(t, srv, alice.Token, "Alice's post")
	postID := post["id"].(string)

	t.Run("the listing embeds the author projection", func(t *testing.T) {
		rr := doJSON(t, srv, http.MethodGet, "/blogposts", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var page struct {
			TotalPosts  int              `json:"totalPosts"`
			TotalPages  int              `json:"totalPages"`
			CurrentPage int              `json:"currentPage"`
			Posts       []map[string]any `json:"posts"`
		}
		decode(t, rr, &page)
		require.Len(t, page.Posts, 1)
		assert.Equal(t, 1, page.TotalPosts)
		assert.Equal(t, 1, page.CurrentPage)

		author := page.Posts[0]["author"].(map[string]any)
		assert.Equal(t, "Alice", author["name"])
	})

	t.Run("a stranger cannot edit the post", func(t *testing.T) {
		rr := doJSON(t, srv, http.MethodPut, "/blogposts/auth/"+postID, mallory.Token, map[string]any{
			"title": "Hijacked",
		})
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("a stranger cannot delete the post", func(t *testing.T) {
		rr := doJSON(t, srv, http.MethodDelete, "/blogposts/auth/"+postID, mallory.Token, nil)
		assert.Equal(t, http.StatusForbidden, rr.Code)

		rr = doJSON(t, srv, http.MethodGet, "/blogposts/"+postID, "", nil)
		assert.Equal(t, http.StatusOK, rr.Code, "post survived the attempt")
	})

	t.Run("the owner edits and deletes", func(t *testing.T) {
		rr := doJSON(t, srv, http.MethodPut, "/blogposts/auth/"+postID, alice.Token, map[string]any{
			"title": "Alice's post, revised",
		})
		require.Equal(t, http.StatusOK, rr.Code)

		var updated map[string]any
		decode(t, rr, &updated)
		assert.Equal(t, "Alice's post, revised", updated["title"])
		assert.Equal(t, "go", updated["category"], "untouched fields survive")

		rr = doJSON(t, srv, http.MethodDelete, "/blogposts/auth/"+postID, alice.Token, nil)
		assert.Equal(t, http.StatusNoContent, rr.Code)

		rr = doJSON(t, srv, http.MethodGet, "/blogposts/"+postID, "", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("editing a missing post is 404, not 403", func(t *testing.T) {
		rr := doJSON(t, srv, http.MethodPut, "/blogposts/auth/nope", mallory.Token, map[string]any{
			"title": "anything",
		})
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestPostPagination(t *testing.T) {
	srv := newTestServer(t, nil)
	alice := register(t, srv, "alice@example.com", "Alice")

	for i := 1; i <= 12; i++ {
		createPost(t, srv, alice.Token, fmt.Sprintf("post %02d", i))
	}

	rr := doJSON(t, srv, http.MethodGet, "/blogposts?_page=2&_limit=5", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var page struct {
		TotalPosts  int              `json:"totalPosts"`
		TotalPages  int              `json:"totalPages"`
		CurrentPage int              `json:"currentPage"`
		Posts       []map[string]any `json:"posts"`
	}
	decode(t, rr, &page)

	assert.Equal(t, 12, page.TotalPosts)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 2, page.CurrentPage)
	require.Len(t, page.Posts, 5)
	assert.Equal(t, "post 06", page.Posts[0]["title"], "page 2 starts after the first five")
}

// ============================================================================
// === COMMENTS ===
// ============================================================================

func TestCommentRoutes(t *testing.T) {
	srv := newTestServer(t, nil)
	alice := register(t, srv, "alice@example.com", "Alice")
	bob := register(t, srv, "bob@example.com", "Bob")

	post := createPost(t, srv, alice.Token, "Commented post")
	postID := post["id"].(string)

	var commentID string

	t.Run("a logged-in reader comments", func(t *testing.T) {
		rr := doJSON(t, srv, http.MethodPost, "/blogposts/auth/"+postID+"/comments", bob.Token, map[string]any{
			"content": "Great read!",
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		var comment map[string]any
		decode(t, rr, &comment)
		commentID = comment["id"].(string)
		assert.Equal(t, "Great read!", comment["content"])
		assert.Equal(t, postID, comment["postId"])
		assert.NotEmpty(t, comment["authorId"])
	})

	t.Run("the thread is public", func(t *testing.T) {
		rr := doJSON(t, srv, http.MethodGet, "/blogposts/"+postID+"/comments", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var thread []map[string]any
		decode(t, rr, &thread)
		require.Len(t, thread, 1)
		assert.Equal(t, "Great read!", thread[0]["content"])
	})

	t.Run("a comment is addressed by post and comment id", func(t *testing.T) {
		rr := doJSON(t, srv, http.MethodGet, "/blogposts/"+postID+"/comments/"+commentID, "", nil)
		assert.Equal(t, http.StatusOK, rr.Code)

		// The right comment id under the wrong post does not resolve.
		rr = doJSON(t, srv, http.MethodGet, "/blogposts/wrong-post/comments/"+commentID, "", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("only the comment author deletes it", func(t *testing.T) {
		rr := doJSON(t, srv, http.MethodDelete, "/blogposts/auth/"+postID+"/comments/"+commentID, alice.Token, nil)
		assert.Equal(t, http.StatusForbidden, rr.Code, "the post owner is not the comment owner")

		rr = doJSON(t, srv, http.MethodDelete, "/blogposts/auth/"+postID+"/comments/"+commentID, bob.Token, nil)
		assert.Equal(t, http.StatusNoContent, rr.Code)

		rr = doJSON(t, srv, http.MethodGet, "/blogposts/"+postID+"/comments", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var thread []map[string]any
		decode(t, rr, &thread)
		assert.Empty(t, thread)
	})
}

// ============================================================================
// === AUTHOR DIRECTORY ===
// ============================================================================

func TestAuthorDirectory(t *testing.T) {
	srv := newTestServer(t, nil)
	out := register(t, srv, "alice@example.com", "Alice")
	authorID := out.Author["id"].(string)

	rr := doJSON(t, srv, http.MethodGet, "/authors", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var authors []map[string]any
	decode(t, rr, &authors)
	require.Len(t, authors, 1)
	assert.NotContains(t, authors[0], "passwordHash")

	rr = doJSON(t, srv, http.MethodGet, "/authors/"+authorID, "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/authors/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAvatarUploadWithoutStorage(t *testing.T) {
	srv := newTestServer(t, nil)
	out := register(t, srv, "alice@example.com", "Alice")
	authorID := out.Author["id"].(string)

	// No MinIO configured — uploads must refuse loudly, not 500.
	req := httptest.NewRequest(http.MethodPatch, "/authors/"+authorID+"/avatar", strings.NewReader(""))
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var body map[string]string
	decode(t, rr, &body)
	assert.Equal(t, "storage_unavailable", body["error"])

	// Same refusal on the self-service route — but only past the gate.
	rr = doJSON(t, srv, http.MethodPatch, "/authors/auth/me/avatar", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doJSON(t, srv, http.MethodPatch, "/authors/auth/me/avatar", out.Token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

// ============================================================================
// === SETUP/TESTING ROUTES ===
// ============================================================================

func TestSetupRoutesDisabledByDefault(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := doJSON(t, srv, http.MethodPost, "/authors", "", map[string]any{
		"name": "Ghost",
	})
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = doJSON(t, srv, http.MethodDelete, "/blogposts", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestSetupRoutes(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) {
		cfg.EnableSetupRoutes = true
	})

	t.Run("authors can be created without credentials", func(t *testing.T) {
		rr := doJSON(t, srv, http.MethodPost, "/authors", "", map[string]any{
			"name":    "Seed",
			"surname": "Author",
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		var created map[string]any
		decode(t, rr, &created)
		assert.NotEmpty(t, created["id"])
	})

	t.Run("anonymous comments carry no author", func(t *testing.T) {
		alice := register(t, srv, "alice@example.com", "Alice")
		post := createPost(t, srv, alice.Token, "Open thread")
		postID := post["id"].(string)

		rr := doJSON(t, srv, http.MethodPost, "/blogposts/"+postID+"/comments", "", map[string]any{
			"content": "drive-by comment",
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		var comment map[string]any
		decode(t, rr, &comment)
		assert.NotContains(t, comment, "authorId")
	})

	t.Run("posting as an unconfigured default author fails cleanly", func(t *testing.T) {
		rr := doJSON(t, srv, http.MethodPost, "/blogposts", "", map[string]any{
			"category": "go",
			"title":    "Seeded post",
			"content":  "text",
			"readTime": map[string]any{"value": 1, "unit": "minutes"},
		})
		assert.Equal(t, http.StatusNotFound, rr.Code, "DEFAULT_AUTHOR_ID is unset")
	})

	t.Run("delete all wipes the collection", func(t *testing.T) {
		rr := doJSON(t, srv, http.MethodDelete, "/blogposts", "", nil)
		assert.Equal(t, http.StatusNoContent, rr.Code)

		rr = doJSON(t, srv, http.MethodGet, "/blogposts", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var page struct {
			TotalPosts int `json:"totalPosts"`
		}
		decode(t, rr, &page)
		assert.Zero(t, page.TotalPosts)

		rr = doJSON(t, srv, http.MethodDelete, "/authors", "", nil)
		assert.Equal(t, http.StatusNoContent, rr.Code)

		rr = doJSON(t, srv, http.MethodGet, "/authors", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var authors []map[string]any
		decode(t, rr, &authors)
		assert.Empty(t, authors)
	})
}
