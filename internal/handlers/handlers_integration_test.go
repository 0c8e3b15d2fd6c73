package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"notetaker/internal/handlers"
	"notetaker/internal/middleware"
	"notetaker/internal/models"
	"notetaker/internal/repositories"
	"notetaker/internal/services"
	"notetaker/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupApp sets up a Fiber app for testing with in-memory SQLite, a
// miniredis-backed session store, and all handlers/services wired the way
// main does it.
func setupApp(t *testing.T) *fiber.App {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Note{}))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	sessionStore := session.NewStore(rdb, 30*time.Minute, 7*24*time.Hour)

	// Initialize Repositories
	userRepo := repositories.NewGORMUserRepository(db)
	noteRepo := repositories.NewGORMNoteRepository(db)

	// Initialize Services (nil RabbitMQ client: events disabled in tests)
	authService := services.NewAuthService(userRepo, sessionStore)
	noteService := services.NewNoteService(noteRepo, nil)

	// Initialize Handlers
	authHandler := handlers.NewAuthHandler(authService)
	noteHandler := handlers.NewNoteHandler(noteService)

	app := fiber.New()

	apiV1 := app.Group("/api/v1")

	// Authentication routes (public)
	authHandler.RegisterRoutes(apiV1)

	// Protected routes (require an active session)
	protectedRoutes := apiV1.Group("", middleware.SessionRequired(sessionStore))
	authHandler.RegisterSessionRoutes(protectedRoutes)
	noteHandler.RegisterRoutes(protectedRoutes)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	})

	return app
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

func jsonRequest(method, target string, body interface{}, sessionToken string) *http.Request {
	var reader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionToken != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: sessionToken})
	}
	return req
}

func registerUser(t *testing.T, app *fiber.App, username, email, password string) {
	t.Helper()
	req := jsonRequest(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username":         username,
		"email":            email,
		"password":         password,
		"confirm_password": password,
	}, "")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func loginUser(t *testing.T, app *fiber.App, username, password string) string {
	t.Helper()
	req := jsonRequest(http.MethodPost, "/api/v1/auth/login", map[string]interface{}{
		"username": username,
		"password": password,
	}, "")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	for _, cookie := range resp.Cookies() {
		if cookie.Name == middleware.SessionCookieName {
			return cookie.Value
		}
	}
	t.Fatal("login response did not set a session cookie")
	return ""
}

func TestAuthRegisterAndLogin(t *testing.T) {
	app := setupApp(t)

	// Registration
	registerUser(t, app, "testuser", "test@example.com", "password123")

	// Duplicate registration conflicts and creates no second account
	req := jsonRequest(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username":         "testuser",
		"email":            "other@example.com",
		"password":         "password123",
		"confirm_password": "password123",
	}, "")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Invalid registration input is rejected with a specific message
	req = jsonRequest(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username":         "newuser",
		"email":            "new@example.com",
		"password":         "123",
		"confirm_password": "123",
	}, "")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Wrong password fails with the generic message
	req = jsonRequest(http.MethodPost, "/api/v1/auth/login", map[string]interface{}{
		"username": "testuser",
		"password": "wrongpassword",
	}, "")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var loginResp map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loginResp))
	assert.Equal(t, "Invalid username or password", loginResp["message"])
	resp.Body.Close()

	// A nonexistent user fails with the exact same message
	req = jsonRequest(http.MethodPost, "/api/v1/auth/login", map[string]interface{}{
		"username": "ghostuser",
		"password": "password123",
	}, "")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var ghostResp map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ghostResp))
	assert.Equal(t, loginResp["message"], ghostResp["message"])
	resp.Body.Close()

	// Successful login establishes a session usable on /auth/me
	token := loginUser(t, app, "testuser", "password123")

	req = jsonRequest(http.MethodGet, "/api/v1/auth/me", nil, token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var meResp struct {
		User models.User `json:"user"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&meResp))
	assert.Equal(t, "testuser", meResp.User.Username)
	resp.Body.Close()

	// Logout destroys the session; the old cookie no longer works
	req = jsonRequest(http.MethodPost, "/api/v1/auth/logout", nil, token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	req = jsonRequest(http.MethodGet, "/api/v1/auth/me", nil, token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestNoteCRUDLifecycle(t *testing.T) {
	app := setupApp(t)

	registerUser(t, app, "alice", "alice@x.com", "password123")
	token := loginUser(t, app, "alice", "password123")

	// Create
	req := jsonRequest(http.MethodPost, "/api/v1/notes", map[string]string{
		"title":   "Groceries",
		"content": "Milk, eggs",
	}, token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Note
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotZero(t, created.ID)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
	resp.Body.Close()

	// Dashboard lists the note with the total count
	req = jsonRequest(http.MethodGet, "/api/v1/dashboard", nil, token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var dashboard struct {
		Notes []models.Note `json:"notes"`
		Total int64         `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&dashboard))
	require.Len(t, dashboard.Notes, 1)
	assert.Equal(t, "Groceries", dashboard.Notes[0].Title)
	assert.Equal(t, int64(1), dashboard.Total)
	resp.Body.Close()

	// Lowercase search term matches mixed-case content
	req = jsonRequest(http.MethodGet, "/api/v1/dashboard?search=milk", nil, token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&dashboard))
	require.Len(t, dashboard.Notes, 1)
	assert.Equal(t, created.ID, dashboard.Notes[0].ID)
	resp.Body.Close()

	// Update
	req = jsonRequest(http.MethodPut, fmt.Sprintf("/api/v1/notes/%d", created.ID), map[string]string{
		"title":   "Groceries v2",
		"content": "Milk, eggs, bread",
	}, token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated models.Note
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	assert.Equal(t, "Groceries v2", updated.Title)
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))
	resp.Body.Close()

	// Recent
	req = jsonRequest(http.MethodGet, "/api/v1/notes/recent?limit=1", nil, token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var recent []models.Note
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&recent))
	require.Len(t, recent, 1)
	assert.Equal(t, "Groceries v2", recent[0].Title)
	resp.Body.Close()

	// Delete, then verify the note is gone
	req = jsonRequest(http.MethodDelete, fmt.Sprintf("/api/v1/notes/%d", created.ID), nil, token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	req = jsonRequest(http.MethodGet, fmt.Sprintf("/api/v1/notes/%d", created.ID), nil, token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Deleting again is a miss
	req = jsonRequest(http.MethodDelete, fmt.Sprintf("/api/v1/notes/%d", created.ID), nil, token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestNoteOwnershipIsolation(t *testing.T) {
	app := setupApp(t)

	registerUser(t, app, "alice", "alice@x.com", "password123")
	registerUser(t, app, "bob", "bob@x.com", "password123")
	aliceToken := loginUser(t, app, "alice", "password123")
	bobToken := loginUser(t, app, "bob", "password123")

	req := jsonRequest(http.MethodPost, "/api/v1/notes", map[string]string{
		"title":   "Private",
		"content": "alice's secret",
	}, aliceToken)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var note models.Note
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&note))
	resp.Body.Close()

	// Bob cannot read, update, or delete Alice's note; each attempt looks
	// exactly like the note not existing.
	noteURL := fmt.Sprintf("/api/v1/notes/%d", note.ID)

	req = jsonRequest(http.MethodGet, noteURL, nil, bobToken)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	req = jsonRequest(http.MethodPut, noteURL, map[string]string{"title": "stolen", "content": "x"}, bobToken)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	req = jsonRequest(http.MethodDelete, noteURL, nil, bobToken)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Bob's dashboard and search never surface Alice's note
	req = jsonRequest(http.MethodGet, "/api/v1/dashboard?search=secret", nil, bobToken)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var dashboard struct {
		Notes []models.Note `json:"notes"`
		Total int64         `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&dashboard))
	assert.Empty(t, dashboard.Notes)
	assert.Equal(t, int64(0), dashboard.Total)
	resp.Body.Close()

	// Alice still sees her note
	req = jsonRequest(http.MethodGet, noteURL, nil, aliceToken)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	app := setupApp(t)

	// No cookie
	req := jsonRequest(http.MethodGet, "/api/v1/dashboard", nil, "")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	req = jsonRequest(http.MethodPost, "/api/v1/notes", map[string]string{
		"title":   "nope",
		"content": "unauthorized",
	}, "")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// A made-up token is rejected the same way
	req = jsonRequest(http.MethodGet, "/api/v1/dashboard", nil, "not-a-real-session")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestHealthEndpoint(t *testing.T) {
	app := setupApp(t)

	req := jsonRequest(http.MethodGet, "/health", nil, "")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
