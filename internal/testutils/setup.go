package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Kyz7/blogaccount/internal/auth"
	"github.com/Kyz7/blogaccount/internal/config"
	"github.com/Kyz7/blogaccount/internal/database"
	"github.com/Kyz7/blogaccount/internal/media"
	"github.com/Kyz7/blogaccount/internal/models"
	"github.com/Kyz7/blogaccount/internal/notify"
	"github.com/Kyz7/blogaccount/internal/server"
	"github.com/Kyz7/blogaccount/internal/session"
	"github.com/Kyz7/blogaccount/internal/user"
	"github.com/Kyz7/blogaccount/internal/utils"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const BaseURL = "http://blog.test"

// TestDB returns a migrated in-memory sqlite database. A single connection is
// used so that every query, including ones inside transactions, sees the same memory DB.
func TestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "Failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db), "Failed to migrate test database")
	return db
}

// Clock is a settable time source shared by the services under test.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// TestApp bundles the fiber app with the collaborators tests need to inspect.
type TestApp struct {
	App        *fiber.App
	DB         *gorm.DB
	Clock      *Clock
	Sessions   *session.Manager
	Auth       *auth.Service
	Reset      *auth.ResetManager
	Dispatcher *notify.Dispatcher
	Images     *media.LocalStore
	States     *auth.MemoryStateStore
	Google     *auth.GoogleProvider
}

func SetupTestApp(t *testing.T) *TestApp {
	db := TestDB(t)
	clock := NewClock()

	images := media.NewLocalStore(t.TempDir(), "/uploads")
	dispatcher := notify.NewDispatcher(db, clock.Now)
	sessions := session.NewManager(db, config.TestJWTSecret, session.WithClock(clock.Now))
	authSvc := auth.NewService(db)
	reset := auth.NewResetManager(db, dispatcher, BaseURL, auth.WithResetClock(clock.Now))
	avatars := media.NewAvatarManager(db, images, "avatars")
	states := auth.NewMemoryStateStore()
	google := auth.NewGoogleProvider("test-client-id", "test-client-secret", BaseURL+"/auth/google/callback")

	authHandler := auth.NewHandler(authSvc, reset, sessions, google, states)
	profileHandler := user.NewHandler(user.NewService(db, avatars), authSvc)

	app := server.New(server.Deps{
		Auth:      authHandler,
		Profile:   profileHandler,
		Sessions:  sessions,
		UploadDir: images.Root(),
	})

	return &TestApp{
		App:        app,
		DB:         db,
		Clock:      clock,
		Sessions:   sessions,
		Auth:       authSvc,
		Reset:      reset,
		Dispatcher: dispatcher,
		Images:     images,
		States:     states,
		Google:     google,
	}
}

func CreateTestUser(t *testing.T, db *gorm.DB, email, password string) *models.User {
	var hashed string
	if password != "" {
		var err error
		hashed, err = utils.HashPassword(password)
		require.NoError(t, err)
	}

	u := &models.User{
		Name:     "Test User",
		Email:    email,
		Password: hashed,
		Provider: models.ProviderCredentials,
	}
	require.NoError(t, db.Create(u).Error, "Failed to create test user")
	return u
}

func GetAuthToken(t *testing.T, sessions *session.Manager, userID uint) string {
	pair, err := sessions.Issue(context.Background(), userID)
	require.NoError(t, err, "Failed to issue test session")
	return pair.AccessToken
}

func MakeRequest(app *fiber.App, method, url string, body interface{}, token string) (*httptest.ResponseRecorder, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req := httptest.NewRequest(method, url, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	resp, err := app.Test(req, -1)
	if err != nil {
		return rec, err
	}
	defer resp.Body.Close()

	rec.Code = resp.StatusCode
	for k, v := range resp.Header {
		for _, val := range v {
			rec.Header().Add(k, val)
		}
	}
	_, err = io.Copy(rec.Body, resp.Body)
	return rec, err
}

type StandardResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    interface{}  `json:"data"`
	Error   *ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func ParseResponse(t *testing.T, resp *httptest.ResponseRecorder, v interface{}) {
	if resp.Body.Len() == 0 {
		t.Log("Warning: Response body is empty")
		return
	}
	if err := json.Unmarshal(resp.Body.Bytes(), v); err != nil {
		t.Logf("Response body: %s", resp.Body.String())
		assert.NoError(t, err, "Failed to parse response")
	}
}

// Data parses the response and returns its data object.
func Data(t *testing.T, resp *httptest.ResponseRecorder) map[string]interface{} {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	data, ok := result.Data.(map[string]interface{})
	require.True(t, ok, "Expected object in data, body: %s", resp.Body.String())
	return data
}

func AssertSuccess(t *testing.T, resp *httptest.ResponseRecorder) {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.True(t, result.Success, "Expected success response, body: %s", resp.Body.String())
	assert.Nil(t, result.Error, "Expected no error")
}

func AssertError(t *testing.T, resp *httptest.ResponseRecorder, expectedCode string) *ErrorDetail {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.False(t, result.Success, "Expected error response")
	require.NotNil(t, result.Error, "Expected error object, body: %s", resp.Body.String())
	assert.Equal(t, expectedCode, result.Error.Code, "Error code mismatch")
	return result.Error
}
