package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lingoquest/internal/database"
	"lingoquest/internal/events"
	"lingoquest/internal/logger"
	"lingoquest/internal/repository"
	"lingoquest/internal/security"
	"lingoquest/internal/service"
	"lingoquest/internal/testutil"
)

type testServer struct {
	handler http.Handler
	db      *database.DB
	auth    *service.AuthService
}

func newTestServer(t *testing.T, limit int) *testServer {
	t.Helper()
	log := logger.Nop()
	db := testutil.NewDB(t)

	contentRepo := repository.NewContentRepository(db)
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	progressRepo := repository.NewProgressRepository(db)

	bus := events.NewBus(log)
	require.NoError(t, service.NewRewardService(profileRepo, log).Register(bus))

	contentService := service.NewContentService(contentRepo, nil, time.Minute, log)
	progressService := service.NewProgressService(db, contentRepo, progressRepo, profileRepo, bus, log)
	authService := service.NewAuthService(db, userRepo, profileRepo, security.NewTokenIssuer("handler-secret", time.Hour), nil, log)
	profileService := service.NewProfileService(profileRepo, log)

	limiter := security.NewRateLimiter(limit, time.Minute)
	t.Cleanup(limiter.Stop)

	handler := NewRouter(RouterConfig{
		Middleware:     NewMiddleware(authService, limiter, log),
		Content:        NewContentHandler(contentService, log),
		Progress:       NewProgressHandler(progressService, log),
		Auth:           NewAuthHandler(authService, log),
		Profile:        NewProfileHandler(profileService, log),
		DB:             db,
		AllowedOrigins: []string{"*"},
		Log:            log,
	})
	return &testServer{handler: handler, db: db, auth: authService}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(t *testing.T, username string) string {
	t.Helper()
	_, err := s.auth.Register(context.Background(), service.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "s3cretpass",
	})
	require.NoError(t, err)
	token, err := s.auth.Login(context.Background(), username, "s3cretpass")
	require.NoError(t, err)
	return token.Access
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error.Code
}

func TestContentRoutes(t *testing.T) {
	s := newTestServer(t, 100)
	f := testutil.SeedTree(t, s.db, "es", 10)

	rec := s.do(t, http.MethodGet, "/languages/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var langs []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &langs))
	require.Len(t, langs, 1)
	assert.Equal(t, "es", langs[0]["code"])
	modules := langs[0]["modules"].([]interface{})
	require.Len(t, modules, 1)

	for _, path := range []string{
		fmt.Sprintf("/languages/%d/", f.LanguageID),
		fmt.Sprintf("/modules/%d", f.ModuleID),
		fmt.Sprintf("/lessons/%d/", f.LessonID),
		fmt.Sprintf("/exercises/%d/", f.ExerciseID),
		"/modules/", "/lessons", "/exercises/",
	} {
		rec := s.do(t, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/exercises/%d/", f.ExerciseID), "", "")
	assert.JSONEq(t, fmt.Sprintf(`{"id":%d,"type":"mcq","question":"Hola","answer":"Hello","options":{"choices":["Hello","Bye"]}}`, f.ExerciseID), rec.Body.String())
}

func TestContentRouteErrors(t *testing.T) {
	s := newTestServer(t, 100)
	testutil.SeedTree(t, s.db, "es", 10)

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"unknown id", http.MethodGet, "/lessons/999/", http.StatusNotFound},
		{"non integer id", http.MethodGet, "/lessons/abc/", http.StatusNotFound},
		{"negative id", http.MethodGet, "/modules/-1", http.StatusNotFound},
		{"unknown route", http.MethodGet, "/courses/", http.StatusNotFound},
		{"post on list", http.MethodPost, "/languages/", http.StatusMethodNotAllowed},
		{"delete on detail", http.MethodDelete, "/lessons/1/", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, "", "")
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestInvalidTokenRejectedOnReadRoutes(t *testing.T) {
	s := newTestServer(t, 100)

	rec := s.do(t, http.MethodGet, "/languages/", "not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", errorCode(t, rec))

	req := httptest.NewRequest(http.MethodGet, "/languages/", nil)
	req.Header.Set("Authorization", "Token abc")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProgressFlow(t *testing.T) {
	s := newTestServer(t, 100)
	f := testutil.SeedTree(t, s.db, "es", 10)
	token := s.register(t, "ana")
	body := fmt.Sprintf(`{"lesson_id": %d}`, f.LessonID)

	rec := s.do(t, http.MethodPost, "/progress/", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, float64(f.LessonID), created["lesson"])
	assert.Equal(t, true, created["is_completed"])
	assert.NotEmpty(t, created["completed_at"])

	rec = s.do(t, http.MethodPost, "/progress", token, body)
	require.Equal(t, http.StatusOK, rec.Code)
	var again map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &again))
	assert.Equal(t, created["id"], again["id"])

	rec = s.do(t, http.MethodGet, "/profile/", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var profile map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, float64(10), profile["xp"])
	assert.Equal(t, float64(1), profile["streak_days"])

	rec = s.do(t, http.MethodGet, "/progress/", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	assert.Len(t, records, 1)
}

func TestProgressErrors(t *testing.T) {
	s := newTestServer(t, 100)
	testutil.SeedTree(t, s.db, "es", 10)
	token := s.register(t, "ana")

	tests := []struct {
		name   string
		token  string
		body   string
		status int
		code   string
	}{
		{"anonymous", "", `{"lesson_id": 1}`, http.StatusUnauthorized, "unauthorized"},
		{"missing lesson_id", token, `{}`, http.StatusBadRequest, "bad_request"},
		{"null lesson_id", token, `{"lesson_id": null}`, http.StatusBadRequest, "bad_request"},
		{"non integer lesson_id", token, `{"lesson_id": "abc"}`, http.StatusBadRequest, "bad_request"},
		{"unknown lesson", token, `{"lesson_id": 999}`, http.StatusNotFound, "not_found"},
		{"broken json", token, `{"lesson_id":`, http.StatusBadRequest, "bad_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/progress/", tt.token, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}

	assert.Zero(t, testutil.Count(t, s.db, "user_progress"))
}

func TestProgressMissingLessonIDMessage(t *testing.T) {
	s := newTestServer(t, 100)
	testutil.SeedTree(t, s.db, "es", 10)
	token := s.register(t, "ana")

	for _, body := range []string{`{}`, `{"lesson_id": null}`} {
		rec := s.do(t, http.MethodPost, "/progress/", token, body)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, ErrLessonIDRequired, resp.Error.Message, body)
		assert.Equal(t, "This field is required.", resp.Error.Message, body)
	}
}

func TestRegisterAndToken(t *testing.T) {
	s := newTestServer(t, 100)

	rec := s.do(t, http.MethodPost, "/register/", "", `{"username":"ana","email":"ana@example.com","password":"s3cretpass"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var user map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "ana", user["username"])
	assert.Equal(t, "ana@example.com", user["email"])
	assert.NotContains(t, rec.Body.String(), "password")

	rec = s.do(t, http.MethodPost, "/register/", "", `{"username":"ana2","email":"ana@example.com","password":"s3cretpass"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation_error", body.Error.Code)
	assert.Contains(t, body.Error.Fields, "email")

	rec = s.do(t, http.MethodPost, "/token/", "", `{"username":"ana","password":"s3cretpass"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var token map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))
	assert.Equal(t, "Bearer", token["token_type"])

	rec = s.do(t, http.MethodPost, "/token/", "", `{"username":"ana","password":"nope-nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterIsRateLimited(t *testing.T) {
	s := newTestServer(t, 2)

	for i := 0; i < 2; i++ {
		rec := s.do(t, http.MethodPost, "/token/", "", `{"username":"x","password":"y"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := s.do(t, http.MethodPost, "/token/", "", `{"username":"x","password":"y"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Content reads are not throttled
	rec = s.do(t, http.MethodGet, "/languages/", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProfilePatch(t *testing.T) {
	s := newTestServer(t, 100)
	token := s.register(t, "ana")

	rec := s.do(t, http.MethodPatch, "/profile/", token, `{"bio":"Hola!","interests":["travel"],"xp":9000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var profile map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "Hola!", profile["bio"])
	assert.Equal(t, []interface{}{"travel"}, profile["interests"])
	assert.Equal(t, float64(0), profile["xp"])

	rec = s.do(t, http.MethodPatch, "/profile/", token, `{"profile_photo_url":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errorCode(t, rec))

	rec = s.do(t, http.MethodGet, "/profile/", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 100)

	rec := s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}
