package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"furniture-storefront/internal/auth"
	"furniture-storefront/internal/store"
)

func TestRateLimiter_SignInEndpoints(t *testing.T) {
	s := setupTestChiServer(t, NewRateLimiter(0.001, 2))
	s.auth.On("SignInWithOTP", mock.Anything, ownerEmail, "").Return(nil)

	for i := 0; i < 2; i++ {
		resp := s.do(t, newJSONRequest(t, http.MethodPost, s.URL+"/api/v1/admin/magic-link", MagicLinkInput{Email: ownerEmail}))
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	}

	resp := s.do(t, newJSONRequest(t, http.MethodPost, s.URL+"/api/v1/admin/login", LoginInput{Email: ownerEmail, Password: "x"}))
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
	s.auth.AssertNotCalled(t, "SignInWithPassword", mock.Anything, mock.Anything, mock.Anything)

	// Public pages are not limited.
	resp = s.do(t, newJSONRequest(t, http.MethodGet, s.URL+"/api/v1/about", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRateLimiter_PerClient(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.2"), "other clients keep their own bucket")

	now = now.Add(time.Second)
	assert.True(t, limiter.Allow("10.0.0.1"), "bucket refills")
}

func TestRateLimiter_Prune(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.Allow("10.0.0.1")
	now = now.Add(2 * time.Minute)
	limiter.Allow("10.0.0.2")
	limiter.prune(time.Minute)

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.NotContains(t, limiter.clients, "10.0.0.1")
	assert.Contains(t, limiter.clients, "10.0.0.2")
}

func TestRateLimiter_CleanupStopsWithContext(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		limiter.Cleanup(ctx, time.Millisecond, time.Minute)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Cleanup did not return after cancel")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:51234"
	assert.Equal(t, "192.0.2.7", clientIP(req))

	req.RemoteAddr = "192.0.2.8"
	assert.Equal(t, "192.0.2.8", clientIP(req))
}

func TestRequestLogger_LevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(RequestLogger(log))
	router.Get("/ok", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("ok")) })
	router.Get("/missing", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) })
	router.Get("/broken", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) })

	for path, level := range map[string]string{"/ok": "info", "/missing": "warn", "/broken": "error"} {
		buf.Reset()
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), path)
		assert.Equal(t, level, entry["level"], path)
		assert.Equal(t, path, entry["path"])
		assert.NotEmpty(t, entry["request_id"])
	}
}

func TestRequireAdmin_AttachesSessionAndToken(t *testing.T) {
	mockAuth := new(MockAuthenticator)
	mockAuth.On("GetUser", mock.Anything, "token-owner").Return(&auth.User{ID: "u1", Email: ownerEmail}, nil)
	h := NewHTTPHandler(Dependencies{
		Sessions: auth.NewManager(mockAuth, auth.NewMemoryStore(), auth.ManagerOptions{AllowList: auth.ParseAllowList(ownerEmail)}),
		Logger:   zerolog.Nop(),
	})

	var seen *auth.Session
	var token string
	protected := h.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionFromContext(r.Context())
		token, _ = store.AccessToken(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token-owner")
	rr := httptest.NewRecorder()
	protected.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, seen)
	assert.Equal(t, ownerEmail, seen.Email)
	assert.Equal(t, "token-owner", token)
}

func TestRequireAdmin_RejectedTokenIsUnauthorized(t *testing.T) {
	mockAuth := new(MockAuthenticator)
	mockAuth.On("GetUser", mock.Anything, "stale").Return(nil, &store.APIError{StatusCode: 401, Message: "invalid JWT"})
	h := NewHTTPHandler(Dependencies{
		Sessions: auth.NewManager(mockAuth, auth.NewMemoryStore(), auth.ManagerOptions{}),
		Logger:   zerolog.Nop(),
	})

	called := false
	protected := h.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer stale")
	rr := httptest.NewRecorder()
	protected.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, called)
}
