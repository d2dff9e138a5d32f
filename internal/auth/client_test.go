package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"furniture-storefront/internal/store"
)

const anonKey = "public-anon-key"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	rest, err := store.NewRestClient(server.URL, anonKey, server.Client())
	require.NoError(t, err)
	return NewClient(rest)
}

func TestClient_SignInWithPassword(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, anonKey, r.Header.Get("apikey"))

		var body map[string]string
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "owner@example.com", body["email"])
		assert.Equal(t, "hunter2", body["password"])

		_, _ = io.WriteString(w, `{"access_token":"at","token_type":"bearer","expires_in":3600,"refresh_token":"rt","user":{"id":"user-1","email":"owner@example.com"}}`)
	})

	token, err := client.SignInWithPassword(context.Background(), "owner@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "at", token.AccessToken)
	assert.Equal(t, 3600, token.ExpiresIn)
	assert.Equal(t, "user-1", token.User.ID)
}

func TestClient_SignInWithPassword_InvalidCredentials(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":400,"error_code":"invalid_credentials","msg":"Invalid login credentials"}`)
	})

	_, err := client.SignInWithPassword(context.Background(), "owner@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid login credentials", store.Message(err))
}

func TestClient_SignInWithOTP(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/otp", r.URL.Path)
		assert.Equal(t, "https://shop.example.com/admin", r.URL.Query().Get("redirect_to"))

		var body map[string]any
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "owner@example.com", body["email"])
		_, _ = io.WriteString(w, `{}`)
	})

	err := client.SignInWithOTP(context.Background(), "owner@example.com", "https://shop.example.com/admin")
	assert.NoError(t, err)
}

func TestClient_SignOutAndGetUser_UseAccessToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/auth/v1/logout":
			assert.Equal(t, http.MethodPost, r.Method)
			w.WriteHeader(http.StatusNoContent)
		case "/auth/v1/user":
			assert.Equal(t, http.MethodGet, r.Method)
			_, _ = io.WriteString(w, `{"id":"user-1","email":"owner@example.com"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	require.NoError(t, client.SignOut(context.Background(), "user-token"))

	user, err := client.GetUser(context.Background(), "user-token")
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", user.Email)
}

func TestClient_GetUser_Unauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"code":401,"error_code":"bad_jwt","msg":"invalid JWT"}`)
	})

	_, err := client.GetUser(context.Background(), "expired")
	require.Error(t, err)

	var apiErr *store.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "bad_jwt", apiErr.Code)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}
