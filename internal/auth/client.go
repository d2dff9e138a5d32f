// Package auth owns the admin session flow: signing operators in through the
// project's auth service, keeping their sessions server-side and deciding
// whether a signed-in account may use the admin panel.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"furniture-storefront/internal/store"
)

// User is the account returned by the auth service.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// TokenResponse is a successful password grant.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"` // seconds
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Authenticator is the subset of the auth service the session manager needs.
type Authenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (*TokenResponse, error)
	SignInWithOTP(ctx context.Context, email, redirectTo string) error
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*User, error)
}

// Client talks to the project's auth endpoints (/auth/v1) over the shared REST client.
type Client struct {
	rest *store.RestClient
}

// NewClient creates a new auth Client.
func NewClient(rest *store.RestClient) *Client {
	return &Client{rest: rest}
}

// SignInWithPassword exchanges an email and password for a session token.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*TokenResponse, error) {
	params := url.Values{}
	params.Set("grant_type", "password")
	payload := map[string]string{"email": email, "password": password}

	var token TokenResponse
	if err := c.rest.Call(ctx, http.MethodPost, "/auth/v1/token", params, payload, &token); err != nil {
		return nil, fmt.Errorf("auth: SignInWithPassword: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("auth: SignInWithPassword: %w", ErrInvalidToken)
	}
	return &token, nil
}

// SignInWithOTP asks the auth service to email a one-time sign-in link.
func (c *Client) SignInWithOTP(ctx context.Context, email, redirectTo string) error {
	var params url.Values
	if redirectTo != "" {
		params = url.Values{}
		params.Set("redirect_to", redirectTo)
	}
	payload := map[string]any{"email": email, "create_user": true}

	if err := c.rest.Call(ctx, http.MethodPost, "/auth/v1/otp", params, payload, nil); err != nil {
		return fmt.Errorf("auth: SignInWithOTP: %w", err)
	}
	return nil
}

// SignOut revokes the session behind accessToken at the auth service.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	ctx = store.WithAccessToken(ctx, accessToken)
	if err := c.rest.Call(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, nil); err != nil {
		return fmt.Errorf("auth: SignOut: %w", err)
	}
	return nil
}

// GetUser resolves the account an access token belongs to.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	ctx = store.WithAccessToken(ctx, accessToken)
	var user User
	if err := c.rest.Call(ctx, http.MethodGet, "/auth/v1/user", nil, nil, &user); err != nil {
		return nil, fmt.Errorf("auth: GetUser: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("auth: GetUser: %w", ErrInvalidToken)
	}
	return &user, nil
}
