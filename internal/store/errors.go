package store

import (
	"context"
	"errors"
	"fmt"
)

// Predefined errors for store operations
var (
	ErrProductNotFound = errors.New("store: product not found")
	ErrMissingEndpoint = errors.New("store: project URL and public key are required")
)

// APIError is a failure reported by the remote catalog store. Message is
// human-readable and safe to show to an operator.
type APIError struct {
	StatusCode int
	Code       string // PostgREST / storage error code, if any
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("store: request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// Message returns the human-readable part of err for status lines shown to
// operators and users. Store-reported failures keep their own message.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return err.Error()
}

type accessTokenKey struct{}

// WithAccessToken attaches a signed-in user's access token to ctx. Requests made
// with that context act as the user instead of the anonymous public key.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessToken returns the token attached by WithAccessToken, if any.
func AccessToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(accessTokenKey{}).(string)
	return token, ok && token != ""
}
