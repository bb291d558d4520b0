package utils

import (
	"context"
	"errors"
)

// Key type for context values
type contextKey string

// Constant for username context key
const usernameKey contextKey = "username"

// UsernameFromContext extracts the authenticated username from the context
func UsernameFromContext(ctx context.Context) (string, error) {
	username, ok := ctx.Value(usernameKey).(string)
	if !ok || username == "" {
		return "", errors.New("username not found in context")
	}
	return username, nil
}

// WithUsername adds the authenticated username to the context
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey, username)
}
