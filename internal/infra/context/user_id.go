package context

import (
	"context"
)

const (
	contextKeyUserID      = contextKey("userID")
	contextKeyAccessToken = contextKey("accessToken")
)

// UserIDFromContext extracts the authenticated user's id from the context.
// Every data access is scoped by this value.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(contextKeyUserID).(string)

	return userID, ok && userID != ""
}

// WithUserID returns a context carrying the authenticated user's id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKeyUserID, userID)
}

// AccessTokenFromContext extracts the bearer token the request was authorized with.
func AccessTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(contextKeyAccessToken).(string)

	return token, ok && token != ""
}

// WithAccessToken returns a context carrying the bearer token of the request.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, contextKeyAccessToken, token)
}
