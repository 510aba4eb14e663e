package web

import "context"

type contextKey string

const (
	requestIDKey = contextKey("requestID")
	sessionIDKey = contextKey("sessionID")
	userIDKey    = contextKey("userID")
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns the request ID and a boolean indicating whether it was found.
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}

// WithSessionID adds the storefront session ID to the context.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// GetSessionID retrieves the storefront session ID from the context.
func GetSessionID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}

// WithUserID adds the identified shopper to the context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// CurrentUser returns the identified shopper, or "" for guests.
func CurrentUser(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
