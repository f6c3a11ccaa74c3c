package authz

import "context"

type contextKey string

const userIDKey contextKey = "userID"

// WithUserID stores the authenticated caller id in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFrom returns the caller id stored by WithUserID. An empty id counts
// as absent.
func UserIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}
