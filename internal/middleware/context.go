package middleware

import "context"

type ctxKey string

const (
	userIDKey ctxKey = "user_id"
	claimsKey ctxKey = "token_claims"
)

// WithUserID stores the authenticated user id on ctx.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the authenticated user id stored by Auth.Middleware.
func UserID(ctx context.Context) (int64, bool) {
	uid, ok := ctx.Value(userIDKey).(int64)
	return uid, ok
}
