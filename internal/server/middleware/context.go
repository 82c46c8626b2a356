package middleware

import "context"

type contextKey string

const ContextKeyUserID contextKey = "user_id"

func UserIDFromContext(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(ContextKeyUserID).(int64)
	return v, ok && v > 0
}

// WithUserID returns ctx carrying userID as the authenticated caller.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}
