package shared

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/coursegen/internal/platform/logger"
)

// ContextKey is the type of request context keys set by the API layer.
type ContextKey string

const (
	// UserIDContextKey holds the authenticated caller's user id.
	UserIDContextKey ContextKey = "userID"
)

// SetTraceID adds a fresh trace ID to the context.
// It is returned in error responses and attached to every log record.
func SetTraceID(ctx context.Context) context.Context {
	return logger.WithTraceID(ctx, uuid.NewString())
}

// GetTraceID retrieves the trace ID from the context, or "".
func GetTraceID(ctx context.Context) string {
	return logger.TraceID(ctx)
}

// UserID returns the authenticated user id set by the auth middleware.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(UserIDContextKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
