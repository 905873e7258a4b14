// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// This package defines context keys and getter/setter functions for values that are
// typically set by middleware but consumed by services. By keeping this package free
// of net/http dependencies, services can import only what they need without pulling
// in HTTP-related code.
//
// Usage in services (read values):
//
//	userID := requestcontext.UserID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "drs/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	userIDKey      struct{}
	userNameKey    struct{}
	reviewerIDKey  struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyUserID      = userIDKey{}
	ContextKeyUserName    = userNameKey{}
	ContextKeyReviewerID  = reviewerIDKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// UserID retrieves the authenticated user ID from the context.
// Returns the zero value (nil UUID) if not set.
func UserID(ctx context.Context) id.UserID {
	if userID, ok := ctx.Value(ContextKeyUserID).(id.UserID); ok {
		return userID
	}
	return id.UserID{}
}

// WithUserID injects a user ID into the context.
func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// UserName retrieves the display name of the authenticated user.
func UserName(ctx context.Context) string {
	if name, ok := ctx.Value(ContextKeyUserName).(string); ok {
		return name
	}
	return ""
}

// WithUserName injects a user display name into the context.
func WithUserName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ContextKeyUserName, name)
}

// ReviewerID retrieves the acting reviewer ID from the context.
// Returns the zero value (nil UUID) if the caller is not a reviewer.
func ReviewerID(ctx context.Context) id.ReviewerID {
	if reviewerID, ok := ctx.Value(ContextKeyReviewerID).(id.ReviewerID); ok {
		return reviewerID
	}
	return id.ReviewerID{}
}

// WithReviewerID injects a reviewer ID into the context.
func WithReviewerID(ctx context.Context, reviewerID id.ReviewerID) context.Context {
	return context.WithValue(ctx, ContextKeyReviewerID, reviewerID)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for non-HTTP contexts like workers and tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for service unit tests and workers that need consistent time in a batch.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
