package testutil

import (
	"net/http"

	id "drs/pkg/domain"
	"drs/pkg/requestcontext"
)

// WithUser adds an authenticated user identity to the request context,
// simulating what the auth middleware does. Invalid IDs are silently ignored.
func WithUser(req *http.Request, userID, userName string) *http.Request {
	ctx := req.Context()
	if parsed, err := id.ParseUserID(userID); err == nil {
		ctx = requestcontext.WithUserID(ctx, parsed)
	}
	if userName != "" {
		ctx = requestcontext.WithUserName(ctx, userName)
	}
	return req.WithContext(ctx)
}

// WithReviewer adds a reviewer identity on top of the user identity.
func WithReviewer(req *http.Request, userID, userName, reviewerID string) *http.Request {
	req = WithUser(req, userID, userName)
	ctx := req.Context()
	if parsed, err := id.ParseReviewerID(reviewerID); err == nil {
		ctx = requestcontext.WithReviewerID(ctx, parsed)
	}
	return req.WithContext(ctx)
}
