package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"drs/internal/jwtauth"
	id "drs/pkg/domain"
	"drs/pkg/requestcontext"
)

// Validator validates bearer tokens. Satisfied by *jwtauth.Service;
// tests substitute a stub.
type Validator interface {
	ValidateToken(tokenString string) (*jwtauth.Claims, error)
}

// RequireAuth rejects requests without a valid bearer token and injects the
// caller's identity into the request context for downstream services.
func RequireAuth(validator Validator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok {
				logger.WarnContext(r.Context(), "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(r.Context()),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx := r.Context()
			if userID, err := id.ParseUserID(claims.UserID); err == nil {
				ctx = requestcontext.WithUserID(ctx, userID)
			}
			ctx = requestcontext.WithUserName(ctx, claims.UserName)
			if claims.ReviewerID != "" {
				if reviewerID, err := id.ParseReviewerID(claims.ReviewerID); err == nil {
					ctx = requestcontext.WithReviewerID(ctx, reviewerID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
