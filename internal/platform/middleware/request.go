package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"drs/pkg/requestcontext"
)

// RequestMetadata stamps each request with an ID and a request-scoped "now"
// so every operation within one request observes the same timestamp.
func RequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithTime(ctx, time.Now())

		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
