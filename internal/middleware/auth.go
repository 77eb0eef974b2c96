package middleware

import (
	"context"
	"net/http"

	logpkg "github.com/benvon/smart-calendar/internal/logger"
	"github.com/benvon/smart-calendar/internal/request"
	"go.uber.org/zap"
)

// TokenVerifier checks a bearer token and returns the subject it belongs to
type TokenVerifier func(ctx context.Context, token string) (subject string, err error)

// Auth rejects requests without a valid bearer token and stores the subject
// in the request context
func Auth(verify TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := request.BearerToken(r)
			if token == "" {
				RespondError(w, r, http.StatusUnauthorized, "Unauthorized", "Missing or malformed Authorization header", logger)
				return
			}

			subject, err := verify(r.Context(), token)
			if err != nil || subject == "" {
				logger.Debug("token_rejected",
					zap.String("path", r.URL.Path),
					zap.String("error", logpkg.SanitizeError(err)))
				RespondError(w, r, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token", logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithSubject(r.Context(), subject)))
		})
	}
}
