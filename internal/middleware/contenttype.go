package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// ContentType requires application/json on requests that carry a body
func ContentType(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
				contentType := strings.ToLower(r.Header.Get("Content-Type"))
				switch {
				case contentType == "":
					RespondError(w, r, http.StatusBadRequest, "Bad Request", "Content-Type header is required", logger)
					return
				case !strings.HasPrefix(contentType, "application/json"):
					RespondError(w, r, http.StatusUnsupportedMediaType, "Unsupported Media Type", "Content-Type must be application/json", logger)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
