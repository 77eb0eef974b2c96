package middleware

import (
	"fmt"
	"net/http"

	"github.com/benvon/smart-calendar/internal/request"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

// DefaultRate is the limiter rate used when none is given
const DefaultRate = "5-S"

// RateLimit limits requests per client IP with an in-memory ulule/limiter
// store. rate uses the limiter's formatted syntax, e.g. "5-S" or "100-M".
func RateLimit(rate string, logger *zap.Logger) (func(http.Handler) http.Handler, error) {
	if rate == "" {
		rate = DefaultRate
	}
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate %q: %w", rate, err)
	}
	instance := limiter.New(memory.NewStore(), parsed)
	mw := stdlibmw.NewMiddleware(instance,
		stdlibmw.WithKeyGetter(request.ClientIP),
		stdlibmw.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug("rate_limit_reached", zap.String("path", r.URL.Path))
			RespondError(w, r, http.StatusTooManyRequests, "Too Many Requests", "Rate limit exceeded, retry later", logger)
		}),
		stdlibmw.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("rate_limiter_failed", zap.Error(err))
			RespondError(w, r, http.StatusInternalServerError, "Internal Server Error", "Rate limiter unavailable", logger)
		}),
	)
	return mw.Handler, nil
}
