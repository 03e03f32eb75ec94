package middleware

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/JagadeshwaranK/MedPlusMart/internal/domain"
)

// WindowLimiter admits at most a fixed number of requests per key within a
// rolling window. Rejected requests are not counted.
type WindowLimiter interface {
	Allow(ctx context.Context, key string) (domain.RateDecision, error)
}

// LimitRecorder is notified of rejected requests.
type LimitRecorder interface {
	IssuanceLimited()
}

// IssuanceLimit guards passcode issuance per client origin. It runs before
// the handler, so a rejected request never reaches the generator. A limiter
// backend failure rejects the request.
func IssuanceLimit(limiter WindowLimiter, trustProxy bool, rec LimitRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := realIP(r, trustProxy)
			d, err := limiter.Allow(r.Context(), origin)
			if err != nil {
				slog.Error("issuance limiter failed", "origin", origin, "err", err)
				writeJSONError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
				return
			}
			w.Header().Set("RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				secs := strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds())))
				w.Header().Set("Retry-After", secs)
				w.Header().Set("RateLimit-Reset", secs)
				rec.IssuanceLimited()
				writeJSONError(w, http.StatusTooManyRequests, "Too many OTP requests from this IP, please try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
