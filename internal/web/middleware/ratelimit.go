package middleware

import (
	"net/http"
	"strconv"

	"github.com/JonMunkholm/pokedex/internal/logging"
	"github.com/JonMunkholm/pokedex/internal/ratelimit"
)

// RateLimit rejects requests beyond the limiter's budget for the client
// address. Place it after TrustedRealIP so RemoteAddr is the client.
//
// onLimit writes the rejection. A nil limiter disables the middleware. When
// the limiter itself fails the request is let through.
func RateLimit(l ratelimit.Limiter, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		retryAfter := strconv.Itoa(int(l.Window().Seconds()))

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := l.Allow(r.Context(), r.RemoteAddr)
			if err != nil {
				logging.FromContext(r.Context()).Warn("rate limiter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				w.Header().Set("Retry-After", retryAfter)
				onLimit(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
