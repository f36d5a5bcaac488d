package ports

import (
	"log/slog"
	"net/http"

	"github.com/Amund211/lilypad/internal/logging"
	"github.com/Amund211/lilypad/internal/ratelimiting"
)

func NewRateLimitMiddleware(rateLimiter ratelimiting.RequestRateLimiter, onLimitExceeded http.HandlerFunc) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !rateLimiter.Consume(r) {
				onLimitExceeded(w, r)
				return
			}

			next(w, r)
		}
	}
}

func ComposeMiddlewares(middlewares ...func(http.HandlerFunc) http.HandlerFunc) func(http.HandlerFunc) http.HandlerFunc {
	if len(middlewares) == 1 {
		return middlewares[0]
	}
	first := middlewares[0]
	rest := ComposeMiddlewares(middlewares[1:]...)
	return func(h http.HandlerFunc) http.HandlerFunc {
		return first(rest(h))
	}
}

type rateLimits struct {
	ipRefillPerSecond       ratelimiting.RefillPerSecond
	ipBurstSize             ratelimiting.BurstSize
	playerIDRefillPerSecond ratelimiting.RefillPerSecond
	playerIDBurstSize       ratelimiting.BurstSize
}

var readLimits = rateLimits{
	ipRefillPerSecond:       8,
	ipBurstSize:             480,
	playerIDRefillPerSecond: 2,
	playerIDBurstSize:       120,
}

var writeLimits = rateLimits{
	ipRefillPerSecond:       2,
	ipBurstSize:             120,
	playerIDRefillPerSecond: 1,
	playerIDBurstSize:       60,
}

func onLimitExceeded(w http.ResponseWriter, r *http.Request) {
	writeErrors(r.Context(), w, http.StatusTooManyRequests, "rate limit exceeded")
}

// buildAPIMiddleware is the middleware chain shared by every endpoint
func buildAPIMiddleware(
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
	allowedOrigins *DomainSuffixes,
	limits rateLimits,
) func(http.HandlerFunc) http.HandlerFunc {
	ipLimiter, _ := ratelimiting.NewTokenBucketRateLimiter(
		limits.ipRefillPerSecond,
		limits.ipBurstSize,
	)
	ipRateLimiter := ratelimiting.NewRequestBasedRateLimiter(
		ipLimiter,
		ratelimiting.IPKeyFunc,
	)
	playerIDLimiter, _ := ratelimiting.NewTokenBucketRateLimiter(
		limits.playerIDRefillPerSecond,
		limits.playerIDBurstSize,
	)
	playerIDRateLimiter := ratelimiting.NewRequestBasedRateLimiter(
		// NOTE: Rate limiting based on user controlled value
		playerIDLimiter,
		ratelimiting.PlayerIDKeyFunc,
	)

	return ComposeMiddlewares(
		buildMetricsMiddleware(),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		BuildCORSMiddleware(allowedOrigins),
		NewRateLimitMiddleware(ipRateLimiter, onLimitExceeded),
		NewRateLimitMiddleware(playerIDRateLimiter, onLimitExceeded),
	)
}
