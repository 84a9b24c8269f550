package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/osvaldoandrade/osintq/internal/metrics"
	"github.com/osvaldoandrade/osintq/internal/ratelimit"
	"github.com/osvaldoandrade/osintq/pkg/config"
)

// RateLimitSubmit throttles investigation submissions. Subjects are keyed by
// bearer token when present, otherwise by client IP (the submit endpoint may
// run without auth).
func RateLimitSubmit(lim ratelimit.Limiter, cfg *config.Config) gin.HandlerFunc {
	bucket := ratelimit.Bucket{
		RequestsPerMinute: cfg.RateLimit.Submit.RequestsPerMinute,
		BurstSize:         cfg.RateLimit.Submit.BurstSize,
	}
	return func(c *gin.Context) {
		if lim == nil || !bucket.Enabled() {
			c.Next()
			return
		}

		subject := bearerToken(c.GetHeader("Authorization"))
		if subject == "" {
			subject = c.ClientIP()
		}

		dec, err := lim.Allow(c.Request.Context(), "submit", subject, bucket)
		if err != nil {
			// Fail open to avoid turning redis hiccups into outages.
			slog.Default().Warn("rate limit check failed", "scope", "submit", "err", err)
			c.Next()
			return
		}
		if dec.Allowed {
			c.Next()
			return
		}

		retryAfterSeconds := int(dec.RetryAfter.Seconds())
		if retryAfterSeconds <= 0 {
			retryAfterSeconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		metrics.RateLimitHitsTotal.WithLabelValues("submit", "start_investigation").Inc()
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
	}
}
