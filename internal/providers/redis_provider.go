// Package providers constructs clients for the optional external backends.
// Redis is only ever the rate-limiter state store here, never task state.
package providers

import (
	"time"

	"github.com/go-redis/redis/v8"
)

// NewRedisProvider returns a client tuned for the submit-path rate limiter:
// timeouts are kept short so a slow redis degrades into the limiter's
// fail-open path instead of stalling submissions.
func NewRedisProvider(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
}
