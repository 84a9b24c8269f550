package ratelimit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newTestLimiter(t *testing.T) *TokenBucketLimiter {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewTokenBucketLimiter(rdb)
}

func TestAllowDisabledBucket(t *testing.T) {
	lim := newTestLimiter(t)

	dec, err := lim.Allow(context.Background(), "submit", "client-1", Bucket{})
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !dec.Allowed {
		t.Fatalf("expected allowed when bucket disabled")
	}
}

func TestAllowNilLimiter(t *testing.T) {
	var lim *TokenBucketLimiter
	dec, err := lim.Allow(context.Background(), "submit", "client-1", Bucket{RequestsPerMinute: 1, BurstSize: 1})
	if err != nil || !dec.Allowed {
		t.Fatalf("nil limiter must allow, got %v / %v", dec, err)
	}
}

func TestBlocksAfterBurst(t *testing.T) {
	lim := newTestLimiter(t)
	bucket := Bucket{RequestsPerMinute: 60, BurstSize: 1} // 1 token/sec, burst=1

	dec1, err := lim.Allow(context.Background(), "submit", "client-1", bucket)
	if err != nil {
		t.Fatalf("allow 1: %v", err)
	}
	if !dec1.Allowed {
		t.Fatalf("expected first request to be allowed")
	}

	dec2, err := lim.Allow(context.Background(), "submit", "client-1", bucket)
	if err != nil {
		t.Fatalf("allow 2: %v", err)
	}
	if dec2.Allowed {
		t.Fatalf("expected second request to be rate limited")
	}
	if dec2.RetryAfter <= 0 {
		t.Fatalf("expected retryAfter to be set")
	}
}

func TestIndependentSubjects(t *testing.T) {
	lim := newTestLimiter(t)
	bucket := Bucket{RequestsPerMinute: 60, BurstSize: 1}

	if dec, _ := lim.Allow(context.Background(), "submit", "client-1", bucket); !dec.Allowed {
		t.Fatalf("expected client-1 first request allowed")
	}
	if dec, _ := lim.Allow(context.Background(), "submit", "client-2", bucket); !dec.Allowed {
		t.Fatalf("expected client-2 to have an independent bucket")
	}
}
