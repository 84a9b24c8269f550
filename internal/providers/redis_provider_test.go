package providers

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestNewRedisProviderConnects(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := NewRedisProvider(mr.Addr(), "")
	t.Cleanup(func() { _ = rdb.Close() })

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestNewRedisProviderBoundsIO(t *testing.T) {
	rdb := NewRedisProvider("localhost:6379", "")
	t.Cleanup(func() { _ = rdb.Close() })

	opts := rdb.Options()
	if opts.ReadTimeout <= 0 || opts.ReadTimeout > time.Second {
		t.Fatalf("read timeout = %v, want short bound", opts.ReadTimeout)
	}
	if opts.WriteTimeout <= 0 || opts.WriteTimeout > time.Second {
		t.Fatalf("write timeout = %v, want short bound", opts.WriteTimeout)
	}
	if opts.DialTimeout <= 0 {
		t.Fatalf("dial timeout = %v, want bound", opts.DialTimeout)
	}
}
