package ratelimit

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"
)

// Local keeps one token bucket per key in process memory. The bucket holds
// perMinute tokens and refills at perMinute per Window.
type Local struct {
	limit   rate.Limit
	burst   int
	buckets *xsync.MapOf[string, *rate.Limiter]
}

// NewLocal creates an in-process limiter. perMinute <= 0 disables limiting.
func NewLocal(perMinute int) Limiter {
	if perMinute <= 0 {
		return Nop{}
	}
	return &Local{
		limit:   rate.Every(Window / time.Duration(perMinute)),
		burst:   perMinute,
		buckets: xsync.NewMapOf[string, *rate.Limiter](),
	}
}

// Allow takes one token from the bucket of key.
func (l *Local) Allow(_ context.Context, key string) (bool, error) {
	bucket, _ := l.buckets.LoadOrCompute(key, func() *rate.Limiter {
		return rate.NewLimiter(l.limit, l.burst)
	})
	return bucket.Allow(), nil
}

// Forget drops the bucket of key.
func (l *Local) Forget(key string) {
	l.buckets.Delete(key)
}
