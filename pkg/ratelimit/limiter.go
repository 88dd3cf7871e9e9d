package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow checks if a request is allowed under the current rate limit
	Allow() bool
	// Wait blocks until the rate limit allows another request or ctx is done
	Wait(ctx context.Context) error
	// Reset restores the full burst
	Reset()
}

// TokenBucket paces requests with a token bucket from golang.org/x/time/rate
type TokenBucket struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	every   time.Duration
	burst   int
}

// NewTokenBucket allows burst requests at once and refills one token every interval
func NewTokenBucket(every time.Duration, burst int) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	return &TokenBucket{
		limiter: rate.NewLimiter(rate.Every(every), burst),
		every:   every,
		burst:   burst,
	}
}

// PerMinute returns a limiter for n requests per minute. n <= 0 disables limiting.
func PerMinute(n int) Limiter {
	if n <= 0 {
		return Unlimited{}
	}
	return NewTokenBucket(time.Minute/time.Duration(n), n)
}

func (tb *TokenBucket) current() *rate.Limiter {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.limiter
}

// Allow consumes a token if one is available
func (tb *TokenBucket) Allow() bool {
	return tb.current().Allow()
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.current().Wait(ctx)
}

// Reset refills the bucket to its burst size
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.limiter = rate.NewLimiter(rate.Every(tb.every), tb.burst)
}

// Unlimited never blocks
type Unlimited struct{}

func (Unlimited) Allow() bool { return true }

func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }

func (Unlimited) Reset() {}
