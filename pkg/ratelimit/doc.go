// Package ratelimit paces calls to the Tumblr API.
//
// TokenBucket wraps golang.org/x/time/rate behind the small Limiter interface
// that the API client depends on, so tests can substitute Unlimited.
//
//	limiter := ratelimit.PerMinute(cfg.Tumblr.RequestsPerMinute)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
package ratelimit
