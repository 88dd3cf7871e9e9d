// Package retry retries setup steps such as logging in to the archive.
//
// Per-item work in the pipeline is never retried; a failed item is logged
// and counted, and the next run picks it up again if it is still listed.
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//	    return sink.Login(ctx)
//	}, &retry.Config{MaxAttempts: 3, Backoff: retry.DefaultExponentialBackoff()})
package retry
