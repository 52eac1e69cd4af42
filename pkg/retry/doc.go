// Package retry wraps provider calls with optional retries.
//
// Retries are off unless the retry section of the config enables them, in
// which case transient errors (network, timeout, rate limit, server) are
// retried with exponential backoff and jitter:
//
//	cfg := retry.FromConfig(appCfg.Retry, log)
//	items, err := retry.DoWithResult(ctx, func(ctx context.Context) ([]apify.Item, error) {
//		return client.fetchOnce(ctx, token, username, limit)
//	}, cfg)
//
// Auth, not-found, parsing and validation errors are never retried.
package retry
