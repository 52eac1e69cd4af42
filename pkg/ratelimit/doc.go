// Package ratelimit paces outbound calls to the scraping provider.
//
// Each username costs one provider run, so a long list is spread over time
// with a sliding window:
//
//	limiter := ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err // cancelled
//	}
//
// Inbound HTTP rate limiting for the web front end lives in pkg/web and is
// built on golang.org/x/time/rate.
package ratelimit
