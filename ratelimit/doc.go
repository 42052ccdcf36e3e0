// Package ratelimit throttles outbound Canva Connect calls with a token bucket.
//
// An APIRateLimiter is sized in requests per minute. The bucket holds that
// many slots and refills continuously, so a quiet client may burst up to the
// full quota and is then paced at requestsPerMinute/60 requests per second.
// One limiter is meant to be shared by every component that talks to Canva:
//
//	limiter := ratelimit.Permissive()
//	oauth, _ := auth.NewClient(cfg, auth.WithRateLimiter(limiter))
//	api := canva.NewClient(oauth, canva.WithRateLimiter(limiter))
//
// Info carries the quota the server reports back in X-RateLimit-* headers.
// It is advisory: the limiter does not resize itself from it.
package ratelimit
