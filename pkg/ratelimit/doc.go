// Package ratelimit keeps xhsclient inside the request budgets of the two
// remote services it talks to.
//
// The platform API is throttled with a continuously refilling TokenBucket
// (requests per minute). The token service counts requests per hour, so it
// gets a SlidingWindow:
//
//	platform := ratelimit.PerMinute(cfg.RateLimit.PlatformRequestsPerMinute)
//	tokens := ratelimit.PerHour(cfg.RateLimit.TokenRequestsPerHour)
//
//	if err := platform.Wait(ctx); err != nil {
//	    return err // ctx cancelled while throttled
//	}
//
// Both limiters are safe for concurrent use and are shared by every
// goroutine of a batch run.
package ratelimit
