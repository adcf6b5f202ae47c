// Package resilience guards remote source fetches.
//
// A RateLimiter spaces out URL fetches across a whole engine and a BreakerSet
// keeps one CircuitBreaker per host so a dead origin fails fast instead of
// stalling every queued item that points at it. Neither retries: a rejected
// call is reported to the caller, which skips the item.
//
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 5, Burst: 5})
//	breakers := resilience.NewBreakerSet(resilience.DefaultCircuitBreakerConfig())
//	err := breakers.Get(u.Host).Execute(func() error {
//	    if err := rl.Wait(ctx); err != nil {
//	        return err
//	    }
//	    return fetch(ctx, u)
//	})
package resilience
