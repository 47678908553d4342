// Package resilience groups the fault-tolerance helpers used by addon deliveries.
//
// Subpackages:
//   - circuitbreaker: one breaker per addon destination
//   - retry: exponential backoff with jitter and a per-retry hook
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.DeliveryConfig("slack", "17"))
//	result, err := cb.Execute(func() (interface{}, error) {
//	    return postToSlack()
//	})
//
//	err := retry.WithBackoff(ctx, retry.DeliveryConfig(1), func() error {
//	    return performOperation()
//	})
package resilience
