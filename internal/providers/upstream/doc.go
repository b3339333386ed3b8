// Package upstream is the shared HTTP client for external APIs.
//
// Built on go-resty/resty over go-retryablehttp's pooled transport, with:
//   - a per-client timeout (30s by default)
//   - an optional x/time/rate limiter
//   - a circuit breaker that opens on transport errors and 5xx responses
//
// Calls are never retried. Trace headers from the caller's context are
// forwarded, and breaker transitions can be logged with LogStateChange.
//
// Example Usage:
//
//	client := upstream.NewClient(upstream.Config{Name: "weather", BaseURL: base})
//	resp, err := client.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
//		return r.SetQueryParam("q", city).Get("/current.json")
//	})
package upstream
