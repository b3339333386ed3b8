/*
Package resilience provides a circuit breaker for calls to external APIs.

# Overview

The chat and weather providers call third-party services. When one of them
keeps failing, the breaker opens and further calls fail fast with
ErrCircuitOpen instead of holding request goroutines on a dead upstream.

# Usage

	breaker := resilience.New("weather", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

Admit each call with Allow and report its outcome through done. Success is
whatever the caller decides, such as a response below 500:

	done, err := breaker.Allow()
	if err != nil {
		return err
	}
	resp, err := send(ctx)
	done(err == nil && resp.StatusCode < 500)

Outcomes reported after the breaker has changed state are discarded.

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                       [failure]
	                                           v
	                                         Open
*/
package resilience
