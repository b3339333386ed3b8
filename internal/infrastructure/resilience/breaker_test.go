package resilience

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// call runs one admitted request through b and reports its outcome
func call(b *Breaker, success bool) error {
	done, err := b.Allow()
	if err != nil {
		return err
	}
	done(success)
	return nil
}

func tripAfter(n uint32) func(Counts) bool {
	return func(c Counts) bool { return c.ConsecutiveFailures >= n }
}

// fakeClock drives time-based transitions without sleeping
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(settings Settings) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := New("test", settings)
	b.now = clock.now
	b.mu.Lock()
	b.resetGeneration(clock.now())
	b.mu.Unlock()
	return b, clock
}

func TestBreakerCounts(t *testing.T) {
	breaker, _ := newTestBreaker(Settings{Interval: time.Minute, Timeout: time.Minute})

	require.NoError(t, call(breaker, true))

	counts := breaker.Counts()
	assert.Equal(t, uint32(1), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalSuccesses)
	assert.Equal(t, uint32(1), counts.ConsecutiveSuccesses)

	require.NoError(t, call(breaker, false))

	counts = breaker.Counts()
	assert.Equal(t, uint32(2), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalFailures)
	assert.Equal(t, uint32(1), counts.ConsecutiveFailures)
	assert.Equal(t, uint32(0), counts.ConsecutiveSuccesses)
}

func TestBreakerIntervalResetsCounts(t *testing.T) {
	breaker, clock := newTestBreaker(Settings{Interval: time.Minute, ReadyToTrip: tripAfter(3)})

	_ = call(breaker, false)
	_ = call(breaker, false)
	require.Equal(t, uint32(2), breaker.Counts().ConsecutiveFailures)

	clock.advance(2 * time.Minute)
	assert.Equal(t, Counts{}, breaker.Counts())

	_ = call(breaker, false)
	assert.Equal(t, StateClosed, breaker.State())
}

func TestBreakerOpenState(t *testing.T) {
	breaker, _ := newTestBreaker(Settings{
		Timeout:     time.Minute,
		ReadyToTrip: tripAfter(2),
	})

	for i := 0; i < 2; i++ {
		_ = call(breaker, false)
	}
	assert.Equal(t, StateOpen, breaker.State())

	done, err := breaker.Allow()
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Nil(t, done)
}

func TestBreakerHalfOpenState(t *testing.T) {
	breaker, clock := newTestBreaker(Settings{
		MaxRequests: 2,
		Timeout:     time.Second,
		ReadyToTrip: tripAfter(2),
	})

	for i := 0; i < 2; i++ {
		_ = call(breaker, false)
	}
	assert.Equal(t, StateOpen, breaker.State())

	clock.advance(time.Second)
	assert.Equal(t, StateHalfOpen, breaker.State())

	for i := 0; i < 2; i++ {
		require.NoError(t, call(breaker, true))
	}
	assert.Equal(t, StateClosed, breaker.State())
}

func TestBreakerHalfOpenLimitsTrialCalls(t *testing.T) {
	breaker, clock := newTestBreaker(Settings{Timeout: time.Second, ReadyToTrip: tripAfter(1)})

	_ = call(breaker, false)
	clock.advance(time.Second)

	done, err := breaker.Allow()
	require.NoError(t, err)

	_, err = breaker.Allow()
	assert.ErrorIs(t, err, ErrTooManyRequests)

	done(true)
	assert.Equal(t, StateClosed, breaker.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	breaker, clock := newTestBreaker(Settings{Timeout: time.Second, ReadyToTrip: tripAfter(1)})

	_ = call(breaker, false)
	clock.advance(time.Second)
	require.Equal(t, StateHalfOpen, breaker.State())

	_ = call(breaker, false)
	assert.Equal(t, StateOpen, breaker.State())
}

func TestAllowReportsOnce(t *testing.T) {
	breaker, _ := newTestBreaker(Settings{ReadyToTrip: tripAfter(2)})

	done, err := breaker.Allow()
	require.NoError(t, err)
	done(false)
	done(false)

	assert.Equal(t, uint32(1), breaker.Counts().TotalFailures)
	assert.Equal(t, StateClosed, breaker.State())
}

func TestStaleOutcomeIgnored(t *testing.T) {
	breaker, clock := newTestBreaker(Settings{Timeout: time.Second, ReadyToTrip: tripAfter(1)})

	slow, err := breaker.Allow()
	require.NoError(t, err)

	// Another call trips the breaker while slow is in flight
	_ = call(breaker, false)
	require.Equal(t, StateOpen, breaker.State())

	slow(true)
	assert.Equal(t, StateOpen, breaker.State())

	clock.advance(time.Second)
	assert.Equal(t, StateHalfOpen, breaker.State())
}

func TestBreakerCallbacks(t *testing.T) {
	var transitions []string

	breaker, clock := newTestBreaker(Settings{
		MaxRequests: 1,
		Timeout:     time.Second,
		ReadyToTrip: tripAfter(2),
		OnStateChange: func(name string, from State, to State) {
			assert.Equal(t, "test", name)
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	for i := 0; i < 2; i++ {
		_ = call(breaker, false)
	}
	clock.advance(time.Second)
	_ = call(breaker, true)

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestStateJSON(t *testing.T) {
	data, err := json.Marshal(map[string]State{"chat": StateOpen, "weather": StateHalfOpen})
	require.NoError(t, err)
	assert.JSONEq(t, `{"chat":"open","weather":"half-open"}`, string(data))
}
