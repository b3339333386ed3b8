package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name in JSON and logs
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Settings configures the circuit breaker behavior
type Settings struct {
	// MaxRequests is the number of trial calls admitted while half-open, and
	// the consecutive successes needed to close again
	MaxRequests uint32
	// Interval resets the counts while closed; zero keeps them forever
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing
	Timeout time.Duration
	// ReadyToTrip decides, after a failure while closed, whether to open
	ReadyToTrip func(counts Counts) bool
	// OnStateChange is called with the breaker locked; it must not call back
	OnStateChange func(name string, from State, to State)
}

// Counts holds the statistics for the current generation
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

func (c *Counts) success() {
	c.TotalSuccesses++
	c.ConsecutiveSuccesses++
	c.ConsecutiveFailures = 0
}

func (c *Counts) failure() {
	c.TotalFailures++
	c.ConsecutiveFailures++
	c.ConsecutiveSuccesses = 0
}

// Breaker guards calls to an unreliable upstream. Every state change starts
// a new generation; outcomes reported for an older generation are ignored.
type Breaker struct {
	name     string
	settings Settings
	now      func() time.Time

	mu         sync.Mutex
	state      State     // Protected by mu
	generation uint64    // Protected by mu
	counts     Counts    // Protected by mu
	expiry     time.Time // Protected by mu; zero means never
}

// New creates a circuit breaker, filling unset settings with defaults
func New(name string, settings Settings) *Breaker {
	if settings.MaxRequests == 0 {
		settings.MaxRequests = 1
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 60 * time.Second
	}
	if settings.ReadyToTrip == nil {
		settings.ReadyToTrip = func(counts Counts) bool {
			return counts.ConsecutiveFailures > 5
		}
	}

	b := &Breaker{
		name:     name,
		settings: settings,
		now:      time.Now,
	}
	b.resetGeneration(b.now())
	return b
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.advance(b.now())
}

// Counts returns a copy of the current counts
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance(b.now())
	return b.counts
}

// Allow admits one call, or fails with ErrCircuitOpen or ErrTooManyRequests.
// The caller reports the call's outcome through done exactly once.
func (b *Breaker) Allow() (done func(success bool), err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch state := b.advance(b.now()); {
	case state == StateOpen:
		return nil, ErrCircuitOpen
	case state == StateHalfOpen && b.counts.Requests >= b.settings.MaxRequests:
		return nil, ErrTooManyRequests
	}

	b.counts.Requests++
	generation := b.generation

	var once sync.Once
	return func(success bool) {
		once.Do(func() { b.report(generation, success) })
	}, nil
}

func (b *Breaker) report(generation uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	state := b.advance(now)
	if generation != b.generation {
		return
	}

	if success {
		b.counts.success()
		if state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.settings.MaxRequests {
			b.transition(StateClosed, now)
		}
		return
	}

	b.counts.failure()
	switch state {
	case StateClosed:
		if b.settings.ReadyToTrip(b.counts) {
			b.transition(StateOpen, now)
		}
	case StateHalfOpen:
		b.transition(StateOpen, now)
	}
}

// advance applies time-based transitions and returns the state. Must hold mu.
func (b *Breaker) advance(now time.Time) State {
	if b.expiry.IsZero() || now.Before(b.expiry) {
		return b.state
	}

	switch b.state {
	case StateClosed:
		b.resetGeneration(now)
	case StateOpen:
		b.transition(StateHalfOpen, now)
	}
	return b.state
}

// transition moves to state and starts a new generation. Must hold mu.
func (b *Breaker) transition(state State, now time.Time) {
	if b.state == state {
		return
	}

	prev := b.state
	b.state = state
	b.resetGeneration(now)

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, prev, state)
	}
}

func (b *Breaker) resetGeneration(now time.Time) {
	b.generation++
	b.counts = Counts{}

	switch {
	case b.state == StateOpen:
		b.expiry = now.Add(b.settings.Timeout)
	case b.state == StateClosed && b.settings.Interval > 0:
		b.expiry = now.Add(b.settings.Interval)
	default:
		b.expiry = time.Time{}
	}
}
