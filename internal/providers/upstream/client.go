package upstream

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/webdesk/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/webdesk/internal/infrastructure/tracing"
)

// ErrUnavailable is returned while the circuit breaker rejects calls
var ErrUnavailable = errors.New("upstream unavailable")

// Recorder receives one observation per upstream call
type Recorder interface {
	RecordUpstreamCall(provider, status string, duration time.Duration)
}

// Config configures an upstream client
type Config struct {
	Name      string
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 for unlimited
	UserAgent string

	OnStateChange func(name string, from, to resilience.State)
}

// LogStateChange returns a breaker callback that logs transitions. A nil
// logger disables logging.
func LogStateChange(logger *zap.Logger) func(name string, from, to resilience.State) {
	if logger == nil {
		return nil
	}
	return func(name string, from, to resilience.State) {
		level := zap.WarnLevel
		if to == resilience.StateClosed {
			level = zap.InfoLevel
		}
		logger.Check(level, "upstream circuit breaker state changed").Write(
			zap.String("upstream", name),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
	}
}

// Client wraps resty with rate limiting and a circuit breaker. Requests are
// never retried.
type Client struct {
	name     string
	resty    *resty.Client
	limiter  *rate.Limiter
	breaker  *resilience.Breaker
	recorder Recorder
}

// NewClient creates an upstream client
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "webdesk/1.0"
	}

	// Pooled transport only; retryablehttp's retry loop is not used
	pooled := retryablehttp.NewClient()
	pooled.Logger = nil

	restyClient := resty.New()
	restyClient.
		SetTransport(pooled.HTTPClient.Transport).
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", cfg.UserAgent).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	breaker := resilience.New(cfg.Name, resilience.Settings{
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5 ||
				(counts.Requests >= 20 && float64(counts.TotalFailures)/float64(counts.Requests) > 0.7)
		},
		OnStateChange: cfg.OnStateChange,
	})

	return &Client{
		name:    cfg.Name,
		resty:   restyClient,
		limiter: limiter,
		breaker: breaker,
	}
}

// WithRecorder adds call metrics
func (c *Client) WithRecorder(r Recorder) *Client {
	c.recorder = r
	return c
}

// BreakerState returns the current circuit breaker state
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// Do waits for the rate limiter, then runs call with a request bound to ctx.
// Non-2xx responses are returned without error; 5xx responses and transport
// errors count against the breaker.
func (c *Client) Do(ctx context.Context, call func(*resty.Request) (*resty.Response, error)) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s rate limit: %w", c.name, err)
	}

	start := time.Now()
	done, err := c.breaker.Allow()
	if err != nil {
		c.record("open", start)
		return nil, fmt.Errorf("%s: %w: %w", c.name, ErrUnavailable, err)
	}

	req := c.resty.R().SetContext(ctx)
	tracing.Inject(ctx, req.Header)

	resp, err := call(req)
	if err != nil {
		// The caller going away says nothing about upstream health
		done(errors.Is(err, context.Canceled))
		c.record("error", start)
		return nil, fmt.Errorf("%s request: %w", c.name, err)
	}

	done(resp.StatusCode() < 500)
	c.record(strconv.Itoa(resp.StatusCode()), start)
	return resp, nil
}

func (c *Client) record(status string, start time.Time) {
	if c.recorder != nil {
		c.recorder.RecordUpstreamCall(c.name, status, time.Since(start))
	}
}
