package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/webdesk/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/webdesk/internal/providers/upstream"
)

const DefaultCity = "New York"

var ErrNotConfigured = errors.New("weather API key missing")

// UpstreamError is a non-2xx answer from the weather API
type UpstreamError struct {
	Status int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("weather upstream returned %d", e.Status)
}

// Config configures the provider
type Config struct {
	APIKey      string
	BaseURL     string
	DefaultCity string
	Timeout     time.Duration
	Logger      *zap.Logger
}

// Provider looks up current conditions for a city
type Provider struct {
	client      *upstream.Client
	apiKey      string
	defaultCity string
	policy      *bluemonday.Policy
}

// New creates a weather provider
func New(cfg Config) *Provider {
	if cfg.DefaultCity == "" {
		cfg.DefaultCity = DefaultCity
	}
	return &Provider{
		client: upstream.NewClient(upstream.Config{
			Name:          "weather",
			BaseURL:       strings.TrimRight(cfg.BaseURL, "/"),
			Timeout:       cfg.Timeout,
			OnStateChange: upstream.LogStateChange(cfg.Logger),
		}),
		apiKey:      cfg.APIKey,
		defaultCity: cfg.DefaultCity,
		policy:      bluemonday.StrictPolicy(),
	}
}

// WithRecorder adds upstream call metrics
func (p *Provider) WithRecorder(r upstream.Recorder) *Provider {
	p.client.WithRecorder(r)
	return p
}

// BreakerState reports whether calls are currently being let through
func (p *Provider) BreakerState() resilience.State {
	return p.client.BreakerState()
}

// City normalizes a requested city name, falling back to the default
func (p *Provider) City(raw string) string {
	city := strings.TrimSpace(html.UnescapeString(p.policy.Sanitize(raw)))
	if city == "" {
		return p.defaultCity
	}
	return city
}

// Current returns the provider's current-conditions JSON for city unchanged
func (p *Provider) Current(ctx context.Context, city string) (json.RawMessage, error) {
	if p.apiKey == "" {
		return nil, ErrNotConfigured
	}

	resp, err := p.client.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.
			SetQueryParams(map[string]string{
				"key": p.apiKey,
				"q":   p.City(city),
				"aqi": "no",
			}).
			SetHeader("Accept", "application/json").
			Get("/current.json")
	})
	if err != nil {
		return nil, err
	}

	if !resp.IsSuccess() {
		return nil, &UpstreamError{Status: resp.StatusCode()}
	}

	body := resp.Body()
	if !json.Valid(body) {
		return nil, fmt.Errorf("weather response is not JSON")
	}
	return json.RawMessage(body), nil
}
