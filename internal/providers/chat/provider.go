package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/webdesk/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/webdesk/internal/providers/upstream"
)

const (
	MaxTokens   = 2048
	Temperature = 0.7

	// DefaultRetryAfter is reported on upstream 429s that carry no Retry-After header
	DefaultRetryAfter = 60
)

var (
	ErrNotConfigured   = errors.New("chat API key not configured")
	ErrInvalidResponse = errors.New("invalid chat completion response")
)

// Message is the assistant turn returned by Complete
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UpstreamError is a non-2xx answer from the completion API
type UpstreamError struct {
	Status     int
	Message    string
	RetryAfter int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("chat upstream returned %d: %s", e.Status, e.Message)
}

// Config configures the provider
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Provider proxies chat completions
type Provider struct {
	client *upstream.Client
	apiKey string
	model  string
}

type completionRequest struct {
	Model       string            `json:"model"`
	Messages    []json.RawMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	Temperature float64           `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message *Message `json:"message"`
	} `json:"choices"`
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// New creates a chat provider
func New(cfg Config) *Provider {
	return &Provider{
		client: upstream.NewClient(upstream.Config{
			Name:          "chat",
			BaseURL:       strings.TrimRight(cfg.BaseURL, "/"),
			Timeout:       cfg.Timeout,
			OnStateChange: upstream.LogStateChange(cfg.Logger),
		}),
		apiKey: cfg.APIKey,
		model:  cfg.Model,
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

// Configured reports whether an API key is set
func (p *Provider) Configured() bool {
	return p.apiKey != ""
}

// Complete sends the conversation upstream and returns the assistant reply.
// Messages are forwarded exactly as the browser sent them, so any content
// shape the completion API accepts passes through.
func (p *Provider) Complete(ctx context.Context, messages []json.RawMessage) (Message, error) {
	if !p.Configured() {
		return Message{}, ErrNotConfigured
	}

	body := completionRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   MaxTokens,
		Temperature: Temperature,
	}

	resp, err := p.client.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.
			SetAuthToken(p.apiKey).
			SetHeader("Content-Type", "application/json").
			SetBody(body).
			Post("/chat/completions")
	})
	if err != nil {
		return Message{}, err
	}

	if !resp.IsSuccess() {
		return Message{}, upstreamError(resp)
	}

	var parsed completionResponse
	if err := sonic.Unmarshal(resp.Body(), &parsed); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message == nil {
		return Message{}, ErrInvalidResponse
	}
	return *parsed.Choices[0].Message, nil
}

func upstreamError(resp *resty.Response) *UpstreamError {
	e := &UpstreamError{Status: resp.StatusCode()}

	raw := resp.Body()
	var parsed errorBody
	if err := sonic.Unmarshal(raw, &parsed); err == nil {
		e.Message = parsed.Error.Message
	} else {
		e.Message = strings.TrimSpace(string(raw))
	}

	if e.Status == http.StatusTooManyRequests {
		e.RetryAfter = DefaultRetryAfter
		if secs, err := strconv.Atoi(resp.Header().Get("Retry-After")); err == nil && secs >= 0 {
			e.RetryAfter = secs
		}
	}
	return e
}
