package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/webdesk/internal/domain/apps"
	"github.com/GriffinCanCode/webdesk/internal/domain/session"
	"github.com/GriffinCanCode/webdesk/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/webdesk/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/webdesk/internal/providers/chat"
)

const (
	serviceName = "webdesk"
	version     = "0.1.0"
)

// ChatCompleter answers a chat conversation
type ChatCompleter interface {
	Configured() bool
	Complete(ctx context.Context, messages []json.RawMessage) (chat.Message, error)
}

// WeatherFetcher returns current conditions for a city
type WeatherFetcher interface {
	Current(ctx context.Context, city string) (json.RawMessage, error)
}

// UpstreamStatus reports the circuit breaker state of an upstream provider
type UpstreamStatus interface {
	BreakerState() resilience.State
}

// Handlers contains all HTTP handlers
type Handlers struct {
	registry  *apps.Registry
	sessions  *session.Manager
	chat      ChatCompleter
	weather   WeatherFetcher
	metrics   *monitoring.Metrics
	upstreams map[string]UpstreamStatus
	logger    *zap.Logger
	dev       bool
}

// Options carries the optional handler dependencies
type Options struct {
	Metrics     *monitoring.Metrics
	Upstreams   map[string]UpstreamStatus // reported by /health
	Logger      *zap.Logger
	Development bool // include error details in 500 responses
}

// NewHandlers creates a new handler set
func NewHandlers(
	registry *apps.Registry,
	sessions *session.Manager,
	chat ChatCompleter,
	weather WeatherFetcher,
	opts Options,
) *Handlers {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		registry:  registry,
		sessions:  sessions,
		chat:      chat,
		weather:   weather,
		metrics:   opts.Metrics,
		upstreams: opts.Upstreams,
		logger:    logger,
		dev:       opts.Development,
	}
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": serviceName,
		"version": version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	resp := gin.H{
		"status":   "healthy",
		"apps":     h.registry.Len(),
		"sessions": h.sessions.Count(),
	}
	if h.metrics != nil {
		resp["metrics"] = h.metrics.Snapshot()
	}
	if len(h.upstreams) > 0 {
		states := make(map[string]resilience.State, len(h.upstreams))
		for name, u := range h.upstreams {
			states[name] = u.BreakerState()
		}
		resp["upstreams"] = states
	}
	c.JSON(http.StatusOK, resp)
}

// ListApps lists the launchable applications
func (h *Handlers) ListApps(c *gin.Context) {
	list := h.registry.List()
	c.JSON(http.StatusOK, gin.H{
		"apps":  list,
		"count": len(list),
	})
}
