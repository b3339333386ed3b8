package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httpapi "github.com/GriffinCanCode/webdesk/internal/api/http"
	"github.com/GriffinCanCode/webdesk/internal/api/middleware"
	"github.com/GriffinCanCode/webdesk/internal/api/ws"
	"github.com/GriffinCanCode/webdesk/internal/domain/apps"
	"github.com/GriffinCanCode/webdesk/internal/domain/session"
	"github.com/GriffinCanCode/webdesk/internal/infrastructure/config"
	"github.com/GriffinCanCode/webdesk/internal/infrastructure/logging"
	"github.com/GriffinCanCode/webdesk/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/webdesk/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/webdesk/internal/providers/chat"
	"github.com/GriffinCanCode/webdesk/internal/providers/weather"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	http     *http.Server
	sessions *session.Manager
	tracer   *tracing.Tracer
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics

	ctx    context.Context // cancelled by Close; parent of every request
	stop   context.CancelFunc
	once   sync.Once
	closed chan struct{}
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Format:      cfg.Logging.Format,
		OutputPaths: cfg.Logging.Outputs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return NewServerWithLogger(cfg, logger)
}

// NewServerWithLogger creates a server that logs through logger
func NewServerWithLogger(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	logger.Info("Initializing webdesk server",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.Strings("cors_origins", cfg.CORS.Origins),
	)

	// Metrics first (needed by other components)
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetricsWith(registry)

	tracer := tracing.New("webdesk", logger.Component("tracing"))

	appRegistry, err := apps.Load(cfg.Desktop.AppsFile)
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to load app registry: %w", err)
	}
	logger.Info("App registry loaded",
		zap.Int("apps", appRegistry.Len()),
		zap.String("file", cfg.Desktop.AppsFile),
	)

	sessions := session.NewManager(appRegistry, session.Config{
		TTL:          cfg.Desktop.SessionTTL,
		ReapInterval: cfg.Desktop.ReapInterval,
		MaxSessions:  cfg.Desktop.MaxSessions,
	}, logger.Component("session")).WithMetrics(metrics)

	chatProvider := chat.New(chat.Config{
		APIKey:  cfg.Chat.APIKey,
		BaseURL: cfg.Chat.BaseURL,
		Model:   cfg.Chat.Model,
		Timeout: cfg.Chat.Timeout,
		Logger:  logger.Component("upstream"),
	}).WithRecorder(metrics)
	if !chatProvider.Configured() {
		logger.Warn("OPENAI_API_KEY not set, chat requests will fail")
	}

	weatherProvider := weather.New(weather.Config{
		APIKey:      cfg.Weather.APIKey,
		BaseURL:     cfg.Weather.BaseURL,
		DefaultCity: cfg.Weather.DefaultCity,
		Timeout:     cfg.Weather.Timeout,
		Logger:      logger.Component("upstream"),
	}).WithRecorder(metrics)
	if cfg.Weather.APIKey == "" {
		logger.Warn("WEATHER_API_KEY not set, weather requests will fail")
	}

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.CORSConfigFor(cfg.CORS.Origins)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	upstreams := map[string]httpapi.UpstreamStatus{
		"chat":    chatProvider,
		"weather": weatherProvider,
	}
	handlers := httpapi.NewHandlers(appRegistry, sessions, chatProvider, weatherProvider, httpapi.Options{
		Metrics:     metrics,
		Upstreams:   upstreams,
		Logger:      logger.Component("http"),
		Development: cfg.Logging.Development,
	})
	wsHandler := ws.NewHandler(sessions, chatProvider, weatherProvider, ws.Options{
		Origins:     cfg.CORS.Origins,
		Metrics:     metrics,
		Tracer:      tracer,
		Logger:      logger.Component("ws"),
		Development: cfg.Logging.Development,
	})

	httpapi.RegisterRoutes(router, handlers)
	router.GET("/api/desktop/sessions/:sid/stream", wsHandler.HandleConnection)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	logger.Info("Server initialized successfully")

	ctx, stop := context.WithCancel(context.Background())
	return &Server{
		router:   router,
		sessions: sessions,
		tracer:   tracer,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			// Hijacked websocket streams outlive Shutdown; ending ctx ends them
			BaseContext: func(net.Listener) context.Context { return ctx },
		},
		ctx:    ctx,
		stop:   stop,
		closed: make(chan struct{}),
	}, nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the background loops and serves HTTP until Close is called
func (s *Server) Run() error {
	go s.sessions.Run(s.ctx)
	go s.metrics.Run(s.ctx.Done())

	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		<-s.closed
		return nil
	}
	s.stop()
	return err
}

// Close gracefully shuts down the server. Only the first call has effect.
func (s *Server) Close() error {
	var shutdownErr error
	s.once.Do(func() {
		defer close(s.closed)
		s.logger.Info("Shutting down server...")

		s.stop()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP shutdown failed", zap.Error(err))
			shutdownErr = fmt.Errorf("failed to shut down http server: %w", err)
		}

		s.tracer.Close()

		// Sync logger before exit
		_ = s.logger.Sync()
	})
	return shutdownErr
}
