package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	httpapi "github.com/GriffinCanCode/webdesk/internal/api/http"
	"github.com/GriffinCanCode/webdesk/internal/api/middleware"
	"github.com/GriffinCanCode/webdesk/internal/domain/desktop"
	"github.com/GriffinCanCode/webdesk/internal/domain/session"
	"github.com/GriffinCanCode/webdesk/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/webdesk/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/webdesk/internal/shared/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

// Message types
const (
	TypeState   = "state"
	TypeCommand = "command"
	TypeChat    = "chat"
	TypeWeather = "weather"
	TypePing    = "ping"
	TypePong    = "pong"
	TypeError   = "error"
)

// Inbound is a client frame
type Inbound struct {
	Type     string           `json:"type"`
	ID       string           `json:"id,omitempty"`
	Command  *desktop.Command `json:"command,omitempty"`
	Messages json.RawMessage  `json:"messages,omitempty"`
	City     string           `json:"city,omitempty"`
}

// Outbound is a server frame. Chat and weather replies carry the HTTP
// status and body the equivalent REST call would have returned.
type Outbound struct {
	Type      string         `json:"type"`
	ID        string         `json:"id,omitempty"`
	State     *desktop.State `json:"state,omitempty"`
	Status    int            `json:"status,omitempty"`
	Body      any            `json:"body,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

// Handler manages desktop stream connections
type Handler struct {
	sessions *session.Manager
	chat     httpapi.ChatCompleter
	weather  httpapi.WeatherFetcher
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
	logger   *zap.Logger
	dev      bool
	upgrader websocket.Upgrader
}

// Options carries the optional handler dependencies
type Options struct {
	Origins     []string // allowed browser origins, "*" for any
	Metrics     *monitoring.Metrics
	Tracer      *tracing.Tracer // spans for chat and weather frames
	Logger      *zap.Logger
	Development bool
}

// NewHandler creates a new WebSocket handler
func NewHandler(sessions *session.Manager, chat httpapi.ChatCompleter, weather httpapi.WeatherFetcher, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := opts.Origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &Handler{
		sessions: sessions,
		chat:     chat,
		weather:  weather,
		metrics:  opts.Metrics,
		tracer:   opts.Tracer,
		logger:   logger,
		dev:      opts.Development,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(origins, r.Header.Get("Origin"))
			},
		},
	}
}

// HandleConnection upgrades GET /api/desktop/sessions/:sid/stream
func (h *Handler) HandleConnection(c *gin.Context) {
	sid := c.Param("sid")
	d, ok := h.sessions.Get(sid)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	wsConn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already answered the request
		h.logger.Warn("WebSocket upgrade failed", zap.String("session_id", sid), zap.Error(err))
		return
	}

	ctx := c.Request.Context()
	conn := newConn(h, wsConn, d, tracing.LoggerFor(ctx, h.logger))
	conn.serve(ctx)
}

// conn is one stream. All socket writes happen on the writer goroutine.
type conn struct {
	h      *Handler
	id     string
	ws     *websocket.Conn
	desk   *session.Desktop
	logger *zap.Logger

	send   chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	jobs   sync.WaitGroup
}

func newConn(h *Handler, ws *websocket.Conn, d *session.Desktop, logger *zap.Logger) *conn {
	id := uuid.NewString()
	return &conn{
		h:    h,
		id:   id,
		ws:   ws,
		desk: d,
		logger: logger.With(
			zap.String("conn_id", id),
			zap.String("session_id", d.ID.String()),
		),
		send: make(chan []byte, sendBuffer),
	}
}

func (c *conn) serve(parent context.Context) {
	c.ctx, c.cancel = context.WithCancel(parent)
	defer c.cancel()

	if c.h.metrics != nil {
		c.h.metrics.IncWSConnections()
		defer c.h.metrics.DecWSConnections()
	}
	c.logger.Info("desktop stream opened")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop()
	}()

	unwatch := c.desk.Store.Watch(func(st desktop.State) {
		c.enqueue(Outbound{Type: TypeState, State: &st})
	})

	c.readLoop()

	unwatch()
	c.cancel()
	c.jobs.Wait()
	<-writerDone
	c.logger.Info("desktop stream closed")
}

func (c *conn) readLoop() {
	c.ws.SetReadLimit(utils.MaxFrameSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.touch()
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		var msg Inbound
		if err := sonic.Unmarshal(data, &msg); err != nil {
			c.sendError("", "invalid frame")
			continue
		}
		if c.h.metrics != nil {
			c.h.metrics.RecordWSMessage("in", inboundLabel(msg.Type))
		}
		if !c.touch() {
			c.sendError(msg.ID, "session not found")
			return
		}

		switch msg.Type {
		case TypeCommand:
			c.handleCommand(msg)
		case TypeChat:
			c.handleChat(msg)
		case TypeWeather:
			c.handleWeather(msg)
		case TypePing:
			c.enqueue(Outbound{Type: TypePong, ID: msg.ID})
		default:
			c.sendError(msg.ID, "unknown message type")
		}
	}
}

func (c *conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("WebSocket write failed", zap.Error(err))
				c.cancel()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.cancel()
				return
			}
		}
	}
}

// inboundLabel bounds the metric label set to the known types
func inboundLabel(t string) string {
	switch t {
	case TypeCommand, TypeChat, TypeWeather, TypePing:
		return t
	}
	return "unknown"
}

// touch keeps the session alive while the stream is in use
func (c *conn) touch() bool {
	_, ok := c.h.sessions.Get(c.desk.ID.String())
	return ok
}

func (c *conn) handleCommand(msg Inbound) {
	if msg.Command == nil {
		c.sendError(msg.ID, "command is required")
		return
	}
	if msg.Command.AppID != "" {
		if err := utils.ValidateID(msg.Command.AppID, "app_id", true); err != nil {
			c.sendError(msg.ID, err.Error())
			return
		}
	}
	// Successful commands are answered by the state frame they produce
	if err := c.desk.Store.Apply(*msg.Command); err != nil {
		c.sendError(msg.ID, err.Error())
	}
}

func (c *conn) handleChat(msg Inbound) {
	if !c.h.chat.Configured() {
		c.reply(msg, http.StatusInternalServerError, gin.H{"error": httpapi.MsgChatNotConfigured})
		return
	}

	messages, problem := httpapi.DecodeMessages(msg.Messages)
	if problem != "" {
		c.reply(msg, http.StatusBadRequest, gin.H{"error": problem})
		return
	}

	c.run("ws.chat", msg, func(ctx context.Context, span *tracing.Span) {
		span.SetAttributes(zap.Int("messages", len(messages)))
		reply, err := c.h.chat.Complete(ctx, messages)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			status, body := httpapi.ChatErrorResponse(err, c.h.dev)
			span.SetStatus(status)
			span.RecordError(err)
			c.logger.Error("chat completion failed",
				zap.String("request_id", msg.ID),
				zap.Int("status", status),
				zap.Error(err),
			)
			c.reply(msg, status, body)
			return
		}
		span.SetStatus(http.StatusOK)
		c.reply(msg, http.StatusOK, gin.H{"assistantMessage": reply})
	})
}

func (c *conn) handleWeather(msg Inbound) {
	c.run("ws.weather", msg, func(ctx context.Context, span *tracing.Span) {
		span.SetAttributes(zap.String("city", msg.City))
		data, err := c.h.weather.Current(ctx, msg.City)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			status, body := httpapi.WeatherErrorResponse(err)
			span.SetStatus(status)
			span.RecordError(err)
			c.logger.Error("weather lookup failed",
				zap.String("request_id", msg.ID),
				zap.Int("status", status),
				zap.String("city", msg.City),
				zap.Error(err),
			)
			c.reply(msg, status, body)
			return
		}
		span.SetStatus(http.StatusOK)
		c.reply(msg, http.StatusOK, data)
	})
}

// run executes fn asynchronously inside a span; its context ends with the
// connection
func (c *conn) run(name string, msg Inbound, fn func(ctx context.Context, span *tracing.Span)) {
	c.jobs.Add(1)
	go func() {
		defer c.jobs.Done()

		ctx, span := c.startSpan(name)
		defer span.End()
		span.SetAttributes(zap.String("conn_id", c.id), zap.String("request_id", msg.ID))
		fn(ctx, span)
	}()
}

func (c *conn) startSpan(name string) (context.Context, *tracing.Span) {
	if c.h.tracer == nil {
		return c.ctx, nil
	}
	return c.h.tracer.Start(c.ctx, name)
}

func (c *conn) reply(msg Inbound, status int, body any) {
	c.enqueue(Outbound{Type: msg.Type, ID: msg.ID, Status: status, Body: body})
}

func (c *conn) sendError(id, message string) {
	c.enqueue(Outbound{Type: TypeError, ID: id, Error: message})
}

// enqueue hands a frame to the writer without blocking. A client that
// falls sendBuffer frames behind is disconnected.
func (c *conn) enqueue(out Outbound) {
	out.Timestamp = time.Now().Unix()
	data, err := sonic.Marshal(out)
	if err != nil {
		c.logger.Error("failed to encode frame", zap.String("type", out.Type), zap.Error(err))
		return
	}

	select {
	case <-c.ctx.Done():
		return
	default:
	}

	select {
	case c.send <- data:
		if c.h.metrics != nil {
			c.h.metrics.RecordWSMessage("out", out.Type)
		}
	default:
		c.logger.Warn("WebSocket client too slow, closing")
		c.cancel()
	}
}
