package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/webdesk/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/webdesk/internal/providers/chat"
	"github.com/GriffinCanCode/webdesk/internal/providers/upstream"
	"github.com/GriffinCanCode/webdesk/internal/providers/weather"
	"github.com/GriffinCanCode/webdesk/internal/shared/utils"
)

// Client-facing error messages
const (
	MsgInvalidJSON        = "Request body must be valid JSON."
	MsgBodyTooLarge       = "Request body too large."
	MsgInvalidMessages    = `Invalid "messages" array.`
	MsgChatNotConfigured  = "OpenAI API key not configured"
	MsgChatRateLimited    = "Rate limit exceeded. Please wait before making another request."
	MsgChatInvalidReply   = "Invalid response from OpenAI"
	MsgChatUnavailable    = "Chat service temporarily unavailable"
	MsgInternal           = "Internal server error"
	MsgWeatherMissingKey  = "API key missing"
	MsgWeatherFailed      = "Failed to fetch weather data"
	MsgWeatherUnavailable = "Weather service temporarily unavailable"
	MsgWeatherServer      = "Server error"
)

// ParseMessages extracts a non-empty conversation from a chat request body.
// The second return is the client-facing message when parsing fails.
func ParseMessages(body []byte) ([]json.RawMessage, string) {
	if !json.Valid(body) {
		return nil, MsgInvalidJSON
	}

	var envelope struct {
		Messages json.RawMessage `json:"messages"`
	}
	// Non-object bodies simply carry no messages
	_ = json.Unmarshal(body, &envelope)

	return DecodeMessages(envelope.Messages)
}

// DecodeMessages splits a raw "messages" value into its elements. Only the
// array shape is checked; each message goes upstream as sent.
func DecodeMessages(raw json.RawMessage) ([]json.RawMessage, string) {
	var messages []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &messages) != nil || len(messages) == 0 {
		return nil, MsgInvalidMessages
	}
	return messages, ""
}

// ChatErrorResponse maps a chat provider error to the proxy's status and body
func ChatErrorResponse(err error, dev bool) (int, gin.H) {
	var upErr *chat.UpstreamError
	switch {
	case errors.Is(err, chat.ErrNotConfigured):
		return http.StatusInternalServerError, gin.H{"error": MsgChatNotConfigured}
	case errors.As(err, &upErr):
		if upErr.Status == http.StatusTooManyRequests {
			return http.StatusTooManyRequests, gin.H{
				"error":      MsgChatRateLimited,
				"retryAfter": upErr.RetryAfter,
			}
		}
		msg := upErr.Message
		if msg == "" {
			msg = "Unknown error"
		}
		return upErr.Status, gin.H{"error": "OpenAI API Error: " + msg}
	case errors.Is(err, chat.ErrInvalidResponse):
		return http.StatusInternalServerError, gin.H{"error": MsgChatInvalidReply}
	case errors.Is(err, upstream.ErrUnavailable):
		return http.StatusServiceUnavailable, gin.H{"error": MsgChatUnavailable}
	}

	body := gin.H{"error": MsgInternal}
	if dev {
		body["details"] = err.Error()
	}
	return http.StatusInternalServerError, body
}

// WeatherErrorResponse maps a weather provider error to the proxy's status and body
func WeatherErrorResponse(err error) (int, gin.H) {
	var upErr *weather.UpstreamError
	switch {
	case errors.Is(err, weather.ErrNotConfigured):
		return http.StatusInternalServerError, gin.H{"error": MsgWeatherMissingKey}
	case errors.As(err, &upErr):
		return upErr.Status, gin.H{"error": MsgWeatherFailed}
	case errors.Is(err, upstream.ErrUnavailable):
		return http.StatusServiceUnavailable, gin.H{"error": MsgWeatherUnavailable}
	}
	return http.StatusInternalServerError, gin.H{"error": MsgWeatherServer, "details": err.Error()}
}

// Chat proxies a conversation to the completion API. A missing API key is
// reported before the body is looked at.
func (h *Handlers) Chat(c *gin.Context) {
	if !h.chat.Configured() {
		h.logger.Error("chat request rejected", zap.Error(chat.ErrNotConfigured))
		c.JSON(http.StatusInternalServerError, gin.H{"error": MsgChatNotConfigured})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, utils.MaxJSONSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": MsgBodyTooLarge})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgInvalidJSON})
		return
	}

	messages, msg := ParseMessages(body)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	reply, err := h.chat.Complete(c.Request.Context(), messages)
	if err != nil {
		status, resp := ChatErrorResponse(err, h.dev)
		tracing.LoggerFor(c.Request.Context(), h.logger).Error("chat completion failed",
			zap.Int("status", status),
			zap.Int("messages", len(messages)),
			zap.Error(err),
		)
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assistantMessage": reply})
}

// Weather proxies a current-conditions lookup
func (h *Handlers) Weather(c *gin.Context) {
	city := c.Query("city")
	data, err := h.weather.Current(c.Request.Context(), city)
	if err != nil {
		status, resp := WeatherErrorResponse(err)
		tracing.LoggerFor(c.Request.Context(), h.logger).Error("weather lookup failed",
			zap.Int("status", status),
			zap.String("city", city),
			zap.Error(err),
		)
		c.JSON(status, resp)
		return
	}

	c.Data(http.StatusOK, "application/json", data)
}
