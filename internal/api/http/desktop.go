package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/webdesk/internal/domain/desktop"
	"github.com/GriffinCanCode/webdesk/internal/domain/session"
	"github.com/GriffinCanCode/webdesk/internal/shared/utils"
)

// windowActions maps the window route verbs to store operations
var windowActions = map[string]string{
	"open":     desktop.OpOpenWindow,
	"close":    desktop.OpCloseWindow,
	"minimize": desktop.OpMinimizeWindow,
	"restore":  desktop.OpRestoreWindow,
	"maximize": desktop.OpMaximizeWindow,
	"focus":    desktop.OpFocusWindow,
}

type positionRequest struct {
	X *float64 `json:"x" binding:"required"`
	Y *float64 `json:"y" binding:"required"`
}

type sizeRequest struct {
	Width  *float64 `json:"width" binding:"required"`
	Height *float64 `json:"height" binding:"required"`
}

type iconRequest struct {
	IconID string `json:"icon_id" binding:"required"`
}

// CreateSession starts a desktop session
func (h *Handlers) CreateSession(c *gin.Context) {
	d, err := h.sessions.Create()
	if errors.Is(err, session.ErrTooManySessions) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id": d.ID,
		"state":      d.Store.Snapshot(),
	})
}

// GetSession returns the current desktop snapshot
func (h *Handlers) GetSession(c *gin.Context) {
	d, ok := h.desktop(c)
	if !ok {
		return
	}
	respondState(c, d)
}

// EndSession discards a desktop session
func (h *Handlers) EndSession(c *gin.Context) {
	sid := c.Param("sid")
	if !h.sessions.End(sid) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session_id": sid})
}

// WindowAction runs open/close/minimize/restore/maximize/focus on a window
func (h *Handlers) WindowAction(c *gin.Context) {
	op, ok := windowActions[c.Param("action")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown window action"})
		return
	}
	h.apply(c, desktop.Command{Op: op, AppID: c.Param("app")})
}

// UpdatePosition moves a window
func (h *Handlers) UpdatePosition(c *gin.Context) {
	var req positionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "x and y are required numbers"})
		return
	}
	h.apply(c, desktop.Command{
		Op:    desktop.OpUpdatePosition,
		AppID: c.Param("app"),
		X:     req.X,
		Y:     req.Y,
	})
}

// UpdateSize resizes a window
func (h *Handlers) UpdateSize(c *gin.Context) {
	var req sizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "width and height are required numbers"})
		return
	}
	h.apply(c, desktop.Command{
		Op:     desktop.OpUpdateSize,
		AppID:  c.Param("app"),
		Width:  req.Width,
		Height: req.Height,
	})
}

// SetViewport records the client's viewport
func (h *Handlers) SetViewport(c *gin.Context) {
	var req sizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "width and height are required numbers"})
		return
	}
	h.apply(c, desktop.Command{Op: desktop.OpSetViewport, Width: req.Width, Height: req.Height})
}

// SelectIcon highlights a desktop icon
func (h *Handlers) SelectIcon(c *gin.Context) {
	var req iconRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "icon_id is required"})
		return
	}
	if err := utils.ValidateID(req.IconID, "icon_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.apply(c, desktop.Command{Op: desktop.OpSelectIcon, IconID: req.IconID})
}

// Simple returns a handler applying an operation that takes no arguments
func (h *Handlers) Simple(op string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.apply(c, desktop.Command{Op: op})
	}
}

// ApplyCommand applies a generic serialized command
func (h *Handlers) ApplyCommand(c *gin.Context) {
	var cmd desktop.Command
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgInvalidJSON})
		return
	}
	h.apply(c, cmd)
}

func (h *Handlers) apply(c *gin.Context, cmd desktop.Command) {
	if cmd.AppID != "" {
		if err := utils.ValidateID(cmd.AppID, "app_id", true); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	d, ok := h.desktop(c)
	if !ok {
		return
	}

	if err := d.Store.Apply(cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	respondState(c, d)
}

func (h *Handlers) desktop(c *gin.Context) (*session.Desktop, bool) {
	d, ok := h.sessions.Get(c.Param("sid"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return d, true
}

func respondState(c *gin.Context, d *session.Desktop) {
	c.JSON(http.StatusOK, gin.H{
		"session_id": d.ID,
		"state":      d.Store.Snapshot(),
	})
}
