package http

import (
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/webdesk/internal/domain/desktop"
)

// RegisterRoutes mounts the HTTP API on router. The desktop stream is
// mounted separately by the server.
func RegisterRoutes(router gin.IRouter, h *Handlers) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)

	api := router.Group("/api")
	{
		api.POST("/chat", h.Chat)
		api.POST("/chatgpt", h.Chat)
		api.GET("/weather", h.Weather)
		api.GET("/apps", h.ListApps)
	}

	sessions := api.Group("/desktop/sessions")
	{
		sessions.POST("", h.CreateSession)
		sessions.GET("/:sid", h.GetSession)
		sessions.DELETE("/:sid", h.EndSession)

		sessions.POST("/:sid/windows/:app/:action", h.WindowAction)
		sessions.PUT("/:sid/windows/:app/position", h.UpdatePosition)
		sessions.PUT("/:sid/windows/:app/size", h.UpdateSize)
		sessions.DELETE("/:sid/windows", h.Simple(desktop.OpCloseAll))
		sessions.POST("/:sid/minimize-all", h.Simple(desktop.OpMinimizeAll))

		sessions.POST("/:sid/start-menu/toggle", h.Simple(desktop.OpToggleStartMenu))
		sessions.POST("/:sid/start-menu/open", h.Simple(desktop.OpOpenStartMenu))
		sessions.POST("/:sid/start-menu/close", h.Simple(desktop.OpCloseStartMenu))

		sessions.PUT("/:sid/selected-icon", h.SelectIcon)
		sessions.DELETE("/:sid/selected-icon", h.Simple(desktop.OpDeselectIcon))

		sessions.POST("/:sid/shutdown", h.Simple(desktop.OpTriggerShutdown))
		sessions.DELETE("/:sid/shutdown", h.Simple(desktop.OpDeactivateShutdown))

		sessions.PUT("/:sid/viewport", h.SetViewport)
		sessions.POST("/:sid/commands", h.ApplyCommand)
	}
}
