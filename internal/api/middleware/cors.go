package middleware

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig defines CORS configuration options.
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig returns a CORS configuration open to every origin.
func DefaultCORSConfig() CORSConfig {
	return CORSConfigFor([]string{"*"})
}

// CORSConfigFor returns the standard configuration for the given origins.
// Credentials are only allowed when origins are listed explicitly.
func CORSConfigFor(origins []string) CORSConfig {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Content-Length",
			"Accept-Encoding",
			"Authorization",
			"Accept",
			"Origin",
			"Cache-Control",
			"X-Requested-With",
			"X-Trace-ID",
		},
		ExposeHeaders:    []string{"X-Trace-ID", "Retry-After"},
		AllowCredentials: !AllowsAnyOrigin(origins),
		MaxAge:           12 * time.Hour,
	}
}

// AllowsAnyOrigin reports whether origins contains the "*" wildcard.
func AllowsAnyOrigin(origins []string) bool {
	return slices.Contains(origins, "*")
}

// OriginAllowed reports whether origin may call the API. Requests without an
// Origin header are not cross-origin and always pass.
func OriginAllowed(origins []string, origin string) bool {
	return origin == "" || AllowsAnyOrigin(origins) || slices.Contains(origins, origin)
}

// CORS creates a CORS middleware with the provided configuration.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     cfg.AllowMethods,
		AllowHeaders:     cfg.AllowHeaders,
		ExposeHeaders:    cfg.ExposeHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})
}
