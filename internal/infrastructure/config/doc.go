// Package config provides 12-factor configuration management for the webdesk backend.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - CORS: Allowed browser origins
//   - Chat: Chat completion upstream (key, base URL, model, timeout)
//   - Weather: Weather upstream (key, base URL, default city, timeout)
//   - Desktop: App registry override and session limits
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED, CORS_ORIGINS
//   - OPENAI_API_KEY, CHAT_BASE_URL, CHAT_MODEL, CHAT_TIMEOUT
//   - WEATHER_API_KEY, WEATHER_BASE_URL, WEATHER_DEFAULT_CITY, WEATHER_TIMEOUT
//   - APPS_FILE, DESKTOP_SESSION_TTL, DESKTOP_REAP_INTERVAL, DESKTOP_MAX_SESSIONS
package config
