// Package main is the entry point for the webdesk backend server.
//
// The server keeps one window-manager store per browser session and proxies
// the chat and weather APIs the desktop apps call, so provider keys never
// reach the browser.
//
// Architecture:
//
//	Browser desktop → webdesk → Chat completion API
//	                          → Weather API
//
// The server provides:
//   - REST API for desktop sessions and window operations
//   - WebSocket stream of desktop state
//   - Chat and weather proxies
//   - Prometheus metrics, tracing and rate limiting
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	OPENAI_API_KEY=... WEATHER_API_KEY=... ./server --port 8000
//
//	# Development mode (colored logs, debug level)
//	./server --dev --apps ./apps.yaml
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
