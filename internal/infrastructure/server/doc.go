// Package server assembles the webdesk HTTP server.
//
// NewServer wires configuration, logging, metrics, tracing, the app
// registry, desktop sessions and the upstream providers into one gin
// router, then Run serves it until Close. Middleware order:
//
//	Recovery → Tracing → Metrics → CORS → RateLimit → handlers
//
// Close stops the session reaper, ends open desktop streams, drains HTTP
// requests and flushes spans and logs.
package server
