// Package http provides the REST surface of the webdesk backend.
//
// Endpoints:
//   - POST /api/chat (and /api/chatgpt): chat completion proxy
//   - GET  /api/weather?city=: weather proxy
//   - GET  /api/apps: launchable applications
//   - /api/desktop/sessions/...: desktop sessions and window operations
//   - GET / and /health: service status
//
// Every desktop mutation answers with the resulting snapshot. Operations on
// windows that are not open succeed and return the unchanged state.
package http
