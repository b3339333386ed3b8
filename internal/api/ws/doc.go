// Package ws streams a desktop session over a WebSocket.
//
// A client connects to /api/desktop/sessions/:sid/stream and immediately
// receives the session's state, then one state frame per change. The same
// socket carries store commands and the chat and weather proxies, so a
// single connection can drive the whole desktop.
//
// Message Types (Client → Server):
//   - command: {type, id, command: {op, app_id, ...}}
//   - chat: {type, id, messages: [{role, content}]}
//   - weather: {type, id, city}
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - state: Full desktop snapshot
//   - chat / weather: {id, status, body} mirroring the REST response
//   - pong: Ping reply
//   - error: Rejected frame or command
//
// Chat and weather calls run in the background under the connection's
// context; closing the socket cancels them and drops their results.
//
// Example Usage:
//
//	handler := ws.NewHandler(sessions, chatProvider, weatherProvider, ws.Options{})
//	router.GET("/api/desktop/sessions/:sid/stream", handler.HandleConnection)
package ws
