// Package session manages live desktop sessions.
//
// Each browser tab gets its own desktop session holding one window-manager
// store. Sessions are in-memory only: ending a session, idling past the TTL
// or restarting the process discards the window state, the same way a page
// reload resets the desktop.
//
// Lifecycle:
//  1. Create allocates a desk_<ulid> id and an empty store
//  2. Get resolves the id and refreshes its last-access time
//  3. End or the Run reaper discards it
//
// Example Usage:
//
//	manager := session.NewManager(registry, session.DefaultConfig(), logger)
//	go manager.Run(ctx)
//	d, err := manager.Create()
//	d.Store.OpenWindow("music")
package session
