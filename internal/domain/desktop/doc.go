// Package desktop implements the window manager of one desktop session.
//
// The Store tracks which application windows are open, which one is
// focused, their stacking order and geometry, plus the start menu, icon
// selection and shutdown overlay flags.
//
// Stacking:
//   - A single counter starting at BaseZIndex is advanced every time a
//     window is brought to front (open, restore, maximize, focus), so z
//     values are strictly increasing and never reused.
//
// Focus:
//   - Closing or minimizing the focused window clears focus. No other
//     window gains focus implicitly; the client decides what to focus next.
//
// Mutation surface:
//   - Typed methods (OpenWindow, MinimizeWindow, ...) for Go callers.
//   - Command + Store.Apply for serialized callers (HTTP, websocket).
//
// Example Usage:
//
//	store := desktop.NewStore(apps.Builtin())
//	store.OpenWindow("music")
//	store.MinimizeWindow("music")
//	snap := store.Snapshot()
package desktop
