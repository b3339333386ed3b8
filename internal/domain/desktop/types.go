package desktop

import "github.com/GriffinCanCode/webdesk/internal/domain/apps"

// BaseZIndex is the counter value of a fresh store; the first window brought
// to front gets BaseZIndex+1.
const BaseZIndex int64 = 10

var (
	DefaultPosition = Position{X: 120, Y: 120}
	DefaultSize     = Size{Width: 700, Height: 500}
)

// Position is the top-left corner of a window in CSS pixels
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a window's outer dimensions in CSS pixels
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Viewport is the browser area the desktop renders into. The zero value
// means the client has not reported one yet.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Known reports whether the viewport has usable dimensions
func (v Viewport) Known() bool {
	return v.Width > 0 && v.Height > 0
}

// Window is one open application instance. ID equals the app id, so there
// is at most one window per app.
type Window struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Icon      string   `json:"icon"`
	Component string   `json:"component"`
	Minimized bool     `json:"minimized"`
	Maximized bool     `json:"maximized"`
	Z         int64    `json:"z"`
	Position  Position `json:"position"`
	Size      Size     `json:"size"`
}

// State is an immutable snapshot of a desktop. FocusedWindow and
// SelectedIconID are empty when nothing is focused or selected.
type State struct {
	Windows              []Window `json:"windows"`
	FocusedWindow        string   `json:"focused_window"`
	NextZIndex           int64    `json:"next_z_index"`
	StartMenuOpen        bool     `json:"start_menu_open"`
	SelectedIconID       string   `json:"selected_icon_id"`
	ShutdownScreenActive bool     `json:"shutdown_screen_active"`
	Viewport             Viewport `json:"viewport"`
}

// Registry resolves app ids to descriptors
type Registry interface {
	Lookup(id string) (apps.Descriptor, bool)
}

// Metrics receives one call per applied store operation
type Metrics interface {
	RecordWindowOp(op string)
}

func (s State) clone() State {
	out := s
	out.Windows = make([]Window, len(s.Windows))
	copy(out.Windows, s.Windows)
	return out
}

func (s *State) indexOf(id string) int {
	for i := range s.Windows {
		if s.Windows[i].ID == id {
			return i
		}
	}
	return -1
}

// bringToFront advances the z counter and returns the new value
func (s *State) bringToFront() int64 {
	s.NextZIndex++
	return s.NextZIndex
}

// initialGeometry returns the geometry of a newly created window, fitted
// into the viewport when one is known.
func (s *State) initialGeometry() (Position, Size) {
	pos, size := DefaultPosition, DefaultSize
	if !s.Viewport.Known() {
		return pos, size
	}

	size.Width = min(size.Width, s.Viewport.Width)
	size.Height = min(size.Height, s.Viewport.Height)
	pos.X = max(0, min(pos.X, s.Viewport.Width-size.Width))
	pos.Y = max(0, min(pos.Y, s.Viewport.Height-size.Height))
	return pos, size
}
