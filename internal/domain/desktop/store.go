package desktop

import (
	"sync"
)

// Store owns the window-manager state of one desktop.
//
// Every mutation copies the current State, edits the copy and swaps it in
// while holding mu, so readers only ever see whole snapshots. Operations on
// ids that are not open are silently ignored: a close and a delayed focus
// from the same click can race, and neither may fail the UI.
type Store struct {
	registry Registry
	metrics  Metrics

	mu      sync.Mutex
	state   State                 // Protected by mu
	subs    map[uint64]func(State) // Protected by mu
	nextSub uint64                 // Protected by mu
}

// NewStore creates an empty desktop backed by the given app registry
func NewStore(registry Registry) *Store {
	return &Store{
		registry: registry,
		state: State{
			Windows:    []Window{},
			NextZIndex: BaseZIndex,
		},
		subs: make(map[uint64]func(State)),
	}
}

// WithMetrics adds operation counting to the store
func (s *Store) WithMetrics(metrics Metrics) *Store {
	s.metrics = metrics
	return s
}

// Subscribe registers fn to receive every new snapshot. fn runs while the
// store is locked: it must not block or call back into the store.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribeLocked(fn)
}

// Watch is Subscribe that first calls fn with the current snapshot, so fn
// sees every state exactly once and in order.
func (s *Store) Watch(fn func(State)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state.clone())
	return s.subscribeLocked(fn)
}

func (s *Store) subscribeLocked(fn func(State)) func() {
	key := s.nextSub
	s.nextSub++
	s.subs[key] = fn

	return func() {
		s.mu.Lock()
		delete(s.subs, key)
		s.mu.Unlock()
	}
}

// update applies fn to a copy of the state and publishes it when fn reports
// a change.
func (s *Store) update(op string, fn func(st *State) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	if !fn(&next) {
		return false
	}
	s.state = next

	if s.metrics != nil {
		s.metrics.RecordWindowOp(op)
	}
	for _, sub := range s.subs {
		sub(next.clone())
	}
	return true
}

// Snapshot returns the current state
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Windows returns the open windows in creation order
func (s *Store) Windows() []Window {
	return s.Snapshot().Windows
}

// Window returns the open window with the given id
func (s *Store) Window(id string) (Window, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.state.indexOf(id); i >= 0 {
		return s.state.Windows[i], true
	}
	return Window{}, false
}

// FocusedWindow returns the focused window id, or "" when none is focused
func (s *Store) FocusedWindow() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.FocusedWindow
}

// OpenWindow creates the window for appID, or restores and raises it when it
// is already open. Unknown app ids are ignored.
func (s *Store) OpenWindow(appID string) bool {
	desc, ok := s.registry.Lookup(appID)
	if !ok {
		return false
	}

	return s.update(OpOpenWindow, func(st *State) bool {
		z := st.bringToFront()
		if i := st.indexOf(appID); i >= 0 {
			st.Windows[i].Minimized = false
			st.Windows[i].Z = z
		} else {
			pos, size := st.initialGeometry()
			st.Windows = append(st.Windows, Window{
				ID:        desc.ID,
				Title:     desc.Name,
				Icon:      desc.Icon,
				Component: desc.Component,
				Z:         z,
				Position:  pos,
				Size:      size,
			})
		}
		st.FocusedWindow = appID
		st.StartMenuOpen = false
		return true
	})
}

// CloseWindow destroys the window, clearing focus if it held it
func (s *Store) CloseWindow(id string) bool {
	return s.update(OpCloseWindow, func(st *State) bool {
		i := st.indexOf(id)
		if i < 0 {
			return false
		}
		st.Windows = append(st.Windows[:i], st.Windows[i+1:]...)
		if st.FocusedWindow == id {
			st.FocusedWindow = ""
		}
		return true
	})
}

// MinimizeWindow hides the window, clearing focus if it held it
func (s *Store) MinimizeWindow(id string) bool {
	return s.update(OpMinimizeWindow, func(st *State) bool {
		i := st.indexOf(id)
		if i < 0 {
			return false
		}
		st.Windows[i].Minimized = true
		if st.FocusedWindow == id {
			st.FocusedWindow = ""
		}
		return true
	})
}

// RestoreWindow shows the window in its normal state, raises and focuses it
func (s *Store) RestoreWindow(id string) bool {
	return s.update(OpRestoreWindow, func(st *State) bool {
		i := st.indexOf(id)
		if i < 0 {
			return false
		}
		st.Windows[i].Minimized = false
		st.Windows[i].Maximized = false
		st.Windows[i].Z = st.bringToFront()
		st.FocusedWindow = id
		return true
	})
}

// MaximizeWindow toggles the maximized flag, unminimizes, raises and focuses.
// Stored geometry is left untouched so un-maximizing returns to it.
func (s *Store) MaximizeWindow(id string) bool {
	return s.update(OpMaximizeWindow, func(st *State) bool {
		i := st.indexOf(id)
		if i < 0 {
			return false
		}
		st.Windows[i].Maximized = !st.Windows[i].Maximized
		st.Windows[i].Minimized = false
		st.Windows[i].Z = st.bringToFront()
		st.FocusedWindow = id
		return true
	})
}

// FocusWindow raises and focuses the window without touching its flags
func (s *Store) FocusWindow(id string) bool {
	return s.update(OpFocusWindow, func(st *State) bool {
		i := st.indexOf(id)
		if i < 0 {
			return false
		}
		st.Windows[i].Z = st.bringToFront()
		st.FocusedWindow = id
		return true
	})
}

// UpdateWindowPosition stores the window's position as given
func (s *Store) UpdateWindowPosition(id string, pos Position) bool {
	return s.update(OpUpdatePosition, func(st *State) bool {
		i := st.indexOf(id)
		if i < 0 {
			return false
		}
		st.Windows[i].Position = pos
		return true
	})
}

// UpdateWindowSize stores the window's size as given
func (s *Store) UpdateWindowSize(id string, size Size) bool {
	return s.update(OpUpdateSize, func(st *State) bool {
		i := st.indexOf(id)
		if i < 0 {
			return false
		}
		st.Windows[i].Size = size
		return true
	})
}

// CloseAllWindows empties the desktop and clears focus
func (s *Store) CloseAllWindows() {
	s.update(OpCloseAll, func(st *State) bool {
		if len(st.Windows) == 0 && st.FocusedWindow == "" {
			return false
		}
		st.Windows = []Window{}
		st.FocusedWindow = ""
		return true
	})
}

// MinimizeAllWindows minimizes every window and clears focus
func (s *Store) MinimizeAllWindows() {
	s.update(OpMinimizeAll, func(st *State) bool {
		changed := st.FocusedWindow != ""
		for i := range st.Windows {
			if !st.Windows[i].Minimized {
				st.Windows[i].Minimized = true
				changed = true
			}
		}
		st.FocusedWindow = ""
		return changed
	})
}

// ToggleStartMenu flips the start menu
func (s *Store) ToggleStartMenu() {
	s.update(OpToggleStartMenu, func(st *State) bool {
		st.StartMenuOpen = !st.StartMenuOpen
		return true
	})
}

// OpenStartMenu opens the start menu
func (s *Store) OpenStartMenu() {
	s.setStartMenu(OpOpenStartMenu, true)
}

// CloseStartMenu closes the start menu
func (s *Store) CloseStartMenu() {
	s.setStartMenu(OpCloseStartMenu, false)
}

func (s *Store) setStartMenu(op string, open bool) {
	s.update(op, func(st *State) bool {
		if st.StartMenuOpen == open {
			return false
		}
		st.StartMenuOpen = open
		return true
	})
}

// SelectIcon makes iconID the single selected desktop icon
func (s *Store) SelectIcon(iconID string) {
	s.update(OpSelectIcon, func(st *State) bool {
		if st.SelectedIconID == iconID {
			return false
		}
		st.SelectedIconID = iconID
		return true
	})
}

// DeselectIcon clears the icon selection
func (s *Store) DeselectIcon() {
	s.SelectIcon("")
}

// TriggerShutdownScreen shows the shutdown overlay and closes the start menu
func (s *Store) TriggerShutdownScreen() {
	s.update(OpTriggerShutdown, func(st *State) bool {
		if st.ShutdownScreenActive && !st.StartMenuOpen {
			return false
		}
		st.ShutdownScreenActive = true
		st.StartMenuOpen = false
		return true
	})
}

// DeactivateShutdownScreen hides the shutdown overlay
func (s *Store) DeactivateShutdownScreen() {
	s.update(OpDeactivateShutdown, func(st *State) bool {
		if !st.ShutdownScreenActive {
			return false
		}
		st.ShutdownScreenActive = false
		return true
	})
}

// SetViewport records the client's viewport; windows created afterwards are
// fitted into it. Non-positive dimensions are ignored.
func (s *Store) SetViewport(v Viewport) bool {
	if !v.Known() {
		return false
	}
	return s.update(OpSetViewport, func(st *State) bool {
		if st.Viewport == v {
			return false
		}
		st.Viewport = v
		return true
	})
}
