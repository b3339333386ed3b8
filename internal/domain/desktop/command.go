package desktop

import (
	"errors"
	"fmt"
)

// Operation names, shared by Command.Op and metrics labels
const (
	OpOpenWindow         = "open_window"
	OpCloseWindow        = "close_window"
	OpMinimizeWindow     = "minimize_window"
	OpRestoreWindow      = "restore_window"
	OpMaximizeWindow     = "maximize_window"
	OpFocusWindow        = "focus_window"
	OpUpdatePosition     = "update_window_position"
	OpUpdateSize         = "update_window_size"
	OpCloseAll           = "close_all_windows"
	OpMinimizeAll        = "minimize_all_windows"
	OpToggleStartMenu    = "toggle_start_menu"
	OpOpenStartMenu      = "open_start_menu"
	OpCloseStartMenu     = "close_start_menu"
	OpSelectIcon         = "select_icon"
	OpDeselectIcon       = "deselect_icon"
	OpTriggerShutdown    = "trigger_shutdown_screen"
	OpDeactivateShutdown = "deactivate_shutdown_screen"
	OpSetViewport        = "set_viewport"
)

var (
	ErrUnknownOp      = errors.New("unknown desktop operation")
	ErrInvalidCommand = errors.New("invalid desktop command")
)

// Command is a serialized store operation, as sent by the websocket stream
// and the generic commands endpoint.
type Command struct {
	Op     string   `json:"op"`
	AppID  string   `json:"app_id,omitempty"`
	IconID string   `json:"icon_id,omitempty"`
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
}

type handler func(s *Store, c Command) error

var handlers = map[string]handler{
	OpOpenWindow:     windowOp((*Store).OpenWindow),
	OpCloseWindow:    windowOp((*Store).CloseWindow),
	OpMinimizeWindow: windowOp((*Store).MinimizeWindow),
	OpRestoreWindow:  windowOp((*Store).RestoreWindow),
	OpMaximizeWindow: windowOp((*Store).MaximizeWindow),
	OpFocusWindow:    windowOp((*Store).FocusWindow),
	OpUpdatePosition: func(s *Store, c Command) error {
		if c.AppID == "" || c.X == nil || c.Y == nil {
			return fmt.Errorf("%w: %s requires app_id, x and y", ErrInvalidCommand, c.Op)
		}
		s.UpdateWindowPosition(c.AppID, Position{X: *c.X, Y: *c.Y})
		return nil
	},
	OpUpdateSize: func(s *Store, c Command) error {
		if c.AppID == "" || c.Width == nil || c.Height == nil {
			return fmt.Errorf("%w: %s requires app_id, width and height", ErrInvalidCommand, c.Op)
		}
		s.UpdateWindowSize(c.AppID, Size{Width: *c.Width, Height: *c.Height})
		return nil
	},
	OpCloseAll:           simpleOp((*Store).CloseAllWindows),
	OpMinimizeAll:        simpleOp((*Store).MinimizeAllWindows),
	OpToggleStartMenu:    simpleOp((*Store).ToggleStartMenu),
	OpOpenStartMenu:      simpleOp((*Store).OpenStartMenu),
	OpCloseStartMenu:     simpleOp((*Store).CloseStartMenu),
	OpDeselectIcon:       simpleOp((*Store).DeselectIcon),
	OpTriggerShutdown:    simpleOp((*Store).TriggerShutdownScreen),
	OpDeactivateShutdown: simpleOp((*Store).DeactivateShutdownScreen),
	OpSelectIcon: func(s *Store, c Command) error {
		if c.IconID == "" {
			return fmt.Errorf("%w: %s requires icon_id", ErrInvalidCommand, c.Op)
		}
		s.SelectIcon(c.IconID)
		return nil
	},
	OpSetViewport: func(s *Store, c Command) error {
		if c.Width == nil || c.Height == nil || *c.Width <= 0 || *c.Height <= 0 {
			return fmt.Errorf("%w: %s requires positive width and height", ErrInvalidCommand, c.Op)
		}
		s.SetViewport(Viewport{Width: *c.Width, Height: *c.Height})
		return nil
	},
}

func windowOp(fn func(*Store, string) bool) handler {
	return func(s *Store, c Command) error {
		if c.AppID == "" {
			return fmt.Errorf("%w: %s requires app_id", ErrInvalidCommand, c.Op)
		}
		fn(s, c.AppID)
		return nil
	}
}

func simpleOp(fn func(*Store)) handler {
	return func(s *Store, _ Command) error {
		fn(s)
		return nil
	}
}

// Apply dispatches a command to the matching store operation. Only malformed
// commands fail; unknown app ids are ignored like every other operation.
func (s *Store) Apply(c Command) error {
	h, ok := handlers[c.Op]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOp, c.Op)
	}
	return h(s, c)
}
