package desktop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestApply(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Apply(Command{Op: OpOpenWindow, AppID: "music"}))
	require.NoError(t, s.Apply(Command{Op: OpUpdatePosition, AppID: "music", X: ptr(5), Y: ptr(6)}))
	require.NoError(t, s.Apply(Command{Op: OpUpdateSize, AppID: "music", Width: ptr(320), Height: ptr(240)}))
	require.NoError(t, s.Apply(Command{Op: OpMaximizeWindow, AppID: "music"}))
	require.NoError(t, s.Apply(Command{Op: OpSelectIcon, IconID: "browser"}))
	require.NoError(t, s.Apply(Command{Op: OpToggleStartMenu}))

	w := mustWindow(t, s, "music")
	assert.Equal(t, Position{X: 5, Y: 6}, w.Position)
	assert.Equal(t, Size{Width: 320, Height: 240}, w.Size)
	assert.True(t, w.Maximized)

	snap := s.Snapshot()
	assert.Equal(t, "browser", snap.SelectedIconID)
	assert.True(t, snap.StartMenuOpen)

	require.NoError(t, s.Apply(Command{Op: OpTriggerShutdown}))
	assert.False(t, s.Snapshot().StartMenuOpen)

	require.NoError(t, s.Apply(Command{Op: OpCloseAll}))
	assert.Empty(t, s.Windows())
}

func TestApplyUnknownAppIsNoop(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Apply(Command{Op: OpFocusWindow, AppID: "ghost"}))
	require.NoError(t, s.Apply(Command{Op: OpOpenWindow, AppID: "ghost"}))
	assert.Empty(t, s.Windows())
}

func TestApplyErrors(t *testing.T) {
	tests := []struct {
		name    string
		cmd     Command
		wantErr error
	}{
		{"unknown op", Command{Op: "explode"}, ErrUnknownOp},
		{"empty op", Command{}, ErrUnknownOp},
		{"window op without app", Command{Op: OpCloseWindow}, ErrInvalidCommand},
		{"position without y", Command{Op: OpUpdatePosition, AppID: "music", X: ptr(1)}, ErrInvalidCommand},
		{"size without app", Command{Op: OpUpdateSize, Width: ptr(1), Height: ptr(1)}, ErrInvalidCommand},
		{"select without icon", Command{Op: OpSelectIcon}, ErrInvalidCommand},
		{"negative viewport", Command{Op: OpSetViewport, Width: ptr(-1), Height: ptr(10)}, ErrInvalidCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			err := s.Apply(tt.cmd)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestHandlersCoverEveryOperation(t *testing.T) {
	ops := []string{
		OpOpenWindow, OpCloseWindow, OpMinimizeWindow, OpRestoreWindow,
		OpMaximizeWindow, OpFocusWindow, OpUpdatePosition, OpUpdateSize,
		OpCloseAll, OpMinimizeAll, OpToggleStartMenu, OpOpenStartMenu,
		OpCloseStartMenu, OpSelectIcon, OpDeselectIcon, OpTriggerShutdown,
		OpDeactivateShutdown, OpSetViewport,
	}
	assert.Len(t, handlers, len(ops))
	for _, op := range ops {
		assert.Contains(t, handlers, op)
	}
}
