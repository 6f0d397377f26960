// Package windows implements the headless dual-window state the UI layer
// presents on top of: two independent query contexts, at most one of them
// live at a time, and the pure arbitration state machine that governs
// dragging files from one window's result list to the other.
package windows

import (
	"github.com/panoptikon-app/panoptikon/internal/query"
)

// WindowID names one of the exactly two windows a DualWindowManager
// tracks.
type WindowID int

const (
	WindowPrimary WindowID = iota
	WindowSecondary
)

func (id WindowID) String() string {
	switch id {
	case WindowPrimary:
		return "primary"
	case WindowSecondary:
		return "secondary"
	default:
		return "unknown"
	}
}

// other returns the window id that isn't id, valid only for the two-window
// closed set this package works with.
func (id WindowID) other() WindowID {
	if id == WindowPrimary {
		return WindowSecondary
	}

	return WindowPrimary
}

// WindowState is one window's query/selection/scroll context. Field
// mutations happen only on the window's own actor goroutine (see actor.go);
// callers outside this package never touch a WindowState directly.
type WindowState struct {
	ID           WindowID
	Active       bool
	QueryText    string
	Selection    []string
	ScrollAnchor int64

	resultSet   *query.ResultSet
	unsubscribe func()
}

// suspend pauses the window without discarding its browse position: the
// bound ResultSet keeps its snapshot (so Total/position stay valid when the
// window reactivates) but nothing pages through it while inactive, and the
// window's catalog-mutation subscription is torn down rather than
// filtered.
func (w *WindowState) suspend() {
	w.Active = false

	if w.unsubscribe != nil {
		w.unsubscribe()
		w.unsubscribe = nil
	}
}

// resume marks the window active again; re-subscribing to the bus is the
// manager's job since it owns the bus reference, not the WindowState's.
func (w *WindowState) resume() {
	w.Active = true
}
