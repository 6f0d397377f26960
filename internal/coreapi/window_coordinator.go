package coreapi

import (
	"context"

	"github.com/panoptikon-app/panoptikon/internal/windows"
)

// WindowCoordinator is the UI-facing facade over internal/windows'
// DualWindowManager: activate, toggle_secondary, and on_drop(source,
// target, paths).
type WindowCoordinator struct {
	manager          *windows.DualWindowManager
	secondaryVisible bool
}

// NewWindowCoordinator creates a coordinator over manager, starting with
// the secondary window hidden (primary-only is the natural default single-
// window state per internal/windows.New).
func NewWindowCoordinator(manager *windows.DualWindowManager) *WindowCoordinator {
	return &WindowCoordinator{manager: manager}
}

// Activate makes id the active window.
func (c *WindowCoordinator) Activate(ctx context.Context, id windows.WindowID) error {
	return c.manager.Activate(ctx, id)
}

// ToggleSecondary shows or hides the secondary window, activating it on
// reveal and falling back to the primary window on hide.
func (c *WindowCoordinator) ToggleSecondary(ctx context.Context) error {
	c.secondaryVisible = !c.secondaryVisible

	if c.secondaryVisible {
		return c.manager.Activate(ctx, windows.WindowSecondary)
	}

	return c.manager.Activate(ctx, windows.WindowPrimary)
}

// SecondaryVisible reports whether the secondary window is currently
// shown.
func (c *WindowCoordinator) SecondaryVisible() bool {
	return c.secondaryVisible
}

// OnDrop drives the full drag-arbitration sequence for a single drop
// gesture: start the drag from source, register the drop onto target, and
// commit it, logging failures at each stage with both window ids (the
// manager's own responsibility, not this facade's).
func (c *WindowCoordinator) OnDrop(ctx context.Context, source, target windows.WindowID, paths []string) error {
	if err := c.manager.StartDrag(source, paths); err != nil {
		return err
	}

	if err := c.manager.Drop(target); err != nil {
		_ = c.manager.Abort()

		return err
	}

	if err := c.manager.Commit(ctx); err != nil {
		return err
	}

	return c.manager.ResetDrag()
}
