package windows

import (
	"context"

	"github.com/google/uuid"
)

// StartDrag begins a cross-window drag from source with the given paths
// (normally source's current Selection). Rejected if a drag is already in
// progress. Assigns a fresh CycleID so every log line emitted for this
// drag, through whichever phase it ends in, can be correlated.
func (m *DualWindowManager) StartDrag(source WindowID, paths []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.drag.transition(eventStartDrag); err != nil {
		return err
	}

	m.drag.Source = source
	m.drag.Paths = append([]string(nil), paths...)
	m.drag.CycleID = uuid.New().String()

	m.logger.Info("window: drag started", "cycle_id", m.drag.CycleID, "source", source, "paths", len(paths))

	return nil
}

// Drop records target as the window the drag is hovering/released over.
func (m *DualWindowManager) Drop(target WindowID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.drag.transition(eventDrop); err != nil {
		return err
	}

	m.drag.Target = target

	m.logger.Info("window: drop pending", "cycle_id", m.drag.CycleID, "source", m.drag.Source, "target", target)

	return nil
}

// Commit finalizes a pending drop: delegates the side effect to
// FileOperations, then transitions to Committed regardless of the
// delegate's outcome (a failed file op is the delegate's concern to
// surface; the arbitration state itself still resolves so the UI isn't
// left in DropPending).
func (m *DualWindowManager) Commit(ctx context.Context) error {
	m.mu.Lock()
	paths, source, target, cycleID := m.drag.Paths, m.drag.Source, m.drag.Target, m.drag.CycleID
	m.mu.Unlock()

	var opErr error
	if m.files != nil {
		opErr = m.files.CommitDrag(ctx, paths, source, target)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.drag.transition(eventCommit); err != nil {
		return err
	}

	m.logger.Info("window: drag committed", "cycle_id", cycleID, "source", source, "target", target, "error", opErr)

	return opErr
}

// Abort cancels an in-progress drag from DragStarted or DropPending.
func (m *DualWindowManager) Abort() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	source, target, cycleID := m.drag.Source, m.drag.Target, m.drag.CycleID

	if err := m.drag.transition(eventAbort); err != nil {
		return err
	}

	m.logger.Info("window: drag aborted", "cycle_id", cycleID, "source", source, "target", target)

	return nil
}

// ResetDrag returns the machine to Idle from a terminal phase
// (Committed/Aborted), ready for the next drag.
func (m *DualWindowManager) ResetDrag() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.drag.transition(eventReset)
}

// DragPhase reports the arbitration machine's current phase.
func (m *DualWindowManager) DragPhase() DragPhase {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.drag.Phase
}
