package windows

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panoptikon-app/panoptikon/internal/indexer"
	"github.com/panoptikon-app/panoptikon/internal/query"
	"github.com/panoptikon-app/panoptikon/internal/runtime"
)

// FileOperations is the side-effect boundary a committed drag delegates to.
// The manager never touches the filesystem itself; internal/coreapi's
// DragMover implements this against the real filesystem, tests supply a
// stub.
type FileOperations interface {
	CommitDrag(ctx context.Context, paths []string, source, target WindowID) error
}

// DualWindowManager tracks exactly two WindowStates, at most one active,
// and arbitrates drags between them with the dragState pure state machine.
// Each window's state is owned by its own windowActor; the manager never
// mutates a WindowState directly, only through that window's actor.
type DualWindowManager struct {
	mu sync.Mutex

	windows [2]*WindowState
	actors  [2]*windowActor
	active  WindowID

	drag dragState

	bus    *runtime.EventBus
	files  FileOperations
	logger *slog.Logger
}

// New creates a manager with primary active and secondary inactive, the
// natural single-window starting point before a user opens a second
// window. bus and files may be nil in tests that don't exercise
// subscription or drag commit.
func New(bus *runtime.EventBus, files FileOperations, logger *slog.Logger) *DualWindowManager {
	if logger == nil {
		logger = slog.Default()
	}

	m := &DualWindowManager{
		windows: [2]*WindowState{
			{ID: WindowPrimary, Active: true},
			{ID: WindowSecondary, Active: false},
		},
		actors: [2]*windowActor{newWindowActor(), newWindowActor()},
		active: WindowPrimary,
		drag:   dragState{Phase: DragIdle},
		bus:    bus,
		files:  files,
		logger: logger,
	}

	return m
}

// Start launches both windows' actor goroutines under ctx. Callers must
// call Close when done.
func (m *DualWindowManager) Start(ctx context.Context) {
	for _, a := range m.actors {
		a.start(ctx)
	}
}

// Close stops both actors and closes any bound ResultSets.
func (m *DualWindowManager) Close() {
	for i, a := range m.actors {
		a.stop()

		w := m.windows[i]
		if w.unsubscribe != nil {
			w.unsubscribe()
		}

		if w.resultSet != nil {
			w.resultSet.Close()
		}
	}
}

func (m *DualWindowManager) window(id WindowID) *WindowState { return m.windows[id] }

func (m *DualWindowManager) actor(id WindowID) *windowActor { return m.actors[id] }

// Activate makes id the active window and deactivates the other one,
// pausing its catalog-mutation subscription and halting its paging while
// retaining its ResultSet's snapshot so resuming it later still shows the
// same browse position.
func (m *DualWindowManager) Activate(ctx context.Context, id WindowID) error {
	m.mu.Lock()
	m.active = id
	m.mu.Unlock()

	other := id.other()

	if err := m.actor(other).do(ctx, func() {
		m.window(other).suspend()
	}); err != nil {
		return err
	}

	return m.actor(id).do(ctx, func() {
		w := m.window(id)
		w.resume()
		m.resubscribe(w)
	})
}

// SetQuery binds a new search to window id: swaps in rs, a ResultSet the
// caller has already run for queryText (closing the previous one), and — if id
// is the active window — subscribes it to catalog mutations for future
// invalidation-driven refresh signaling.
func (m *DualWindowManager) SetQuery(ctx context.Context, id WindowID, queryText string, rs *query.ResultSet) error {
	return m.actor(id).do(ctx, func() {
		w := m.window(id)

		if w.resultSet != nil {
			w.resultSet.Close()
		}

		w.QueryText = queryText
		w.resultSet = rs

		if w.Active {
			m.resubscribe(w)
		}
	})
}

// resubscribe tears down w's existing bus subscription (if any) and
// installs a fresh one, called whenever a window (re)gains an active
// ResultSet. Must run on w's own actor goroutine.
func (m *DualWindowManager) resubscribe(w *WindowState) {
	if w.unsubscribe != nil {
		w.unsubscribe()
		w.unsubscribe = nil
	}

	if m.bus == nil || w.resultSet == nil {
		return
	}

	id := w.ID

	w.unsubscribe = m.bus.Subscribe(indexer.TopicCatalogMutated, runtime.PriorityNormal,
		func(_ context.Context, _ string, ev runtime.Event) {
			m.logger.Debug("window: catalog mutated", "window", id, "event", ev)
		})
}

// ResultSet returns window id's currently bound ResultSet, or nil if none
// is set. Safe to call from outside the actor since it's a single pointer
// read; callers must not use the returned ResultSet once SetQuery swaps it
// out from under them mid-browse without re-fetching.
func (m *DualWindowManager) ResultSet(id WindowID) *query.ResultSet {
	return m.window(id).resultSet
}

// State returns a copy of window id's state for rendering.
func (m *DualWindowManager) State(id WindowID) WindowState {
	w := m.window(id)

	return WindowState{
		ID:           w.ID,
		Active:       w.Active,
		QueryText:    w.QueryText,
		Selection:    append([]string(nil), w.Selection...),
		ScrollAnchor: w.ScrollAnchor,
	}
}

// SetSelection records the paths currently selected in window id, the set
// a drag-source would hand to StartDrag.
func (m *DualWindowManager) SetSelection(ctx context.Context, id WindowID, paths []string) error {
	return m.actor(id).do(ctx, func() {
		m.window(id).Selection = append([]string(nil), paths...)
	})
}

// Active returns the currently active window id.
func (m *DualWindowManager) Active() WindowID {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.active
}
