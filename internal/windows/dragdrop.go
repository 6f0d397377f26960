package windows

import (
	"github.com/panoptikon-app/panoptikon/internal/perror"
)

// DragPhase is the closed set of states the cross-window drag arbitration
// machine can be in.
type DragPhase int

const (
	DragIdle DragPhase = iota
	DragStarted
	DragDropPending
	DragCommitted
	DragAborted
)

func (p DragPhase) String() string {
	switch p {
	case DragIdle:
		return "idle"
	case DragStarted:
		return "drag_started"
	case DragDropPending:
		return "drop_pending"
	case DragCommitted:
		return "committed"
	case DragAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// dragEvent is the closed set of inputs the machine reacts to.
type dragEvent int

const (
	eventStartDrag dragEvent = iota
	eventDrop
	eventCommit
	eventAbort
	eventReset
)

// dragTransitions is the explicit transition table: Idle -> DragStarted ->
// DropPending -> Committed|Aborted, plus an Abort escape hatch from
// DragStarted and a Reset back to Idle from either terminal state. Any
// (phase, event) pair absent from this table is rejected.
var dragTransitions = map[DragPhase]map[dragEvent]DragPhase{
	DragIdle: {
		eventStartDrag: DragStarted,
	},
	DragStarted: {
		eventDrop:  DragDropPending,
		eventAbort: DragAborted,
	},
	DragDropPending: {
		eventCommit: DragCommitted,
		eventAbort:  DragAborted,
	},
	DragCommitted: {
		eventReset: DragIdle,
	},
	DragAborted: {
		eventReset: DragIdle,
	},
}

// dragState is the machine's full state: phase plus the source/target/paths
// context a transition needs to act on. Manipulated only through
// DualWindowManager's drag methods, which hold the manager's mu (see
// drag_manager.go), so no separate locking is needed here.
type dragState struct {
	Phase   DragPhase
	Source  WindowID
	Target  WindowID
	Paths   []string
	CycleID string // correlates one StartDrag..Reset cycle across log lines
}

// transition validates and applies ev, returning the invalid-transition
// error perror taxonomy callers expect if ev isn't allowed from the
// current phase.
func (d *dragState) transition(ev dragEvent) error {
	next, ok := dragTransitions[d.Phase][ev]
	if !ok {
		return perror.New(perror.CategoryWindowInvalidTransition, "windows.dragdrop", "",
			"no transition for event from current phase", nil)
	}

	d.Phase = next

	return nil
}
