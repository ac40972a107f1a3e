package sequencing

import (
	"github.com/mind-engage/scorm-engine/internal/cmi"
)

// State is the derived lifecycle of one SCO within an attempt. It is
// always recomputed from tracking history, never stored, so it cannot
// drift from the tracking facts.
type State string

const (
	StateNotStarted State = "notstarted"
	StateInProgress State = "inprogress"
	StateSuspended  State = "suspended"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// DeriveState reads a SCO's lifecycle off its attempt snapshot.
func DeriveState(snap cmi.Snapshot, tracked bool) State {
	if !tracked {
		return StateNotStarted
	}
	switch snap.Status {
	case cmi.StatusCompleted, cmi.StatusPassed:
		return StateCompleted
	case cmi.StatusFailed:
		return StateFailed
	}
	switch snap.Elements[cmi.ElemSuccessStatus] {
	case cmi.StatusPassed:
		return StateCompleted
	case cmi.StatusFailed:
		return StateFailed
	}
	if snap.Suspended() {
		return StateSuspended
	}
	if snap.Status == "" || snap.Status == cmi.StatusNotAttempted {
		if len(snap.Elements) == 0 {
			return StateNotStarted
		}
	}
	return StateInProgress
}
