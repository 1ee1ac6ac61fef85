// Package scheduler runs deferred clipboard clears.
//
// Each armed clear is carried out by a Unit. A unit records itself in a
// per-target lock entry under the transient directory; the most recently
// armed unit for a target owns it and every older unit stands down, so at
// most one clear per target is ever pending. Units run either in detached
// bwx processes (ProcessScheduler) or as goroutines of the arming process
// (InlineScheduler).
package scheduler

import (
	"time"

	"github.com/msladek/bwx/internal/bwx"
)

// Entry is the lock entry recorded for the unit owning a target.
type Entry struct {
	ID       string     `json:"id"`
	PID      int        `json:"pid"`
	Target   bwx.Target `json:"target"`
	ArmedAt  time.Time  `json:"armed_at"`
	Deadline time.Time  `json:"deadline"`
}

// NewEntry describes the unit running req in process pid.
func NewEntry(req bwx.ClearRequest, pid int) Entry {
	return Entry{
		ID:       req.ID,
		PID:      pid,
		Target:   req.Target,
		ArmedAt:  req.ArmedAt,
		Deadline: req.Deadline(),
	}
}

// Handle returns the scheduler handle for the entry.
func (e Entry) Handle() bwx.ClearHandle {
	return bwx.ClearHandle{ID: e.ID, Target: e.Target, PID: e.PID, ArmedAt: e.ArmedAt, Deadline: e.Deadline}
}

// Signaler checks and stops the units recorded in lock entries.
type Signaler interface {
	// Alive reports whether the unit recorded in e is still running.
	Alive(e Entry) bool

	// Stop asks the unit recorded in e to stand down without clearing.
	// Stopping a unit that already exited is not an error.
	Stop(e Entry) error
}
