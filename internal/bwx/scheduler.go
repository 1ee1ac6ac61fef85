package bwx

import (
	"context"
	"time"
)

// ClearRequest describes one deferred clear of a clipboard target.
type ClearRequest struct {
	ID      string
	Target  Target
	ArmedAt time.Time
	Delay   time.Duration

	// Fingerprint of the copied content, used to skip the clear when the
	// selection has been overwritten since. Empty disables the check.
	Fingerprint string
}

// Deadline is the time the clear is due.
func (r ClearRequest) Deadline() time.Time {
	return r.ArmedAt.Add(r.Delay)
}

// ClearHandle identifies an armed clear.
type ClearHandle struct {
	ID       string
	Target   Target
	PID      int
	ArmedAt  time.Time
	Deadline time.Time
}

// Scheduler arms deferred clipboard clears, keeping at most one live clear
// per target. Arming a target supersedes the clear pending for it.
type Scheduler interface {
	Arm(ctx context.Context, req ClearRequest) (ClearHandle, error)

	// Pending returns the clear currently recorded for target, if any.
	Pending(target Target) (ClearHandle, bool, error)

	// Cancel stops the clear identified by h. Cancelling a clear that has
	// already fired or been superseded is a no-op.
	Cancel(h ClearHandle) error

	// Wait blocks until clears running inside this process have finished.
	// Clears running in detached processes are not waited for.
	Wait()
}
