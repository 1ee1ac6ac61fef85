package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/msladek/bwx/internal/bwx"
)

// Unit carries out one clear: it claims the target, waits out the delay,
// and clears the selection if it still owns the target by then.
type Unit struct {
	locks     *Locks
	signaler  Signaler
	clipboard bwx.Clipboard
	reader    bwx.ClipboardReader // nil disables the stale-clipboard guard
	clock     bwx.Clock
	logger    bwx.Logger
	pid       int
}

// NewUnit creates a Unit recording itself as process pid.
func NewUnit(locks *Locks, signaler Signaler, clipboard bwx.Clipboard, reader bwx.ClipboardReader, clock bwx.Clock, logger bwx.Logger, pid int) *Unit {
	return &Unit{
		locks:     locks,
		signaler:  signaler,
		clipboard: clipboard,
		reader:    reader,
		clock:     clock,
		logger:    logger,
		pid:       pid,
	}
}

// Run executes req. Cancelling ctx stands the unit down without clearing.
// Being superseded is not an error; a failed claim or clear is.
func (u *Unit) Run(ctx context.Context, req bwx.ClearRequest) error {
	logger := u.logger.With("target", string(req.Target), "id", req.ID)
	entry := NewEntry(req, u.pid)

	claimed, err := u.locks.Claim(entry, u.signaler)
	if err != nil {
		return fmt.Errorf("claiming %s: %w", req.Target, err)
	}
	if !claimed {
		logger.Info("superseded before start")
		return nil
	}
	defer func() {
		if err := u.locks.Release(req.Target, req.ID); err != nil {
			logger.Warn("releasing lock entry", "error", err)
		}
	}()

	wait := entry.Deadline.Sub(u.clock.Now())
	logger.Debug("clear pending", "deadline", entry.Deadline.Format(time.RFC3339), "wait", wait.String())

	if ctx.Err() != nil {
		logger.Info("stopped before deadline")
		return nil
	}
	if wait > 0 {
		select {
		case <-ctx.Done():
			logger.Info("stopped before deadline")
			return nil
		case <-u.clock.After(wait):
		}
	}

	var cleared bool
	owner, err := u.locks.WhileOwner(req.Target, req.ID, func() error {
		if u.stale(ctx, req, logger) {
			return nil
		}
		if err := u.clipboard.Clear(ctx, req.Target); err != nil {
			return err
		}
		cleared = true
		return nil
	})
	if err != nil {
		return fmt.Errorf("clearing %s: %w", req.Target, err)
	}
	switch {
	case !owner:
		logger.Info("superseded")
	case cleared:
		logger.Info("cleared")
	}
	return nil
}

// stale reports whether the selection no longer holds the copied secret.
// A selection that cannot be read is not considered stale.
func (u *Unit) stale(ctx context.Context, req bwx.ClearRequest, logger bwx.Logger) bool {
	if u.reader == nil || req.Fingerprint == "" {
		return false
	}
	content, err := u.reader.Read(ctx, req.Target)
	if err != nil {
		logger.Debug("cannot read selection, clearing anyway", "error", err)
		return false
	}
	if bwx.MatchesFingerprint(content, req.Fingerprint) {
		return false
	}
	logger.Info("selection changed since copy, not clearing")
	return true
}
