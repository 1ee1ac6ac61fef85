//go:build unix

package scheduler

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"syscall"

	"github.com/msladek/bwx/internal/bwx"
)

// ClearUnitCommand is the hidden subcommand a detached unit runs as.
const ClearUnitCommand = "clear-unit"

// ProcessScheduler runs each unit in a detached bwx process that outlives
// the invocation that armed it.
type ProcessScheduler struct {
	locks      *Locks
	signaler   Signaler
	executable string
	debug      bool
	logger     bwx.Logger
}

var _ bwx.Scheduler = (*ProcessScheduler)(nil)

// NewProcessScheduler creates a scheduler re-executing executable. In debug
// mode units stay in the caller's session so they can be traced.
func NewProcessScheduler(locks *Locks, executable string, debug bool, logger bwx.Logger) *ProcessScheduler {
	return &ProcessScheduler{
		locks:      locks,
		signaler:   ProcessSignaler{},
		executable: executable,
		debug:      debug,
		logger:     logger,
	}
}

// UnitArgs returns the arguments that make bwx run req as a unit.
func UnitArgs(req bwx.ClearRequest) []string {
	return []string{
		ClearUnitCommand,
		"--target", string(req.Target),
		"--id", req.ID,
		"--armed-at", strconv.FormatInt(req.ArmedAt.UnixNano(), 10),
		"--delay", req.Delay.String(),
	}
}

// Arm starts the unit process. The fingerprint is written to its stdin.
func (s *ProcessScheduler) Arm(_ context.Context, req bwx.ClearRequest) (bwx.ClearHandle, error) {
	// Not CommandContext: the unit must survive this invocation.
	cmd := exec.Command(s.executable, UnitArgs(req)...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: !s.debug}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return bwx.ClearHandle{}, fmt.Errorf("creating unit stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		stdin.Close()
		return bwx.ClearHandle{}, fmt.Errorf("starting clear unit: %w", err)
	}
	if _, err := stdin.Write([]byte(req.Fingerprint + "\n")); err != nil {
		s.logger.Debug("handing fingerprint to unit", "id", req.ID, "error", err)
	}
	stdin.Close()

	h := NewEntry(req, cmd.Process.Pid).Handle()
	if err := cmd.Process.Release(); err != nil {
		s.logger.Debug("releasing unit process", "pid", h.PID, "error", err)
	}
	s.logger.Debug("started clear unit", "target", string(req.Target), "id", req.ID, "pid", h.PID)
	return h, nil
}

func (s *ProcessScheduler) Pending(target bwx.Target) (bwx.ClearHandle, bool, error) {
	return pending(s.locks, s.signaler, target)
}

func (s *ProcessScheduler) Cancel(h bwx.ClearHandle) error {
	return s.locks.Revoke(h.Target, h.ID, s.signaler)
}

// Wait returns immediately; detached units are not waited for.
func (s *ProcessScheduler) Wait() {}
