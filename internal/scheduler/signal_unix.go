//go:build unix

package scheduler

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// ProcessSignaler reaches units running in other processes.
type ProcessSignaler struct{}

var _ Signaler = ProcessSignaler{}

// Alive reports whether e.PID is a running process of this same program.
// A pid recycled by an unrelated program counts as dead.
func (ProcessSignaler) Alive(e Entry) bool {
	if e.PID <= 0 {
		return false
	}
	if err := unix.Kill(e.PID, 0); err != nil {
		// EPERM: someone else's process.
		return false
	}
	return sameProgram(e.PID)
}

// Stop sends SIGTERM to the unit's process.
func (ProcessSignaler) Stop(e Entry) error {
	if e.PID <= 0 {
		return nil
	}
	if err := unix.Kill(e.PID, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("signalling pid %d: %w", e.PID, err)
	}
	return nil
}

// sameProgram compares executables through procfs. Without procfs any
// live pid is accepted.
func sameProgram(pid int) bool {
	self, err := os.Readlink("/proc/self/exe")
	if err != nil {
		return true
	}
	other, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
	if err != nil {
		return false
	}
	return strings.TrimSuffix(other, " (deleted)") == strings.TrimSuffix(self, " (deleted)")
}
