package scheduler

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/msladek/bwx/internal/bwx"
	"github.com/msladek/bwx/internal/fs"
)

// Locks manages the per-target lock entries in the transient directory.
//
// Directory structure:
//
//	<transient_dir>/
//	  clear-<target>.lock    (JSON Entry of the owning unit)
//	  .clear-<target>.guard  (flock serializing read-modify-write)
//
// Entries are replaced with an atomic rename, so Read needs no guard.
type Locks struct {
	dir    string
	logger bwx.Logger
}

// NewLocks creates a Locks keeping its files in dir.
func NewLocks(dir string, logger bwx.Logger) *Locks {
	return &Locks{dir: dir, logger: logger}
}

// EntryPath returns the lock entry file for target.
func (l *Locks) EntryPath(target bwx.Target) string {
	return filepath.Join(l.dir, "clear-"+string(target)+".lock")
}

func (l *Locks) guardPath(target bwx.Target) string {
	return filepath.Join(l.dir, ".clear-"+string(target)+".guard")
}

// withGuard runs fn while holding the exclusive guard lock for target.
func (l *Locks) withGuard(target bwx.Target, fn func() error) error {
	f, err := os.OpenFile(l.guardPath(target), os.O_RDWR|os.O_CREATE, fs.PrivateFileMode)
	if err != nil {
		return fmt.Errorf("opening guard: %w", err)
	}
	defer f.Close()

	fd := int(f.Fd())
	for {
		err = unix.Flock(fd, unix.LOCK_EX)
		if !errors.Is(err, unix.EINTR) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("locking guard: %w", err)
	}
	defer unix.Flock(fd, unix.LOCK_UN)

	return fn()
}

// Read returns the entry recorded for target. ok is false when none is.
func (l *Locks) Read(target bwx.Target) (e Entry, ok bool, err error) {
	data, err := os.ReadFile(l.EntryPath(target))
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("reading lock entry: %w", err)
	}
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decoding lock entry %s: %w", l.EntryPath(target), err)
	}
	return e, true, nil
}

// readRecorded is Read for callers holding the guard: an undecodable entry
// is logged and treated as absent so it gets overwritten.
func (l *Locks) readRecorded(target bwx.Target) (Entry, bool) {
	e, ok, err := l.Read(target)
	if err != nil {
		l.logger.Warn("ignoring lock entry", "target", string(target), "error", err)
		return Entry{}, false
	}
	return e, ok
}

func (l *Locks) write(e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding lock entry: %w", err)
	}
	if err := fs.WriteFileAtomic(l.EntryPath(e.Target), data); err != nil {
		return fmt.Errorf("writing lock entry: %w", err)
	}
	return nil
}

// Claim makes e the owner of its target. A live unit armed later than e
// keeps the target and Claim returns false; any other live owner is
// stopped and replaced.
func (l *Locks) Claim(e Entry, sig Signaler) (claimed bool, err error) {
	err = l.withGuard(e.Target, func() error {
		prev, ok := l.readRecorded(e.Target)
		if ok && prev.ID != e.ID && sig.Alive(prev) {
			if prev.ArmedAt.After(e.ArmedAt) {
				l.logger.Debug("newer clear owns target", "target", string(e.Target), "id", e.ID, "owner", prev.ID)
				return nil
			}
			if err := sig.Stop(prev); err != nil {
				l.logger.Warn("stopping superseded clear", "target", string(e.Target), "id", prev.ID, "pid", prev.PID, "error", err)
			} else {
				l.logger.Debug("stopped superseded clear", "target", string(e.Target), "id", prev.ID, "pid", prev.PID)
			}
		}
		if err := l.write(e); err != nil {
			return err
		}
		claimed = true
		return nil
	})
	return claimed, err
}

// Owns reports whether id is recorded as the owner of target.
func (l *Locks) Owns(target bwx.Target, id string) (bool, error) {
	e, ok, err := l.Read(target)
	if err != nil {
		return false, err
	}
	return ok && e.ID == id, nil
}

// WhileOwner runs fn under the guard if id still owns target. Claims and
// revocations for target wait until fn returns.
func (l *Locks) WhileOwner(target bwx.Target, id string, fn func() error) (owner bool, err error) {
	err = l.withGuard(target, func() error {
		e, ok := l.readRecorded(target)
		if !ok || e.ID != id {
			return nil
		}
		owner = true
		return fn()
	})
	return owner, err
}

// Release removes the entry for target if id still owns it.
func (l *Locks) Release(target bwx.Target, id string) error {
	return l.withGuard(target, func() error {
		e, ok := l.readRecorded(target)
		if !ok || e.ID != id {
			return nil
		}
		return fs.RemoveIfExists(l.EntryPath(target))
	})
}

// Revoke stops the unit id if it still owns target and removes its entry.
func (l *Locks) Revoke(target bwx.Target, id string, sig Signaler) error {
	return l.withGuard(target, func() error {
		e, ok := l.readRecorded(target)
		if !ok || e.ID != id {
			return nil
		}
		if sig.Alive(e) {
			if err := sig.Stop(e); err != nil {
				return fmt.Errorf("stopping clear %s: %w", id, err)
			}
		}
		return fs.RemoveIfExists(l.EntryPath(target))
	})
}

// pending returns the live unit recorded for target.
func pending(locks *Locks, sig Signaler, target bwx.Target) (bwx.ClearHandle, bool, error) {
	e, ok, err := locks.Read(target)
	if err != nil || !ok {
		return bwx.ClearHandle{}, false, err
	}
	if !sig.Alive(e) {
		return bwx.ClearHandle{}, false, nil
	}
	return e.Handle(), true, nil
}
