package scheduler

import (
	"context"
	"os"
	"sync"

	"github.com/msladek/bwx/internal/bwx"
)

// InlineScheduler runs units as goroutines of the current process. Units
// recorded by other processes are reached through the process signaler.
type InlineScheduler struct {
	locks   *Locks
	unit    *Unit
	process Signaler
	pid     int
	logger  bwx.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

var (
	_ bwx.Scheduler = (*InlineScheduler)(nil)
	_ Signaler      = (*InlineScheduler)(nil)
)

// NewInlineScheduler creates a scheduler running units in this process.
func NewInlineScheduler(locks *Locks, clipboard bwx.Clipboard, reader bwx.ClipboardReader, clock bwx.Clock, logger bwx.Logger) *InlineScheduler {
	s := &InlineScheduler{
		locks:   locks,
		process: ProcessSignaler{},
		pid:     os.Getpid(),
		logger:  logger,
		cancels: make(map[string]context.CancelFunc),
	}
	s.unit = NewUnit(locks, s, clipboard, reader, clock, logger, s.pid)
	return s
}

// Arm starts the unit in a goroutine. It stops early when ctx is cancelled.
func (s *InlineScheduler) Arm(ctx context.Context, req bwx.ClearRequest) (bwx.ClearHandle, error) {
	runCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancels[req.ID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.cancels, req.ID)
			s.mu.Unlock()
			cancel()
		}()
		if err := s.unit.Run(runCtx, req); err != nil {
			s.logger.Warn("clear failed", "target", string(req.Target), "id", req.ID, "error", err)
		}
	}()

	return NewEntry(req, s.pid).Handle(), nil
}

func (s *InlineScheduler) Pending(target bwx.Target) (bwx.ClearHandle, bool, error) {
	return pending(s.locks, s, target)
}

func (s *InlineScheduler) Cancel(h bwx.ClearHandle) error {
	return s.locks.Revoke(h.Target, h.ID, s)
}

// Wait blocks until every unit started by this scheduler has returned.
func (s *InlineScheduler) Wait() {
	s.wg.Wait()
}

// Alive reports whether the unit is running, here or in another process.
func (s *InlineScheduler) Alive(e Entry) bool {
	if e.PID != s.pid {
		return s.process.Alive(e)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cancels[e.ID]
	return ok
}

// Stop cancels a local unit or signals a unit in another process.
func (s *InlineScheduler) Stop(e Entry) error {
	if e.PID != s.pid {
		return s.process.Stop(e)
	}
	s.mu.Lock()
	cancel, ok := s.cancels[e.ID]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return nil
}
