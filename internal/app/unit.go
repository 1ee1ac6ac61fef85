package app

import (
	"context"
	"os"

	"github.com/msladek/bwx/internal/bwx"
	"github.com/msladek/bwx/internal/clipboard"
	"github.com/msladek/bwx/internal/config"
	"github.com/msladek/bwx/internal/scheduler"
)

// RunClearUnit runs a detached clear unit to completion. Failures are only
// logged: nobody is left to report them to.
func RunClearUnit(ctx context.Context, cfg *config.Config, req bwx.ClearRequest) {
	dir := cfg.TransientPath()
	logger, logFile, err := newUnitLogger(dir, req.ID, cfg.Debug)
	if err != nil {
		logger = bwx.NewNopLogger()
	}
	if logFile != nil {
		defer logFile.Close()
	}

	cb := clipboard.NewClipboardFromConfig(cfg, logger)
	var reader bwx.ClipboardReader
	if cfg.ClipboardVerifyBeforeClear {
		reader = cb
	}

	locks := scheduler.NewLocks(dir, logger)
	unit := scheduler.NewUnit(locks, scheduler.ProcessSignaler{}, cb, reader, bwx.RealClock{}, logger, os.Getpid())

	logger.Debug("unit started", "target", string(req.Target), "delay", req.Delay.String())
	if err := unit.Run(ctx, req); err != nil {
		logger.Error("clear failed", "target", string(req.Target), "error", err)
	}
}
