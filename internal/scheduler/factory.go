package scheduler

import (
	"fmt"
	"os"

	"github.com/msladek/bwx/internal/bwx"
	"github.com/msladek/bwx/internal/config"
)

// NewSchedulerFromConfig creates the scheduler selected by
// clipboard_clear_mode. reader is only used for inline units; detached
// units build their own.
func NewSchedulerFromConfig(cfg *config.Config, clipboard bwx.Clipboard, reader bwx.ClipboardReader, clock bwx.Clock, logger bwx.Logger) (bwx.Scheduler, error) {
	locks := NewLocks(cfg.TransientPath(), logger)
	if !cfg.ClipboardVerifyBeforeClear {
		reader = nil
	}

	switch cfg.ClipboardClearMode {
	case config.ClearModeDetached, "":
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locating bwx executable: %w", err)
		}
		return NewProcessScheduler(locks, exe, cfg.Debug, logger), nil
	case config.ClearModeInline:
		return NewInlineScheduler(locks, clipboard, reader, clock, logger), nil
	default:
		return nil, fmt.Errorf("unknown clipboard clear mode: %s", cfg.ClipboardClearMode)
	}
}
