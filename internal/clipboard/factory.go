package clipboard

import (
	"github.com/msladek/bwx/internal/bwx"
	"github.com/msladek/bwx/internal/config"
)

// NewClipboardFromConfig creates the command clipboard described by cfg,
// with the native reader as fallback for reading selections back.
func NewClipboardFromConfig(cfg *config.Config, logger bwx.Logger) *CommandClipboard {
	return NewCommandClipboard(Commands{
		Copy:        cfg.ClipboardCopyCmd,
		Clear:       cfg.ClipboardClearCmd,
		Paste:       cfg.ClipboardPasteCmd,
		TargetFlags: cfg.ClipboardTargetFlags,
	}, NativeReader{}, logger)
}
