package app

import (
	"errors"

	"github.com/msladek/bwx/internal/bwx"
	"github.com/msladek/bwx/internal/config"
)

// Exit codes reported by the bwx command.
const (
	ExitOK               = 0
	ExitError            = 1
	ExitConfig           = 2
	ExitUnlock           = 3
	ExitNotFound         = 4
	ExitRetryExhausted   = 5
	ExitClipboard        = 6
	ExitStorage          = 7
	ExitVaultUnavailable = 8
)

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, config.ErrInvalid):
		return ExitConfig
	case errors.Is(err, bwx.ErrSessionRetryExhausted):
		return ExitRetryExhausted
	case errors.Is(err, bwx.ErrVaultUnavailable):
		return ExitVaultUnavailable
	case errors.Is(err, bwx.ErrUnlockFailed):
		return ExitUnlock
	case errors.Is(err, bwx.ErrItemNotFound), errors.Is(err, bwx.ErrAmbiguousItem):
		return ExitNotFound
	case errors.Is(err, bwx.ErrClipboardUnavailable):
		return ExitClipboard
	case errors.Is(err, bwx.ErrStorage):
		return ExitStorage
	default:
		return ExitError
	}
}
