package bwx

import "errors"

var (
	// vault errors
	ErrVaultUnavailable = errors.New("vault command unavailable")
	ErrUnlockFailed     = errors.New("vault unlock failed")
	ErrNotInteractive   = errors.New("no terminal available for the master password prompt")
	ErrItemNotFound     = errors.New("item not found")
	ErrAmbiguousItem    = errors.New("more than one item matches")

	// ErrSessionInvalid is reported by a Vault when the token it was given
	// is expired or was never valid.
	ErrSessionInvalid        = errors.New("session invalid or expired")
	ErrSessionRetryExhausted = errors.New("session rejected again after re-unlock")

	// clipboard errors
	ErrClipboardUnavailable = errors.New("clipboard command failed")

	// storage errors
	ErrStorage = errors.New("transient storage error")
)
