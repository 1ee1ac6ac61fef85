package bwx

import (
	"context"
	"fmt"
)

// Target names a clipboard selection.
type Target string

const (
	TargetClipboard Target = "clipboard"
	TargetPrimary   Target = "primary"
)

// ParseTarget validates a target name.
func ParseTarget(s string) (Target, error) {
	switch Target(s) {
	case TargetClipboard, TargetPrimary:
		return Target(s), nil
	default:
		return "", fmt.Errorf("unknown clipboard target: %q", s)
	}
}

// Clipboard writes to and clears clipboard selections.
// A Clipboard with copying disabled is valid: callers check CopyEnabled and
// skip the step rather than treating it as a failure.
type Clipboard interface {
	CopyEnabled() bool
	ClearEnabled() bool

	// Copy places secret on the target selection. The secret is handed to
	// the clipboard tool on standard input, never on a command line.
	Copy(ctx context.Context, target Target, secret string) error

	// Clear empties the target selection.
	Clear(ctx context.Context, target Target) error
}

// ClipboardReader reads the current content of a selection.
// Reads are best effort; not every backend can read every target.
type ClipboardReader interface {
	Read(ctx context.Context, target Target) (string, error)
}
