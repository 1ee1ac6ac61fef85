//go:build freebsd || linux || netbsd || openbsd || solaris || dragonfly

package clipboard

import (
	"context"
	"fmt"
	"sync"

	"github.com/atotto/clipboard"

	"github.com/msladek/bwx/internal/bwx"
)

// nativeMu guards the package-level selection switch of atotto/clipboard.
var nativeMu sync.Mutex

// NativeReader reads selections through whichever of xclip, xsel or
// wl-paste is installed.
type NativeReader struct{}

var _ bwx.ClipboardReader = NativeReader{}

func (NativeReader) Read(_ context.Context, target bwx.Target) (string, error) {
	if clipboard.Unsupported {
		return "", fmt.Errorf("%w: no clipboard utility installed", bwx.ErrClipboardUnavailable)
	}

	nativeMu.Lock()
	defer nativeMu.Unlock()

	clipboard.Primary = target == bwx.TargetPrimary
	defer func() { clipboard.Primary = false }()

	content, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("%w: %w", bwx.ErrClipboardUnavailable, err)
	}
	return content, nil
}
