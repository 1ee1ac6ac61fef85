//go:build !(freebsd || linux || netbsd || openbsd || solaris || dragonfly)

package clipboard

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"

	"github.com/msladek/bwx/internal/bwx"
)

// NativeReader reads the system clipboard. Platforms without a primary
// selection cannot read TargetPrimary.
type NativeReader struct{}

var _ bwx.ClipboardReader = NativeReader{}

func (NativeReader) Read(_ context.Context, target bwx.Target) (string, error) {
	if target == bwx.TargetPrimary {
		return "", fmt.Errorf("%w: primary selection not supported on this platform", bwx.ErrClipboardUnavailable)
	}
	content, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("%w: %w", bwx.ErrClipboardUnavailable, err)
	}
	return content, nil
}
