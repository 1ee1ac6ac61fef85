package clipboard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/msladek/bwx/internal/bwx"
	"github.com/msladek/bwx/internal/command"
)

// CommandClipboard drives external clipboard tools configured as argument
// vectors, e.g. ["xclip", "-in"] or ["wl-copy"]. Per-target flags are
// appended to every command run for that target.
type CommandClipboard struct {
	copyCmd     []string
	clearCmd    []string
	pasteCmd    []string
	targetFlags map[string][]string

	// native reads the selection when no paste command is configured.
	native bwx.ClipboardReader
	logger bwx.Logger
}

var (
	_ bwx.Clipboard       = (*CommandClipboard)(nil)
	_ bwx.ClipboardReader = (*CommandClipboard)(nil)
)

// Commands groups the clipboard argument vectors.
type Commands struct {
	Copy        []string
	Clear       []string
	Paste       []string
	TargetFlags map[string][]string
}

// NewCommandClipboard creates a clipboard from argument vectors. native may be nil.
func NewCommandClipboard(cmds Commands, native bwx.ClipboardReader, logger bwx.Logger) *CommandClipboard {
	return &CommandClipboard{
		copyCmd:     cmds.Copy,
		clearCmd:    cmds.Clear,
		pasteCmd:    cmds.Paste,
		targetFlags: cmds.TargetFlags,
		native:      native,
		logger:      logger,
	}
}

func (c *CommandClipboard) CopyEnabled() bool  { return len(c.copyCmd) > 0 }
func (c *CommandClipboard) ClearEnabled() bool { return len(c.clearCmd) > 0 }

// Copy pipes secret to the copy command's standard input.
func (c *CommandClipboard) Copy(ctx context.Context, target bwx.Target, secret string) error {
	if !c.CopyEnabled() {
		return nil
	}
	cmd := c.command(c.copyCmd, target)
	cmd.Stdin = strings.NewReader(secret)
	return c.run(ctx, cmd)
}

// Clear runs the clear command for target.
func (c *CommandClipboard) Clear(ctx context.Context, target bwx.Target) error {
	if !c.ClearEnabled() {
		return nil
	}
	return c.run(ctx, c.command(c.clearCmd, target))
}

// Read returns the current content of target using the paste command, or
// the native reader when none is configured.
func (c *CommandClipboard) Read(ctx context.Context, target bwx.Target) (string, error) {
	if len(c.pasteCmd) == 0 {
		if c.native == nil {
			return "", fmt.Errorf("%w: no way to read the clipboard", bwx.ErrClipboardUnavailable)
		}
		return c.native.Read(ctx, target)
	}

	cmd := c.command(c.pasteCmd, target)
	c.logger.Debug("running clipboard command", "cmd", cmd.String())
	res, err := cmd.Run(ctx)
	if err != nil {
		return "", wrap(err)
	}
	return res.Stdout, nil
}

func (c *CommandClipboard) command(argv []string, target bwx.Target) command.Command {
	return command.New(argv, c.targetFlags[string(target)]...)
}

func (c *CommandClipboard) run(ctx context.Context, cmd command.Command) error {
	c.logger.Debug("running clipboard command", "cmd", cmd.String())
	if _, err := cmd.Run(ctx); err != nil {
		return wrap(err)
	}
	return nil
}

func wrap(err error) error {
	if errors.Is(err, bwx.ErrClipboardUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", bwx.ErrClipboardUnavailable, err)
}
