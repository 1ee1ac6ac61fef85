package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/msladek/bwx/internal/bwx"
	"github.com/msladek/bwx/internal/command"
)

// BitwardenCLI implements bwx.Vault by running the Bitwarden CLI.
//
// Unlock runs `bw unlock --raw` with the terminal attached so bw can prompt
// for the master password; its stderr is mirrored to the user. Fetch runs
// `bw get <object> <item>` non-interactively with the token in BW_SESSION,
// keeping the token off the command line.
type BitwardenCLI struct {
	cmd    string
	logger bwx.Logger

	stdin       io.Reader
	stderr      io.Writer
	interactive func() bool
}

var _ bwx.Vault = (*BitwardenCLI)(nil)

// NewBitwardenCLI creates a vault backed by the bw binary at cmd.
func NewBitwardenCLI(cmd string, logger bwx.Logger) *BitwardenCLI {
	return &BitwardenCLI{
		cmd:    cmd,
		logger: logger,
		stdin:  os.Stdin,
		stderr: os.Stderr,
		interactive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
}

// Unlock prompts for the master password through bw and returns the session token.
func (b *BitwardenCLI) Unlock(ctx context.Context) (string, error) {
	if !b.interactive() {
		return "", fmt.Errorf("%w: %w", bwx.ErrUnlockFailed, bwx.ErrNotInteractive)
	}

	c := command.Command{
		Path:   b.cmd,
		Args:   []string{"unlock", "--raw"},
		Stdin:  b.stdin,
		Stderr: b.stderr,
	}
	b.logger.Debug("running vault command", "cmd", c.String())

	res, err := c.Run(ctx)
	if err != nil {
		if errors.Is(err, command.ErrNotFound) {
			return "", fmt.Errorf("%w: %w", bwx.ErrVaultUnavailable, err)
		}
		return "", fmt.Errorf("%w: %s", bwx.ErrUnlockFailed, lastLine(res.Stderr, err))
	}

	token := strings.TrimSpace(res.Stdout)
	if token == "" {
		return "", fmt.Errorf("%w: no session token received", bwx.ErrUnlockFailed)
	}
	return token, nil
}

// Fetch returns one object of an item.
func (b *BitwardenCLI) Fetch(ctx context.Context, token, object, item string) (string, error) {
	if !validObject(object) {
		return "", fmt.Errorf("unknown object %q", object)
	}

	c := command.Command{
		Path: b.cmd,
		Args: []string{"get", object, "--nointeraction", "--", item},
		Env:  []string{bwx.SessionEnv + "=" + token},
	}
	b.logger.Debug("running vault command", "cmd", c.String())

	res, err := c.Run(ctx)
	if err != nil {
		if errors.Is(err, command.ErrNotFound) {
			return "", fmt.Errorf("%w: %w", bwx.ErrVaultUnavailable, err)
		}
		return "", classifyFetchError(item, res.Stderr, err)
	}

	return strings.TrimRight(res.Stdout, "\r\n"), nil
}

// classifyFetchError maps bw's error text onto the domain errors.
func classifyFetchError(item, stderr string, err error) error {
	msg := lastLine(stderr, err)
	lower := strings.ToLower(stderr)

	switch {
	case strings.Contains(lower, "vault is locked"),
		strings.Contains(lower, "session key is invalid"),
		strings.Contains(lower, "invalid session"):
		return fmt.Errorf("%w: %s", bwx.ErrSessionInvalid, msg)
	case strings.Contains(lower, "more than one result"):
		return fmt.Errorf("%w: %q", bwx.ErrAmbiguousItem, item)
	case strings.Contains(lower, "not found"):
		return fmt.Errorf("%w: %q", bwx.ErrItemNotFound, item)
	default:
		return fmt.Errorf("bw get: %s", msg)
	}
}

// lastLine returns the last non-empty line of stderr, where bw puts its
// error message.
func lastLine(stderr string, err error) string {
	lines := strings.Split(stderr, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return err.Error()
}

func validObject(object string) bool {
	for _, o := range bwx.Objects {
		if o == object {
			return true
		}
	}
	return false
}
