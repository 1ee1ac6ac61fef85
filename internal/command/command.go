// Package command runs external programs described as argument vectors.
// Nothing is ever passed through a shell, so item names and secrets cannot
// be interpreted as shell syntax.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"strings"
	"time"
)

// outputDelay bounds how long Run waits for output pipes after the program
// exits. Clipboard tools such as xclip leave a background child holding them.
const outputDelay = 500 * time.Millisecond

// ErrNotFound is returned when the program cannot be started because it
// does not exist or is not executable.
var ErrNotFound = errors.New("command not found")

// Command describes one invocation of an external program.
type Command struct {
	Path string
	Args []string

	// Env is appended to the current environment.
	Env []string

	// Stdin feeds the program's standard input. Nil means no input.
	Stdin io.Reader

	// Stderr, when set, receives the program's standard error as it is
	// produced, in addition to it being captured in the Result.
	Stderr io.Writer
}

// New builds a Command from an argument vector with extra trailing args.
func New(argv []string, extra ...string) Command {
	if len(argv) == 0 {
		return Command{}
	}
	args := make([]string, 0, len(argv)-1+len(extra))
	args = append(args, argv[1:]...)
	args = append(args, extra...)
	return Command{Path: argv[0], Args: args}
}

// String renders the command for logs. Arguments are shown, stdin is not.
func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Result holds the outcome of a finished command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// ExitError is returned when a command ran but exited non-zero.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Command, e.ExitCode, msg)
}

// Run executes the command, capturing stdout and stderr. The returned error
// wraps ErrNotFound when the program could not be started and is an
// *ExitError when it exited non-zero; the Result is filled in either way.
func (c Command) Run(ctx context.Context) (*Result, error) {
	if c.Path == "" {
		return nil, fmt.Errorf("%w: empty command", ErrNotFound)
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	cmd.Stdin = c.Stdin
	cmd.WaitDelay = outputDelay

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	if c.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&errBuf, c.Stderr)
	} else {
		cmd.Stderr = &errBuf
	}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, exec.ErrDot) ||
			errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return &Result{ExitCode: -1}, fmt.Errorf("%w: %s: %w", ErrNotFound, c.Path, err)
		}
		return &Result{ExitCode: -1}, fmt.Errorf("starting %s: %w", c.Path, err)
	}

	waitErr := cmd.Wait()

	res := &Result{
		Stdout: outBuf.String(),
		Stderr: errBuf.String(),
	}
	if errors.Is(waitErr, exec.ErrWaitDelay) {
		waitErr = nil
	}
	if waitErr != nil {
		var ee *exec.ExitError
		if errors.As(waitErr, &ee) {
			res.ExitCode = ee.ExitCode()
			return res, &ExitError{Command: c.Path, ExitCode: res.ExitCode, Stderr: res.Stderr}
		}
		res.ExitCode = -1
		return res, fmt.Errorf("running %s: %w", c.Path, waitErr)
	}
	return res, nil
}
