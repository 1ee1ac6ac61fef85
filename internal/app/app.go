package app

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/msladek/bwx/internal/bwx"
	"github.com/msladek/bwx/internal/clipboard"
	"github.com/msladek/bwx/internal/config"
	"github.com/msladek/bwx/internal/encryption"
	"github.com/msladek/bwx/internal/scheduler"
	"github.com/msladek/bwx/internal/session"
	"github.com/msladek/bwx/internal/vault"
)

// Subcommands passed through to bw without resolving a session.
var sessionlessCommands = []string{"login", "logout", "config", "lock"}

// Flags that make bw print something and exit when no subcommand is given.
var infoFlags = []string{"--help", "-h", "--version", "-v"}

// BWXApp is the application layer between the CLI and BWXService.
// It constructs all dependencies from config and waits for inline clears
// on Close.
type BWXApp struct {
	cfg       *config.Config
	logger    bwx.Logger
	sessions  *session.FileStore
	clipboard *clipboard.CommandClipboard
	scheduler bwx.Scheduler
	service   *bwx.BWXService
}

// NewBWXApp creates a fully wired BWXApp from the given config.
// The caller must call Close when done.
func NewBWXApp(cfg *config.Config, logger bwx.Logger) (*BWXApp, error) {
	sealer, err := encryption.NewSealerFromConfig(cfg.SessionEncryption)
	if err != nil {
		return nil, fmt.Errorf("%w: creating sealer: %w", config.ErrInvalid, err)
	}
	sessions := session.NewFileStore(cfg.TransientPath(), sealer, logger)

	v, err := vault.NewVaultFromConfig(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: creating vault: %w", config.ErrInvalid, err)
	}

	cb := clipboard.NewClipboardFromConfig(cfg, logger)

	sched, err := scheduler.NewSchedulerFromConfig(cfg, cb, cb, bwx.RealClock{}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}

	svc := bwx.NewBWXService(sessions, v, cb, sched, logger, bwx.RealClock{}, bwx.UUIDGenerator{})
	svc.SetEnvToken(os.Getenv(bwx.SessionEnv))

	return &BWXApp{
		cfg:       cfg,
		logger:    logger,
		sessions:  sessions,
		clipboard: cb,
		scheduler: sched,
		service:   svc,
	}, nil
}

// Copy copies the object of the item named by words to target and arms
// the clear. Words are joined with spaces, so item names need no quoting.
func (a *BWXApp) Copy(ctx context.Context, words []string, object string, target bwx.Target) (*bwx.CopyResult, error) {
	item := strings.Join(words, " ")
	if strings.TrimSpace(item) == "" {
		return nil, fmt.Errorf("no item given")
	}
	return a.service.Copy(ctx, item, bwx.CopyOptions{
		Object:     object,
		Target:     target,
		ClearAfter: a.cfg.ClearTimeout(),
	})
}

// Unlock makes sure a usable session is stored.
func (a *BWXApp) Unlock(ctx context.Context) error {
	_, _, err := a.service.ResolveSession(ctx)
	return err
}

// Lock forgets the stored session. Pending clears keep running.
func (a *BWXApp) Lock() error {
	return a.service.Lock()
}

// Passthrough returns the argv and environment to exec bw with for args.
// No args shows bw's help, "pw ITEM" gets a password, and every command
// except login, logout, config and lock runs with a session exported in
// BW_SESSION. Global flags may precede the subcommand.
func (a *BWXApp) Passthrough(ctx context.Context, args []string) (argv []string, env []string, err error) {
	bwPath, err := exec.LookPath(a.cfg.BwCmd)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", bwx.ErrVaultUnavailable, a.cfg.BwCmd, err)
	}

	if len(args) == 0 {
		args = []string{"--help"}
	}
	i := subcommandIndex(args)
	if i >= 0 && args[i] == "pw" {
		args = slices.Concat(args[:i], []string{"get", "password"}, args[i+1:])
	}

	argv = append([]string{bwPath}, args...)
	env = os.Environ()
	if i >= 0 && slices.Contains(sessionlessCommands, args[i]) {
		return argv, env, nil
	}
	if i < 0 && slices.ContainsFunc(args, func(arg string) bool { return slices.Contains(infoFlags, arg) }) {
		return argv, env, nil
	}

	token, _, err := a.service.ResolveSession(ctx)
	if err != nil {
		return nil, nil, err
	}
	return argv, withSession(env, token), nil
}

// subcommandIndex returns the position of the bw subcommand in args, or -1
// if there are only flags.
func subcommandIndex(args []string) int {
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--session":
			i++ // takes a value
		case strings.HasPrefix(args[i], "-"):
		default:
			return i
		}
	}
	return -1
}

// SplitDebugFlag removes bwx's own -d/--debug from the flags preceding the
// bw subcommand. The root command does not parse flags, so they arrive here.
func SplitDebugFlag(args []string) (debug bool, rest []string) {
	end := subcommandIndex(args)
	if end < 0 {
		end = len(args)
	}
	rest = make([]string, 0, len(args))
	for i, arg := range args {
		if i < end && (arg == "-d" || arg == "--debug") {
			debug = true
			continue
		}
		rest = append(rest, arg)
	}
	return debug, rest
}

// withSession sets BW_SESSION in env, replacing any previous value.
func withSession(env []string, token string) []string {
	prefix := bwx.SessionEnv + "="
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if !strings.HasPrefix(kv, prefix) {
			out = append(out, kv)
		}
	}
	return append(out, prefix+token)
}

// Close waits for clears running in this process.
func (a *BWXApp) Close() error {
	a.scheduler.Wait()
	return nil
}

// InitSessionKey generates the age identity configured for sealing the
// session token and returns its path.
func InitSessionKey(cfg *config.Config) (string, error) {
	if cfg.SessionEncryption.Type != "age" {
		return "", fmt.Errorf("%w: session_encryption.type must be \"age\" to use a session key", config.ErrInvalid)
	}
	path := config.ExpandPath(cfg.SessionEncryption.IdentityPath)
	if err := encryption.NewAgeSealer(path).Setup(); err != nil {
		return "", err
	}
	return path, nil
}
