package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/msladek/bwx/internal/app"
	"github.com/msladek/bwx/internal/bwx"
	"github.com/msladek/bwx/internal/config"
	"github.com/msladek/bwx/internal/scheduler"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "bwx: %v\n", err)
		os.Exit(app.ExitCode(err))
	}
}

// newApp reads the config and creates a BWXApp. The caller must defer app.Close().
func newApp(debug bool) (*app.BWXApp, error) {
	cfg, err := app.LoadConfig(debug)
	if err != nil {
		return nil, err
	}
	return app.NewBWXApp(cfg, app.NewLogger(cfg.Debug))
}

func debugFlag(cmd *cobra.Command) bool {
	debug, _ := cmd.Flags().GetBool("debug")
	return debug
}

// signalContext is cancelled on SIGINT and SIGTERM, which also stops inline
// clears waiting in this process.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, unix.SIGTERM)
}

var rootCmd = &cobra.Command{
	Use:   "bwx [bw arguments]",
	Short: "Bitwarden CLI wrapper with session caching and clipboard clearing",
	Long: `bwx caches the Bitwarden session token for the login session and copies
secrets to the clipboard, clearing them again after a timeout.

Commands bwx does not know are passed to bw with the cached session.`,
	Args:               cobra.ArbitraryArgs,
	DisableFlagParsing: true,
	SilenceErrors:      true,
	SilenceUsage:       true,
	RunE: func(cmd *cobra.Command, args []string) error {
		debug, args := app.SplitDebugFlag(args)
		a, err := newApp(debug)
		if err != nil {
			return err
		}
		defer a.Close()

		argv, env, err := a.Passthrough(cmd.Context(), args)
		if err != nil {
			return err
		}
		return exec(argv, env)
	},
}

// exec replaces the process with argv.
func exec(argv, env []string) error {
	if err := unix.Exec(argv[0], argv, env); err != nil {
		return fmt.Errorf("%w: exec %s: %w", bwx.ErrVaultUnavailable, argv[0], err)
	}
	return nil
}

// cp command
var cpCmd = &cobra.Command{
	Use:     "cp ITEM...",
	Aliases: []string{"copy"},
	Short:   "Copy an item's secret and clear it after the timeout",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		primary, _ := cmd.Flags().GetBool("primary")
		object, _ := cmd.Flags().GetString("object")

		target := bwx.TargetClipboard
		if primary {
			target = bwx.TargetPrimary
		}

		// Created first so Close waits for inline clears before stop
		// cancels them.
		ctx, stop := signalContext(cmd)
		defer stop()

		a, err := newApp(debugFlag(cmd))
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.Copy(ctx, args, object, target); err != nil {
			return err
		}
		return nil
	},
}

// unlock command
var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Unlock the vault and cache the session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(debugFlag(cmd))
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Unlock(cmd.Context())
	},
}

// lock command
var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Forget the cached session and lock the vault",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(debugFlag(cmd))
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Lock(); err != nil {
			return err
		}
		argv, env, err := a.Passthrough(cmd.Context(), []string{"lock"})
		if err != nil {
			return err
		}
		return exec(argv, env)
	},
}

// session-key command
var sessionKeyCmd = &cobra.Command{
	Use:   "session-key",
	Short: "Manage the key sealing the cached session",
}

var sessionKeyInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the age identity for session_encryption",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		debug := debugFlag(cmd)
		cfg, err := app.LoadConfig(debug)
		if err != nil {
			return err
		}

		path, err := app.InitSessionKey(cfg)
		if err != nil {
			return err
		}
		fmt.Printf("Session key written to %s\n", path)
		return nil
	},
}

// clear-unit command, run by detached clear processes
var clearUnitCmd = &cobra.Command{
	Use:    scheduler.ClearUnitCommand,
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		targetName, _ := cmd.Flags().GetString("target")
		id, _ := cmd.Flags().GetString("id")
		armedAt, _ := cmd.Flags().GetInt64("armed-at")
		delay, _ := cmd.Flags().GetDuration("delay")

		target, err := bwx.ParseTarget(targetName)
		if err != nil {
			return err
		}
		if id == "" {
			return fmt.Errorf("--id is required")
		}

		debug := debugFlag(cmd)
		cfg, err := config.Load(app.ConfigPaths())
		if err != nil {
			return err
		}
		cfg.Debug = cfg.Debug || debug

		// Detached units have no terminal to lose.
		signal.Ignore(unix.SIGHUP)
		ctx, stop := signalContext(cmd)
		defer stop()

		app.RunClearUnit(ctx, cfg, bwx.ClearRequest{
			ID:          id,
			Target:      target,
			ArmedAt:     time.Unix(0, armedAt),
			Delay:       delay,
			Fingerprint: readFingerprint(os.Stdin),
		})
		return nil
	},
}

// readFingerprint reads the fingerprint handed over on stdin by the arming
// process. A terminal on stdin means the unit was started by hand.
func readFingerprint(f *os.File) string {
	if term.IsTerminal(int(f.Fd())) {
		return ""
	}
	line, err := bufio.NewReader(io.LimitReader(f, 256)).ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimSpace(line)
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Log debug output to stderr")

	// root commands
	rootCmd.AddCommand(cpCmd)
	cpCmd.Flags().BoolP("primary", "p", false, "Copy to the primary selection instead of the clipboard")
	cpCmd.Flags().StringP("object", "o", bwx.ObjectPassword, "Object to copy: "+strings.Join(bwx.Objects, ", "))
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(lockCmd)

	// session-key subcommands
	sessionKeyCmd.AddCommand(sessionKeyInitCmd)
	rootCmd.AddCommand(sessionKeyCmd)

	rootCmd.AddCommand(clearUnitCmd)
	clearUnitCmd.Flags().String("target", string(bwx.TargetClipboard), "Clipboard target")
	clearUnitCmd.Flags().String("id", "", "Unit id")
	clearUnitCmd.Flags().Int64("armed-at", 0, "Arm time in Unix nanoseconds")
	clearUnitCmd.Flags().Duration("delay", 0, "Delay after arm time")
}
