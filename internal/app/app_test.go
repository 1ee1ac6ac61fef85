package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/msladek/bwx/internal/bwx"
	"github.com/msladek/bwx/internal/config"
	"github.com/msladek/bwx/internal/testutil"
)

const fakeBW = `#!/bin/sh
case "$1" in
get)
	if [ "$BW_SESSION" != "tok-123" ]; then
		echo "Vault is locked." >&2
		exit 1
	fi
	case "$5" in
	"my github") printf '%s\n' "s3cret" ;;
	*) echo "Not found." >&2; exit 1 ;;
	esac
	;;
esac
`

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv(bwx.SessionEnv, "")

	bw := filepath.Join(t.TempDir(), "bw")
	if err := os.WriteFile(bw, []byte(fakeBW), 0700); err != nil {
		t.Fatal(err)
	}
	clip := t.TempDir()

	cfg := config.Default()
	cfg.TransientDir = testutil.PrivateDir(t)
	cfg.BwCmd = bw
	cfg.ClipboardCopyCmd = []string{"sh", "-c", `cat > "$1/${2:-clipboard}"`, "sh", clip}
	cfg.ClipboardClearCmd = []string{"sh", "-c", `: > "$1/${2:-clipboard}"`, "sh", clip}
	cfg.ClipboardPasteCmd = []string{"sh", "-c", `cat "$1/${2:-clipboard}"`, "sh", clip}
	cfg.ClipboardTargetFlags = map[string][]string{"primary": {"primary"}}
	cfg.ClipboardClearMode = config.ClearModeInline
	cfg.ClipboardClearTimeout = 0
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *BWXApp {
	t.Helper()
	a, err := NewBWXApp(cfg, bwx.NewNopLogger())
	if err != nil {
		t.Fatalf("NewBWXApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestBWXApp_Copy(t *testing.T) {
	cfg := newTestConfig(t)
	a := newTestApp(t, cfg)
	if err := a.sessions.Save("tok-123"); err != nil {
		t.Fatal(err)
	}

	res, err := a.Copy(context.Background(), []string{"my", "github"}, "", bwx.TargetClipboard)
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if res.State != bwx.StateClearArmed {
		t.Errorf("State = %s, want CLEAR_ARMED", res.State)
	}

	a.Close()

	got, err := a.clipboard.Read(context.Background(), bwx.TargetClipboard)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != "" {
		t.Errorf("clipboard after clear = %q, want empty", got)
	}
}

func TestBWXApp_Copy_Errors(t *testing.T) {
	cfg := newTestConfig(t)
	a := newTestApp(t, cfg)
	if err := a.sessions.Save("tok-123"); err != nil {
		t.Fatal(err)
	}

	if _, err := a.Copy(context.Background(), nil, "", bwx.TargetClipboard); err == nil {
		t.Error("Copy() without item expected error")
	}

	_, err := a.Copy(context.Background(), []string{"gitlab"}, "", bwx.TargetClipboard)
	if !errors.Is(err, bwx.ErrItemNotFound) {
		t.Errorf("Copy() error = %v, want ErrItemNotFound", err)
	}
	if code := ExitCode(err); code != ExitNotFound {
		t.Errorf("ExitCode() = %d, want %d", code, ExitNotFound)
	}
}

func TestBWXApp_Passthrough(t *testing.T) {
	cfg := newTestConfig(t)
	a := newTestApp(t, cfg)
	if err := a.sessions.Save("tok-123"); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	tests := []struct {
		name        string
		args        []string
		wantArgs    []string
		wantSession bool
	}{
		{name: "no args shows help", args: nil, wantArgs: []string{"--help"}},
		{name: "pw alias", args: []string{"pw", "github"}, wantArgs: []string{"get", "password", "github"}, wantSession: true},
		{name: "session command", args: []string{"list", "items"}, wantArgs: []string{"list", "items"}, wantSession: true},
		{name: "login", args: []string{"login"}, wantArgs: []string{"login"}},
		{name: "logout", args: []string{"logout"}, wantArgs: []string{"logout"}},
		{name: "config", args: []string{"config", "server"}, wantArgs: []string{"config", "server"}},
		{name: "lock", args: []string{"lock"}, wantArgs: []string{"lock"}},
		{name: "version flag", args: []string{"--version"}, wantArgs: []string{"--version"}},
		{name: "help flag", args: []string{"--pretty", "-h"}, wantArgs: []string{"--pretty", "-h"}},
		{name: "global flag before command", args: []string{"--pretty", "list", "items"}, wantArgs: []string{"--pretty", "list", "items"}, wantSession: true},
		{name: "global flag before login", args: []string{"--nointeraction", "login"}, wantArgs: []string{"--nointeraction", "login"}},
		{name: "session flag value is not the command", args: []string{"--session", "lock", "sync"}, wantArgs: []string{"--session", "lock", "sync"}, wantSession: true},
		{name: "pw alias after flag", args: []string{"--raw", "pw", "github"}, wantArgs: []string{"--raw", "get", "password", "github"}, wantSession: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			argv, env, err := a.Passthrough(ctx, tt.args)
			if err != nil {
				t.Fatalf("Passthrough() error = %v", err)
			}
			if argv[0] != cfg.BwCmd {
				t.Errorf("argv[0] = %q, want %q", argv[0], cfg.BwCmd)
			}
			if !slices.Equal(argv[1:], tt.wantArgs) {
				t.Errorf("args = %v, want %v", argv[1:], tt.wantArgs)
			}
			hasSession := slices.Contains(env, bwx.SessionEnv+"=tok-123")
			if hasSession != tt.wantSession {
				t.Errorf("session exported = %v, want %v", hasSession, tt.wantSession)
			}
		})
	}
}

func TestSplitDebugFlag(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantDebug bool
		wantRest  []string
	}{
		{name: "no flags", args: []string{"list", "items"}, wantRest: []string{"list", "items"}},
		{name: "short flag", args: []string{"-d", "list"}, wantDebug: true, wantRest: []string{"list"}},
		{name: "long flag among bw flags", args: []string{"--pretty", "--debug", "list"}, wantDebug: true, wantRest: []string{"--pretty", "list"}},
		{name: "after the subcommand belongs to bw", args: []string{"list", "-d"}, wantRest: []string{"list", "-d"}},
		{name: "only the flag", args: []string{"-d"}, wantDebug: true, wantRest: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			debug, rest := SplitDebugFlag(tt.args)
			if debug != tt.wantDebug {
				t.Errorf("debug = %v, want %v", debug, tt.wantDebug)
			}
			if !slices.Equal(rest, tt.wantRest) {
				t.Errorf("rest = %v, want %v", rest, tt.wantRest)
			}
		})
	}
}

func TestBWXApp_Passthrough_MissingBw(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.BwCmd = "bwx-no-such-bw"
	a := newTestApp(t, cfg)

	_, _, err := a.Passthrough(context.Background(), []string{"list"})
	if !errors.Is(err, bwx.ErrVaultUnavailable) {
		t.Errorf("Passthrough() error = %v, want ErrVaultUnavailable", err)
	}
}

func TestBWXApp_Lock(t *testing.T) {
	cfg := newTestConfig(t)
	a := newTestApp(t, cfg)
	if err := a.sessions.Save("tok-123"); err != nil {
		t.Fatal(err)
	}

	if err := a.Lock(); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	if _, ok := a.sessions.Load(); ok {
		t.Error("session still stored after Lock()")
	}
}

func TestWithSession(t *testing.T) {
	env := withSession([]string{"HOME=/home/u", "BW_SESSION=old"}, "new")

	if slices.Contains(env, "BW_SESSION=old") {
		t.Error("old session kept")
	}
	n := 0
	for _, kv := range env {
		if strings.HasPrefix(kv, "BW_SESSION=") {
			n++
		}
	}
	if n != 1 || !slices.Contains(env, "BW_SESSION=new") {
		t.Errorf("env = %v", env)
	}
}

func TestInitSessionKey(t *testing.T) {
	cfg := config.Default()

	if _, err := InitSessionKey(cfg); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("InitSessionKey() without age error = %v, want ErrInvalid", err)
	}

	cfg.SessionEncryption.Type = "age"
	cfg.SessionEncryption.IdentityPath = filepath.Join(t.TempDir(), "bwx", "session.key")

	path, err := InitSessionKey(cfg)
	if err != nil {
		t.Fatalf("InitSessionKey() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "AGE-SECRET-KEY-") {
		t.Error("identity file has no secret key")
	}

	if _, err := InitSessionKey(cfg); err == nil {
		t.Error("second InitSessionKey() expected error")
	}
}

func TestRunClearUnit(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Debug = true
	a := newTestApp(t, cfg)
	ctx := context.Background()

	if err := a.clipboard.Copy(ctx, bwx.TargetPrimary, "s3cret"); err != nil {
		t.Fatal(err)
	}

	RunClearUnit(ctx, cfg, bwx.ClearRequest{
		ID:          "unit-1",
		Target:      bwx.TargetPrimary,
		ArmedAt:     bwx.RealClock{}.Now(),
		Fingerprint: bwx.Fingerprint("s3cret"),
	})

	got, err := a.clipboard.Read(ctx, bwx.TargetPrimary)
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("primary after unit = %q, want empty", got)
	}
	data, err := os.ReadFile(filepath.Join(cfg.TransientPath(), ClearLogName))
	if err != nil {
		t.Fatalf("reading clear log: %v", err)
	}
	if !strings.Contains(string(data), "cleared") {
		t.Errorf("clear log = %q", data)
	}
}
