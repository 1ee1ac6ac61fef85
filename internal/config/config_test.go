package config

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func stubLookPath(t *testing.T, missing ...string) {
	t.Helper()
	orig := lookPath
	lookPath = func(name string) (string, error) {
		for _, m := range missing {
			if m == name {
				return "", exec.ErrNotFound
			}
		}
		return "/usr/bin/" + name, nil
	}
	t.Cleanup(func() { lookPath = orig })
}

func TestDefault(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1234")

	cfg := Default()

	if cfg.TransientDir != "/run/user/1234" {
		t.Errorf("TransientDir = %q, want %q", cfg.TransientDir, "/run/user/1234")
	}
	if cfg.BwCmd != "bw" {
		t.Errorf("BwCmd = %q, want %q", cfg.BwCmd, "bw")
	}
	if cfg.ClipboardClearTimeout != 30 {
		t.Errorf("ClipboardClearTimeout = %d, want 30", cfg.ClipboardClearTimeout)
	}
	if cfg.ClipboardClearMode != ClearModeDetached {
		t.Errorf("ClipboardClearMode = %q, want %q", cfg.ClipboardClearMode, ClearModeDetached)
	}
	if !cfg.ClipboardVerifyBeforeClear {
		t.Error("ClipboardVerifyBeforeClear = false, want true")
	}
	if cfg.CopyEnabled() || cfg.ClearEnabled() {
		t.Error("clipboard commands should be disabled by default")
	}
}

func TestDefault_NoRuntimeDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")

	cfg := Default()

	want := "/run/user/" + strconv.Itoa(os.Getuid())
	if cfg.TransientDir != want {
		t.Errorf("TransientDir = %q, want %q", cfg.TransientDir, want)
	}
}

func TestManager_Read(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		input  string
	}{
		{
			name:   "yaml",
			format: FormatYAML,
			input: `
debug: true
bw_cmd: /opt/bw
clipboard_copy_cmd: ["xclip", "-in"]
clipboard_clear_cmd: ["xclip", "-in", "/dev/null"]
clipboard_target_flags:
  primary: ["-selection", "primary"]
clipboard_clear_timeout: 45
session_encryption:
  type: age
  identity_path: /home/user/.config/bwx/session.key
`,
		},
		{
			name:   "toml",
			format: FormatTOML,
			input: `
debug = true
bw_cmd = "/opt/bw"
clipboard_copy_cmd = ["xclip", "-in"]
clipboard_clear_cmd = ["xclip", "-in", "/dev/null"]
clipboard_clear_timeout = 45

[clipboard_target_flags]
primary = ["-selection", "primary"]

[session_encryption]
type = "age"
identity_path = "/home/user/.config/bwx/session.key"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			m := &Manager{}

			if err := m.Read(strings.NewReader(tt.input), tt.format, cfg); err != nil {
				t.Fatalf("Read() error = %v", err)
			}

			if !cfg.Debug {
				t.Error("Debug = false, want true")
			}
			if cfg.BwCmd != "/opt/bw" {
				t.Errorf("BwCmd = %q, want %q", cfg.BwCmd, "/opt/bw")
			}
			if len(cfg.ClipboardCopyCmd) != 2 || cfg.ClipboardCopyCmd[0] != "xclip" {
				t.Errorf("ClipboardCopyCmd = %v", cfg.ClipboardCopyCmd)
			}
			if got := cfg.ClipboardTargetFlags["primary"]; len(got) != 2 || got[1] != "primary" {
				t.Errorf("ClipboardTargetFlags[primary] = %v", got)
			}
			if cfg.ClearTimeout() != 45*time.Second {
				t.Errorf("ClearTimeout() = %v, want 45s", cfg.ClearTimeout())
			}
			if cfg.SessionEncryption.Type != "age" {
				t.Errorf("SessionEncryption.Type = %q, want %q", cfg.SessionEncryption.Type, "age")
			}
			// Keys not present keep their defaults.
			if cfg.ClipboardClearMode != ClearModeDetached {
				t.Errorf("ClipboardClearMode = %q, want default %q", cfg.ClipboardClearMode, ClearModeDetached)
			}
		})
	}
}

func TestManager_Read_Errors(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		input  string
	}{
		{name: "unknown yaml key", format: FormatYAML, input: "clipboard_timeout: 5\n"},
		{name: "unknown toml key", format: FormatTOML, input: "clipboard_timeout = 5\n"},
		{name: "malformed yaml", format: FormatYAML, input: "debug: [\n"},
		{name: "wrong yaml type", format: FormatYAML, input: "clipboard_clear_timeout: soon\n"},
		{name: "malformed toml", format: FormatTOML, input: "debug = \n"},
		{name: "unknown format", format: Format("ini"), input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Manager{}
			if err := m.Read(strings.NewReader(tt.input), tt.format, Default()); err == nil {
				t.Error("Read() expected error")
			}
		})
	}
}

func TestManager_Read_EmptyYAML(t *testing.T) {
	cfg := Default()
	m := &Manager{}
	if err := m.Read(strings.NewReader(""), FormatYAML, cfg); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if cfg.BwCmd != "bw" {
		t.Errorf("BwCmd = %q, want default", cfg.BwCmd)
	}
}

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{path: "/etc/bwx.yml", want: FormatYAML},
		{path: "/etc/bwx.YAML", want: FormatYAML},
		{path: "/home/u/.config/bwx.toml", want: FormatTOML},
		{path: "/etc/bwx.json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatForPath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FormatForPath() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("FormatForPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("later files override earlier ones", func(t *testing.T) {
		dir := t.TempDir()
		system := filepath.Join(dir, "system.yml")
		user := filepath.Join(dir, "user.toml")
		writeFile(t, system, "bw_cmd: /usr/bin/bw\nclipboard_clear_timeout: 10\nclipboard_copy_cmd: [wl-copy]\n")
		writeFile(t, user, "clipboard_clear_timeout = 20\n")

		cfg, err := Load([]string{system, filepath.Join(dir, "missing.yaml"), user})
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.BwCmd != "/usr/bin/bw" {
			t.Errorf("BwCmd = %q, want %q", cfg.BwCmd, "/usr/bin/bw")
		}
		if cfg.ClipboardClearTimeout != 20 {
			t.Errorf("ClipboardClearTimeout = %d, want 20", cfg.ClipboardClearTimeout)
		}
		if !cfg.CopyEnabled() {
			t.Error("CopyEnabled() = false, want true")
		}
	})

	t.Run("no files yields defaults", func(t *testing.T) {
		cfg, err := Load(nil)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.ClipboardClearTimeout != DefaultClearTimeout {
			t.Errorf("ClipboardClearTimeout = %d, want %d", cfg.ClipboardClearTimeout, DefaultClearTimeout)
		}
	})

	t.Run("malformed file is a configuration error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bwx.yaml")
		writeFile(t, path, "debug: [\n")

		_, err := Load([]string{path})
		if !errors.Is(err, ErrInvalid) {
			t.Fatalf("Load() error = %v, want ErrInvalid", err)
		}
	})
}

func TestExpandPath(t *testing.T) {
	t.Setenv("BWX_TEST_DIR", "/run/user/7")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		in   string
		want string
	}{
		{in: "$BWX_TEST_DIR/bwx", want: "/run/user/7/bwx"},
		{in: "~/run", want: filepath.Join(home, "run")},
		{in: "/abs/path", want: "/abs/path"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ExpandPath(tt.in); got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func(t *testing.T) *Config {
		cfg := Default()
		cfg.TransientDir = filepath.Join(t.TempDir(), "bwx")
		cfg.ClipboardCopyCmd = []string{"xclip", "-in"}
		cfg.ClipboardClearCmd = []string{"xclip", "-in", "/dev/null"}
		return cfg
	}

	t.Run("valid config creates transient dir", func(t *testing.T) {
		stubLookPath(t)
		cfg := valid(t)

		if err := cfg.Validate(); err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		info, err := os.Stat(cfg.TransientPath())
		if err != nil {
			t.Fatalf("transient dir not created: %v", err)
		}
		if info.Mode().Perm() != 0700 {
			t.Errorf("transient dir mode = %04o, want 0700", info.Mode().Perm())
		}
	})

	t.Run("zero timeout is allowed", func(t *testing.T) {
		stubLookPath(t)
		cfg := valid(t)
		cfg.ClipboardClearTimeout = 0
		if err := cfg.Validate(); err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
	})

	tests := []struct {
		name    string
		missing []string
		mutate  func(*Config)
	}{
		{name: "empty transient dir", mutate: func(c *Config) { c.TransientDir = " " }},
		{name: "missing bw", missing: []string{"bw"}},
		{name: "missing clipboard tool", missing: []string{"xclip"}},
		{name: "negative timeout", mutate: func(c *Config) { c.ClipboardClearTimeout = -1 }},
		{name: "unknown clear mode", mutate: func(c *Config) { c.ClipboardClearMode = "cron" }},
		{name: "unknown target", mutate: func(c *Config) { c.ClipboardTargetFlags["secondary"] = []string{"-s"} }},
		{name: "age without identity", mutate: func(c *Config) { c.SessionEncryption.Type = "age" }},
		{name: "unknown encryption", mutate: func(c *Config) { c.SessionEncryption.Type = "rot13" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubLookPath(t, tt.missing...)
			cfg := valid(t)
			if tt.mutate != nil {
				tt.mutate(cfg)
			}

			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate() error = %v, want ErrInvalid", err)
			}
		})
	}
}
