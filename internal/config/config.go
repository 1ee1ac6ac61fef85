package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/msladek/bwx/internal/fs"
)

// ErrInvalid marks configuration that cannot be loaded or used.
var ErrInvalid = errors.New("invalid configuration")

// Clear modes.
const (
	ClearModeDetached = "detached"
	ClearModeInline   = "inline"
)

// DefaultClearTimeout is the clear delay in seconds when none is configured.
const DefaultClearTimeout = 30

// Config represents the configuration for bwx. Every key has the same name
// in YAML and TOML files.
type Config struct {
	Debug        bool   `yaml:"debug" toml:"debug"`
	TransientDir string `yaml:"transient_dir" toml:"transient_dir"`
	BwCmd        string `yaml:"bw_cmd" toml:"bw_cmd"`

	// Clipboard commands are argument vectors; an empty vector disables the step.
	ClipboardCopyCmd  []string `yaml:"clipboard_copy_cmd" toml:"clipboard_copy_cmd"`
	ClipboardClearCmd []string `yaml:"clipboard_clear_cmd" toml:"clipboard_clear_cmd"`
	ClipboardPasteCmd []string `yaml:"clipboard_paste_cmd" toml:"clipboard_paste_cmd"`

	// ClipboardTargetFlags maps a target name to arguments appended to every
	// clipboard command run for that target.
	ClipboardTargetFlags map[string][]string `yaml:"clipboard_target_flags" toml:"clipboard_target_flags"`

	ClipboardClearTimeout      int    `yaml:"clipboard_clear_timeout" toml:"clipboard_clear_timeout"` // seconds
	ClipboardClearMode         string `yaml:"clipboard_clear_mode" toml:"clipboard_clear_mode"`       // "detached" (default) or "inline"
	ClipboardVerifyBeforeClear bool   `yaml:"clipboard_verify_before_clear" toml:"clipboard_verify_before_clear"`

	SessionEncryption SessionEncryptionConfig `yaml:"session_encryption" toml:"session_encryption"`
}

// SessionEncryptionConfig selects how the session token is protected at rest.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type SessionEncryptionConfig struct {
	Type         string `yaml:"type" toml:"type"`                   // "none" (default) or "age"
	IdentityPath string `yaml:"identity_path" toml:"identity_path"` // only used for type=age
}

// Default returns the configuration used before any file is applied.
func Default() *Config {
	return &Config{
		TransientDir:               defaultTransientDir(),
		BwCmd:                      "bw",
		ClipboardTargetFlags:       map[string][]string{},
		ClipboardClearTimeout:      DefaultClearTimeout,
		ClipboardClearMode:         ClearModeDetached,
		ClipboardVerifyBeforeClear: true,
		SessionEncryption:          SessionEncryptionConfig{Type: "none"},
	}
}

func defaultTransientDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	return fmt.Sprintf("/run/user/%d", os.Getuid())
}

// Format is a configuration file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatForPath picks the syntax from the file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported config file extension: %s", path)
	}
}

// Manager handles reading configuration.
type Manager struct{}

// Read decodes configuration from r on top of cfg. Keys absent from r keep
// their current values; unknown keys are rejected.
func (m *Manager) Read(r io.Reader, format Format, cfg *Config) error {
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to decode config: %w", err)
		}
	case FormatTOML:
		md, err := toml.NewDecoder(r).Decode(cfg)
		if err != nil {
			return fmt.Errorf("failed to decode config: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("failed to decode config: unknown key %q", undecoded[0].String())
		}
	default:
		return fmt.Errorf("unknown config format: %q", format)
	}
	return nil
}

// ReadFromFile applies the file at path on top of cfg.
func ReadFromFile(path string, cfg *Config) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Read(f, format, cfg); err != nil {
		return fmt.Errorf("reading config from %s: %w", path, err)
	}
	return nil
}

// Load starts from Default and applies each existing file in paths in order,
// so later files override earlier ones. Missing files are skipped.
func Load(paths []string) (*Config, error) {
	cfg := Default()
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		if info.IsDir() {
			continue
		}
		if err := ReadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	return cfg, nil
}

// ExpandPath expands environment variables and a leading ~ in p.
func ExpandPath(p string) string {
	p = os.ExpandEnv(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// TransientPath returns the expanded transient directory.
func (c *Config) TransientPath() string {
	return ExpandPath(c.TransientDir)
}

func (c *Config) CopyEnabled() bool { return len(c.ClipboardCopyCmd) > 0 }

func (c *Config) ClearEnabled() bool { return len(c.ClipboardClearCmd) > 0 }

// ClearTimeout returns the configured clear delay.
func (c *Config) ClearTimeout() time.Duration {
	return time.Duration(c.ClipboardClearTimeout) * time.Second
}

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// Validate checks the configuration and creates the transient directory.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.TransientDir) == "" {
		return fmt.Errorf("%w: transient directory not set", ErrInvalid)
	}
	if c.BwCmd == "" {
		return fmt.Errorf("%w: bw_cmd not set", ErrInvalid)
	}
	if _, err := lookPath(c.BwCmd); err != nil {
		return fmt.Errorf("%w: command '%s' not found", ErrInvalid, c.BwCmd)
	}
	for _, cmd := range [][]string{c.ClipboardCopyCmd, c.ClipboardClearCmd, c.ClipboardPasteCmd} {
		if len(cmd) == 0 {
			continue
		}
		if _, err := lookPath(cmd[0]); err != nil {
			return fmt.Errorf("%w: command '%s' not found", ErrInvalid, cmd[0])
		}
	}
	if c.ClipboardClearTimeout < 0 {
		return fmt.Errorf("%w: clipboard clear timeout must not be negative", ErrInvalid)
	}
	for target := range c.ClipboardTargetFlags {
		if target != "clipboard" && target != "primary" {
			return fmt.Errorf("%w: unknown clipboard target %q in clipboard_target_flags", ErrInvalid, target)
		}
	}
	switch c.ClipboardClearMode {
	case ClearModeDetached, ClearModeInline:
	default:
		return fmt.Errorf("%w: unknown clipboard clear mode %q", ErrInvalid, c.ClipboardClearMode)
	}
	switch c.SessionEncryption.Type {
	case "none", "":
	case "age":
		if c.SessionEncryption.IdentityPath == "" {
			return fmt.Errorf("%w: age session encryption requires identity_path to be set", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown session encryption type %q", ErrInvalid, c.SessionEncryption.Type)
	}

	if err := fs.EnsurePrivateDir(c.TransientPath()); err != nil {
		return fmt.Errorf("%w: transient directory: %w", ErrInvalid, err)
	}
	return nil
}
