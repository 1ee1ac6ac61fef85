package app

import (
	"os"
	"path/filepath"

	"github.com/msladek/bwx/internal/config"
)

// ConfigPathEnv names an extra config file applied after all others.
const ConfigPathEnv = "BWX_CONFIG_PATH"

// ConfigPaths returns the config file locations in the order they are
// applied:
//   - /etc/bwx.{yml,yaml,toml}
//   - ~/.config/bwx.{yml,yaml,toml}
//   - $BWX_CONFIG_PATH, when set
func ConfigPaths() []string {
	exts := []string{".yml", ".yaml", ".toml"}

	var paths []string
	for _, ext := range exts {
		paths = append(paths, filepath.Join("/etc", "bwx"+ext))
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		for _, ext := range exts {
			paths = append(paths, filepath.Join(homeDir, ".config", "bwx"+ext))
		}
	}
	if path := os.Getenv(ConfigPathEnv); path != "" {
		paths = append(paths, path)
	}
	return paths
}

// LoadConfig reads and validates the layered configuration. debug forces
// debug mode on regardless of the files.
func LoadConfig(debug bool) (*config.Config, error) {
	cfg, err := config.Load(ConfigPaths())
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
