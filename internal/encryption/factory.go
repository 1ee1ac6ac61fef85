package encryption

import (
	"fmt"

	"github.com/msladek/bwx/internal/bwx"
	"github.com/msladek/bwx/internal/config"
)

// NewSealerFromConfig creates a Sealer based on the configuration type.
func NewSealerFromConfig(cfg config.SessionEncryptionConfig) (bwx.Sealer, error) {
	switch cfg.Type {
	case "none", "":
		return NoneSealer{}, nil
	case "age":
		if cfg.IdentityPath == "" {
			return nil, fmt.Errorf("age session encryption requires identity_path to be set")
		}
		return NewAgeSealer(config.ExpandPath(cfg.IdentityPath)), nil
	case "test":
		return TestSealer{}, nil
	default:
		return nil, fmt.Errorf("unknown session encryption type: %q", cfg.Type)
	}
}
