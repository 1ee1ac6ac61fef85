package vault

import (
	"fmt"

	"github.com/msladek/bwx/internal/bwx"
	"github.com/msladek/bwx/internal/config"
)

// NewVaultFromConfig creates the Vault for the configured bw binary.
func NewVaultFromConfig(cfg *config.Config, logger bwx.Logger) (bwx.Vault, error) {
	if cfg.BwCmd == "" {
		return nil, fmt.Errorf("vault requires bw_cmd to be set")
	}
	return NewBitwardenCLI(cfg.BwCmd, logger), nil
}
