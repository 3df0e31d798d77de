package config

import "fmt"

// LedgerConfig configures the ledger's authorization collaborator.
// OperatorKeys is the static allowlist of privileged caller keys for
// administrative operations.
type LedgerConfig struct {
	OperatorKeys []string `mapstructure:"operator-keys"`
}

func (cfg *LedgerConfig) Validate() error {
	if len(cfg.OperatorKeys) == 0 {
		return fmt.Errorf("at least one operator key is required")
	}
	for _, key := range cfg.OperatorKeys {
		if key == "" {
			return fmt.Errorf("operator keys must not be empty")
		}
	}

	return nil
}
