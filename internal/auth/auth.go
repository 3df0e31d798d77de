// Package auth implements the ledger's authorization collaborator as a
// static operator-key allowlist loaded from config.
package auth

import (
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/config"
)

type StaticAuthorizer struct {
	operators map[string]struct{}
}

func NewStaticAuthorizer(cfg *config.LedgerConfig) *StaticAuthorizer {
	operators := make(map[string]struct{}, len(cfg.OperatorKeys))
	for _, key := range cfg.OperatorKeys {
		operators[key] = struct{}{}
	}
	return &StaticAuthorizer{operators: operators}
}

func (a *StaticAuthorizer) IsPrivileged(caller string) bool {
	_, ok := a.operators[caller]
	return ok
}
