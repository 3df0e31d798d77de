package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/babylonlabs-io/staking-rewards-ledger/internal/db"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/ledger"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/observability/metrics"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/types"
)

type poolResponse struct {
	ID                  uint64 `json:"id"`
	StakingAsset        string `json:"staking_asset"`
	RewardAsset         string `json:"reward_asset"`
	TotalStaked         string `json:"total_staked"`
	RewardRatePerSecond string `json:"reward_rate_per_second"`
	LastSettlementTime  uint64 `json:"last_settlement_time"`
	AccRewardPerShare   string `json:"acc_reward_per_share"`
	Active              bool   `json:"active"`
}

func newPoolResponse(p *ledger.Pool) *poolResponse {
	return &poolResponse{
		ID:                  p.ID,
		StakingAsset:        p.StakingAsset,
		RewardAsset:         p.RewardAsset,
		TotalStaked:         p.TotalStaked.String(),
		RewardRatePerSecond: p.RewardRatePerSecond.String(),
		LastSettlementTime:  p.LastSettlementTime,
		AccRewardPerShare:   p.AccRewardPerShare.String(),
		Active:              p.Active,
	}
}

type positionResponse struct {
	Amount        string `json:"amount"`
	RewardDebt    string `json:"reward_debt"`
	LastStakeTime uint64 `json:"last_stake_time"`
}

func newPositionResponse(p *ledger.Position) *positionResponse {
	return &positionResponse{
		Amount:        p.Amount.String(),
		RewardDebt:    p.RewardDebt.String(),
		LastStakeTime: p.LastStakeTime,
	}
}

type poolPositionResponse struct {
	Account       string `json:"account"`
	Amount        string `json:"amount"`
	RewardDebt    string `json:"reward_debt"`
	LastStakeTime uint64 `json:"last_stake_time"`
}

func newPoolPositionsResponse(records []ledger.PositionRecord) []poolPositionResponse {
	out := make([]poolPositionResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, poolPositionResponse{
			Account:       rec.Account,
			Amount:        rec.Position.Amount.String(),
			RewardDebt:    rec.Position.RewardDebt.String(),
			LastStakeTime: rec.Position.LastStakeTime,
		})
	}
	return out
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps the ledger error taxonomy onto HTTP statuses. Every
// error already aborted the whole operation, so a non-2xx response
// always means zero observable state change.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case types.IsValidationError(err):
		status = http.StatusBadRequest
	case db.IsNotFoundError(err):
		status = http.StatusNotFound
	case types.IsAuthorizationError(err):
		status = http.StatusForbidden
	case types.IsInactivePoolError(err):
		status = http.StatusConflict
	case types.IsInsufficientBalanceError(err):
		status = http.StatusConflict
	case types.IsTransferFailure(err):
		status = http.StatusBadGateway
	case types.IsReentrancyError(err):
		metrics.IncReentrancyRejects()
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Msg("Ledger operation failed")
	} else {
		log.Ctx(r.Context()).Debug().Err(err).Int("status", status).Msg("Request rejected")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
