package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	sdkmath "cosmossdk.io/math"
	"github.com/go-chi/chi/v5"

	"github.com/babylonlabs-io/staking-rewards-ledger/internal/observability/metrics"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/types"
)

type createPoolRequest struct {
	StakingAsset        string `json:"staking_asset"`
	RewardAsset         string `json:"reward_asset"`
	RewardRatePerSecond string `json:"reward_rate_per_second"`
}

type stakeRequest struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type rewardRateRequest struct {
	RewardRatePerSecond string `json:"reward_rate_per_second"`
}

type emergencyWithdrawRequest struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

func (s *Server) createPool(w http.ResponseWriter, r *http.Request) {
	stop := timeOp("CreatePool")

	var req createPoolRequest
	if err := decodeBody(r, &req); err != nil {
		stop(true)
		writeError(w, r, err)
		return
	}
	rate, err := parseAmount(req.RewardRatePerSecond, "reward_rate_per_second")
	if err != nil {
		stop(true)
		writeError(w, r, err)
		return
	}

	pool, err := s.ledger.CreatePool(
		r.Context(), r.Header.Get(operatorHeader),
		req.StakingAsset, req.RewardAsset, rate,
	)
	if err != nil {
		stop(true)
		writeError(w, r, err)
		return
	}
	stop(false)

	metrics.RecordPoolsCount(s.ledger.PoolCount())
	writeJSON(w, http.StatusCreated, newPoolResponse(pool))
}

func (s *Server) stake(w http.ResponseWriter, r *http.Request) {
	stop := timeOp("Stake")

	poolID, err := poolIDParam(r)
	if err != nil {
		stop(true)
		writeError(w, r, err)
		return
	}
	var req stakeRequest
	if err := decodeBody(r, &req); err != nil {
		stop(true)
		writeError(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount, "amount")
	if err != nil {
		stop(true)
		writeError(w, r, err)
		return
	}

	if err := s.ledger.Stake(r.Context(), poolID, req.Account, amount); err != nil {
		stop(true)
		writeError(w, r, err)
		return
	}
	stop(false)

	s.recordPoolGauges(poolID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "staked"})
}

func (s *Server) unstake(w http.ResponseWriter, r *http.Request) {
	stop := timeOp("Unstake")

	poolID, err := poolIDParam(r)
	if err != nil {
		stop(true)
		writeError(w, r, err)
		return
	}
	var req stakeRequest
	if err := decodeBody(r, &req); err != nil {
		stop(true)
		writeError(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount, "amount")
	if err != nil {
		stop(true)
		writeError(w, r, err)
		return
	}

	if err := s.ledger.Unstake(r.Context(), poolID, req.Account, amount); err != nil {
		stop(true)
		writeError(w, r, err)
		return
	}
	stop(false)

	s.recordPoolGauges(poolID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "unstaked"})
}

func (s *Server) settlePool(w http.ResponseWriter, r *http.Request) {
	stop := timeOp("UpdatePool")

	poolID, err := poolIDParam(r)
	if err != nil {
		stop(true)
		writeError(w, r, err)
		return
	}

	if err := s.ledger.UpdatePool(r.Context(), poolID); err != nil {
		stop(true)
		writeError(w, r, err)
		return
	}
	stop(false)

	writeJSON(w, http.StatusOK, map[string]string{"status": "settled"})
}

func (s *Server) togglePoolStatus(w http.ResponseWriter, r *http.Request) {
	stop := timeOp("TogglePoolStatus")

	poolID, err := poolIDParam(r)
	if err != nil {
		stop(true)
		writeError(w, r, err)
		return
	}

	active, err := s.ledger.TogglePoolStatus(r.Context(), r.Header.Get(operatorHeader), poolID)
	if err != nil {
		stop(true)
		writeError(w, r, err)
		return
	}
	stop(false)

	writeJSON(w, http.StatusOK, map[string]bool{"active": active})
}

func (s *Server) updateRewardRate(w http.ResponseWriter, r *http.Request) {
	stop := timeOp("UpdateRewardRate")

	poolID, err := poolIDParam(r)
	if err != nil {
		stop(true)
		writeError(w, r, err)
		return
	}
	var req rewardRateRequest
	if err := decodeBody(r, &req); err != nil {
		stop(true)
		writeError(w, r, err)
		return
	}
	rate, err := parseAmount(req.RewardRatePerSecond, "reward_rate_per_second")
	if err != nil {
		stop(true)
		writeError(w, r, err)
		return
	}

	if err := s.ledger.UpdateRewardRate(r.Context(), r.Header.Get(operatorHeader), poolID, rate); err != nil {
		stop(true)
		writeError(w, r, err)
		return
	}
	stop(false)

	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) emergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	stop := timeOp("EmergencyWithdraw")

	var req emergencyWithdrawRequest
	if err := decodeBody(r, &req); err != nil {
		stop(true)
		writeError(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount, "amount")
	if err != nil {
		stop(true)
		writeError(w, r, err)
		return
	}

	if err := s.ledger.EmergencyWithdraw(r.Context(), r.Header.Get(operatorHeader), req.Asset, amount); err != nil {
		stop(true)
		writeError(w, r, err)
		return
	}
	stop(false)

	writeJSON(w, http.StatusOK, map[string]string{"status": "withdrawn"})
}

func (s *Server) getPoolInfo(w http.ResponseWriter, r *http.Request) {
	poolID, err := poolIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	pool, err := s.ledger.GetPoolInfo(poolID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPoolResponse(pool))
}

// getPoolPositions lists the stored positions of one pool, straight
// from the store: the durable view, not the in-memory one.
func (s *Server) getPoolPositions(w http.ResponseWriter, r *http.Request) {
	poolID, err := poolIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := s.db.GetPool(r.Context(), poolID); err != nil {
		writeError(w, r, err)
		return
	}
	records, err := s.db.GetPositionsByPool(r.Context(), poolID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPoolPositionsResponse(records))
}

func (s *Server) getUserInfo(w http.ResponseWriter, r *http.Request) {
	poolID, err := poolIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	pos, err := s.ledger.GetUserInfo(poolID, chi.URLParam(r, "account"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPositionResponse(pos))
}

func (s *Server) getPendingRewards(w http.ResponseWriter, r *http.Request) {
	poolID, err := poolIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	pending, err := s.ledger.PendingRewards(poolID, chi.URLParam(r, "account"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"pending": pending.String()})
}

func (s *Server) recordPoolGauges(poolID uint64) {
	pool, err := s.ledger.GetPoolInfo(poolID)
	if err != nil {
		return
	}
	staked, err := strconv.ParseFloat(pool.TotalStaked.String(), 64)
	if err != nil {
		return
	}
	metrics.RecordPoolTotalStaked(poolID, staked)
}

func poolIDParam(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "poolID")
	poolID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, &types.ValidationError{Message: fmt.Sprintf("malformed pool id %q", raw)}
	}
	return poolID, nil
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &types.ValidationError{Message: fmt.Sprintf("malformed request body: %s", err)}
	}
	return nil
}

func parseAmount(raw, field string) (sdkmath.Int, error) {
	amount, ok := sdkmath.NewIntFromString(raw)
	if !ok {
		return sdkmath.Int{}, &types.ValidationError{Message: fmt.Sprintf("field %s holds malformed integer %q", field, raw)}
	}
	return amount, nil
}
