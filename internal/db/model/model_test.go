package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionID(t *testing.T) {
	assert.Equal(t, "7:alice", PositionID(7, "alice"))
}

func TestMalformedDocumentsFailConversion(t *testing.T) {
	t.Run("pool", func(t *testing.T) {
		doc := &PoolDocument{
			ID:                  1,
			TotalStaked:         "not-a-number",
			RewardRatePerSecond: "1",
			AccRewardPerShare:   "0",
		}
		_, err := doc.ToPool()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "total_staked")
	})

	t.Run("position", func(t *testing.T) {
		doc := &PositionDocument{
			ID:         "1:alice",
			Amount:     "100",
			RewardDebt: "",
		}
		_, err := doc.ToRecord()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reward_debt")
	})
}
