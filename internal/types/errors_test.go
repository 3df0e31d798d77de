package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"validation", &ValidationError{Message: "bad input"}, IsValidationError},
		{"authorization", &AuthorizationError{Caller: "x", Message: "nope"}, IsAuthorizationError},
		{"inactive pool", &InactivePoolError{PoolID: 1, Message: "inactive"}, IsInactivePoolError},
		{"insufficient balance", &InsufficientBalanceError{PoolID: 1, Account: "a", Message: "short"}, IsInsufficientBalanceError},
		{"transfer failure", &TransferFailure{Asset: "ustake", Message: "down"}, IsTransferFailure},
		{"reentrancy", &ReentrancyError{Operation: "Stake"}, IsReentrancyError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.check(tc.err))

			// detection survives wrapping
			assert.True(t, tc.check(fmt.Errorf("outer: %w", tc.err)))

			// each category matches only itself
			for _, other := range cases {
				if other.name != tc.name {
					assert.False(t, other.check(tc.err))
				}
			}
		})
	}
}

func TestTransferFailureUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &TransferFailure{Asset: "ustake", Message: "transfer failed", Err: cause}

	assert.ErrorIs(t, err, cause)
}
