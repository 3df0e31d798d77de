package types

import "errors"

// ValidationError is returned for malformed input: unknown pool ids,
// zero or negative amounts, empty asset references.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// AuthorizationError is returned when a non-privileged caller invokes
// an administrative operation.
type AuthorizationError struct {
	Caller  string
	Message string
}

func (e *AuthorizationError) Error() string {
	return e.Message
}

func IsAuthorizationError(err error) bool {
	var target *AuthorizationError
	return errors.As(err, &target)
}

// InactivePoolError is returned when a stake is attempted on a
// deactivated pool. Unstake is deliberately exempt.
type InactivePoolError struct {
	PoolID  uint64
	Message string
}

func (e *InactivePoolError) Error() string {
	return e.Message
}

func IsInactivePoolError(err error) bool {
	var target *InactivePoolError
	return errors.As(err, &target)
}

// InsufficientBalanceError is returned when an unstake amount exceeds
// the position balance.
type InsufficientBalanceError struct {
	PoolID  uint64
	Account string
	Message string
}

func (e *InsufficientBalanceError) Error() string {
	return e.Message
}

func IsInsufficientBalanceError(err error) bool {
	var target *InsufficientBalanceError
	return errors.As(err, &target)
}

// TransferFailure wraps a failure reported by the asset transfer
// collaborator. The enclosing operation is aborted with no state change.
type TransferFailure struct {
	Asset   string
	Message string
	Err     error
}

func (e *TransferFailure) Error() string {
	return e.Message
}

func (e *TransferFailure) Unwrap() error {
	return e.Err
}

func IsTransferFailure(err error) bool {
	var target *TransferFailure
	return errors.As(err, &target)
}

// ReentrancyError is returned when a transfer collaborator calls back
// into a mutating ledger entrypoint while the original call still holds
// the guard. The nested call fails, the outer call proceeds.
type ReentrancyError struct {
	Operation string
}

func (e *ReentrancyError) Error() string {
	return "reentrant call rejected: " + e.Operation
}

func IsReentrancyError(err error) bool {
	var target *ReentrancyError
	return errors.As(err, &target)
}
