package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Code errors
	ErrMalformedCode      = errors.New("activation code is malformed")
	ErrCodeNotFound       = errors.New("activation code not found")
	ErrCodeAlreadyUsed    = errors.New("activation code already used")
	ErrDuplicateBatchName = errors.New("batch name already in use")
	ErrBatchExpired       = errors.New("activation code batch has expired")
	ErrBatchNotCompleted  = errors.New("batch is not in completed state")
	ErrCollisionRisk      = errors.New("estimated collision probability exceeds threshold")

	// Subscription errors
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrPaymentNotVerified   = errors.New("payment is not verified")
)

// CodeAlreadyUsedError carries redemption provenance for operator
// diagnostics. errors.Is(err, ErrCodeAlreadyUsed) matches it.
type CodeAlreadyUsedError struct {
	Code   string
	UsedBy string
	UsedAt time.Time
}

func (e *CodeAlreadyUsedError) Error() string {
	return fmt.Sprintf("activation code already used by %s at %s", e.UsedBy, e.UsedAt.Format(time.RFC3339))
}

func (e *CodeAlreadyUsedError) Is(target error) bool { return target == ErrCodeAlreadyUsed }

// GenerationError reports a batch generation that exhausted the per-code
// attempt cap. Generated is the partial progress count; everything it
// covers has been rolled back.
type GenerationError struct {
	Generated int
	Requested int
	Attempts  int
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("code generation exhausted after %d attempts (%d/%d codes)", e.Attempts, e.Generated, e.Requested)
}
