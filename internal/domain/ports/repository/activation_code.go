package repository

import (
	"context"
	"time"

	"subscription-activation/internal/domain/model"
)

// ActivationCodeRepository is the port for managing activation codes.
type ActivationCodeRepository interface {
	// Insert persists a freshly generated code. A code-string collision
	// surfaces as domain.ErrAlreadyExists so the generator can retry with
	// a new candidate; it must not abort the surrounding transaction.
	Insert(ctx context.Context, tx Tx, code *model.ActivationCode) error

	// FindByCode returns the code whether or not it has been redeemed.
	FindByCode(ctx context.Context, tx Tx, code string) (*model.ActivationCode, error)

	// MarkRedeemed is a conditional write on is_used false -> true. When
	// the code was already consumed it returns domain.ErrCodeAlreadyUsed
	// without touching the row.
	MarkRedeemed(ctx context.Context, tx Tx, codeID, userID string, at time.Time) error

	// ListByBatch returns all codes of a batch for administrative reads.
	ListByBatch(ctx context.Context, tx Tx, batchID string) ([]*model.ActivationCode, error)
}
