package repository

import (
	"context"

	"subscription-activation/internal/domain/model"
)

// CodeBatchRepository is the port for code batches.
type CodeBatchRepository interface {
	// Insert persists a new batch. A duplicate name surfaces as
	// domain.ErrDuplicateBatchName.
	Insert(ctx context.Context, tx Tx, batch *model.CodeBatch) error

	FindByID(ctx context.Context, tx Tx, id string) (*model.CodeBatch, error)

	// Finalize writes codes_generated, stats and status exactly once when
	// generation completes.
	Finalize(ctx context.Context, tx Tx, batch *model.CodeBatch) error

	// IncrementCodesUsed is a durable atomic increment guarded by
	// codes_used < codes_generated.
	IncrementCodesUsed(ctx context.Context, tx Tx, batchID string) error

	// SetStatus applies an administrative transition (archive).
	SetStatus(ctx context.Context, tx Tx, batchID string, status model.BatchStatus) error
}
