package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"subscription-activation/internal/domain"
	"subscription-activation/internal/domain/model"
	"subscription-activation/internal/domain/ports/repository"
)

var _ repository.CodeBatchRepository = (*codeBatchRepo)(nil)

type codeBatchRepo struct {
	pool *pgxpool.Pool
}

func NewCodeBatchRepo(pool *pgxpool.Pool) repository.CodeBatchRepository {
	return &codeBatchRepo{pool: pool}
}

func (r *codeBatchRepo) Insert(ctx context.Context, tx repository.Tx, b *model.CodeBatch) error {
	const q = `
INSERT INTO code_batches
  (id, name, description, plan, total_codes, codes_generated, codes_used, status, expires_at,
   total_attempts, collisions, avg_attempts_per_code, collision_rate, elapsed_ms, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
`
	_, err := execSQL(ctx, r.pool, tx, q,
		b.ID, b.Name, b.Description, b.Plan, b.TotalCodes, b.CodesGenerated, b.CodesUsed, b.Status, b.ExpiresAt,
		b.Stats.TotalAttempts, b.Stats.Collisions, b.Stats.AvgAttemptsPerCode, b.Stats.CollisionRate,
		b.Stats.Elapsed.Milliseconds(), b.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateBatchName
		}
		return fmt.Errorf("insert code batch: %w", err)
	}
	return nil
}

func (r *codeBatchRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CodeBatch, error) {
	const q = `
SELECT id, name, description, plan, total_codes, codes_generated, codes_used, status, expires_at,
       total_attempts, collisions, avg_attempts_per_code, collision_rate, elapsed_ms, created_at
  FROM code_batches
 WHERE id = $1;
`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}

	var b model.CodeBatch
	var elapsedMS int64
	err = row.Scan(
		&b.ID, &b.Name, &b.Description, &b.Plan, &b.TotalCodes, &b.CodesGenerated, &b.CodesUsed, &b.Status, &b.ExpiresAt,
		&b.Stats.TotalAttempts, &b.Stats.Collisions, &b.Stats.AvgAttemptsPerCode, &b.Stats.CollisionRate,
		&elapsedMS, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	b.Stats.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	return &b, nil
}

// Finalize writes the generation outcome once. The status guard keeps a
// completed or archived batch immutable.
func (r *codeBatchRepo) Finalize(ctx context.Context, tx repository.Tx, b *model.CodeBatch) error {
	const q = `
UPDATE code_batches
   SET codes_generated = $2, status = $3,
       total_attempts = $4, collisions = $5, avg_attempts_per_code = $6, collision_rate = $7, elapsed_ms = $8
 WHERE id = $1 AND status = 'active';
`
	cmd, err := execSQL(ctx, r.pool, tx, q,
		b.ID, b.CodesGenerated, b.Status,
		b.Stats.TotalAttempts, b.Stats.Collisions, b.Stats.AvgAttemptsPerCode, b.Stats.CollisionRate,
		b.Stats.Elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("finalize batch: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// IncrementCodesUsed is a durable atomic increment. The guard keeps
// codes_used <= codes_generated true at every observation point.
func (r *codeBatchRepo) IncrementCodesUsed(ctx context.Context, tx repository.Tx, batchID string) error {
	const q = `
UPDATE code_batches
   SET codes_used = codes_used + 1
 WHERE id = $1 AND codes_used < codes_generated;
`
	cmd, err := execSQL(ctx, r.pool, tx, q, batchID)
	if err != nil {
		return fmt.Errorf("increment codes_used: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("batch %s counter not incremented: %w", batchID, domain.ErrNotFound)
	}
	return nil
}

func (r *codeBatchRepo) SetStatus(ctx context.Context, tx repository.Tx, batchID string, status model.BatchStatus) error {
	// archived is terminal and only reachable from completed
	const q = `
UPDATE code_batches
   SET status = $2
 WHERE id = $1 AND status = 'completed';
`
	cmd, err := execSQL(ctx, r.pool, tx, q, batchID, status)
	if err != nil {
		return fmt.Errorf("set batch status: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrBatchNotCompleted
	}
	return nil
}
