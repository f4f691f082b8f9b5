package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"subscription-activation/internal/domain"
	"subscription-activation/internal/domain/model"
	"subscription-activation/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.ActivationCodeRepository = (*activationCodeRepo)(nil)

type activationCodeRepo struct {
	pool *pgxpool.Pool
}

func NewActivationCodeRepo(pool *pgxpool.Pool) repository.ActivationCodeRepository {
	return &activationCodeRepo{pool: pool}
}

// Insert persists a freshly generated code. ON CONFLICT DO NOTHING keeps a
// code-string collision from aborting the surrounding transaction; zero
// affected rows is reported as ErrAlreadyExists so the generator retries.
func (r *activationCodeRepo) Insert(ctx context.Context, tx repository.Tx, code *model.ActivationCode) error {
	if code.ID == "" {
		code.ID = uuid.NewString()
	}

	const q = `
INSERT INTO activation_codes
  (id, code, plan, is_used, used_by, used_at, batch_id, batch_name, entropy_ratio, is_high_entropy, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (code) DO NOTHING;
`
	cmd, err := execSQL(ctx, r.pool, tx, q,
		code.ID, code.Code, code.Plan, code.IsUsed, code.UsedBy, code.UsedAt,
		code.BatchID, code.BatchName, code.EntropyRatio, code.IsHighEntropy, code.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activation code: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

// FindByCode returns the code whether or not it has been redeemed, so the
// caller can distinguish not-found from already-used.
func (r *activationCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.ActivationCode, error) {
	const q = `
SELECT id, code, plan, is_used, used_by, used_at, batch_id, batch_name, entropy_ratio, is_high_entropy, created_at
  FROM activation_codes
 WHERE code = $1;
`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}

	var ac model.ActivationCode
	err = row.Scan(
		&ac.ID, &ac.Code, &ac.Plan, &ac.IsUsed, &ac.UsedBy, &ac.UsedAt,
		&ac.BatchID, &ac.BatchName, &ac.EntropyRatio, &ac.IsHighEntropy, &ac.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &ac, nil
}

// MarkRedeemed is the compare-and-swap on is_used. The affected-row count
// is the success signal; a concurrent winner leaves zero rows.
func (r *activationCodeRepo) MarkRedeemed(ctx context.Context, tx repository.Tx, codeID, userID string, at time.Time) error {
	const q = `
UPDATE activation_codes
   SET is_used = TRUE, used_by = $2, used_at = $3
 WHERE id = $1 AND is_used = FALSE;
`
	cmd, err := execSQL(ctx, r.pool, tx, q, codeID, userID, at)
	if err != nil {
		return fmt.Errorf("mark code redeemed: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrCodeAlreadyUsed
	}
	return nil
}

func (r *activationCodeRepo) ListByBatch(ctx context.Context, tx repository.Tx, batchID string) ([]*model.ActivationCode, error) {
	const q = `
SELECT id, code, plan, is_used, used_by, used_at, batch_id, batch_name, entropy_ratio, is_high_entropy, created_at
  FROM activation_codes
 WHERE batch_id = $1
 ORDER BY created_at;
`
	rows, err := pickRows(ctx, r.pool, tx, q, batchID)
	if err != nil {
		return nil, fmt.Errorf("list batch codes: %w", err)
	}
	defer rows.Close()

	var out []*model.ActivationCode
	for rows.Next() {
		var ac model.ActivationCode
		if err := rows.Scan(
			&ac.ID, &ac.Code, &ac.Plan, &ac.IsUsed, &ac.UsedBy, &ac.UsedAt,
			&ac.BatchID, &ac.BatchName, &ac.EntropyRatio, &ac.IsHighEntropy, &ac.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &ac)
	}
	return out, rows.Err()
}
