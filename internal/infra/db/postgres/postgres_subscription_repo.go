package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"subscription-activation/internal/domain"
	"subscription-activation/internal/domain/model"
	"subscription-activation/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) repository.SubscriptionRepository {
	return &subscriptionRepo{pool: pool}
}

// Insert is the conditional first-time creation. The table carries a
// partial unique index (user_id unique where active), so a racing create
// reports ErrAlreadyExists without aborting the transaction.
func (r *subscriptionRepo) Insert(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions
  (id, user_id, plan, total_days, active, activation_method, activated_at, expires_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (user_id) WHERE active DO NOTHING;
`
	cmd, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.UserID, s.Plan, s.TotalDays, s.Active, s.ActivationMethod,
		s.ActivatedAt, s.ExpiresAt, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (r *subscriptionRepo) Update(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
UPDATE subscriptions
   SET plan = $2, total_days = $3, active = $4, expires_at = $5, updated_at = $6
 WHERE id = $1;
`
	cmd, err := execSQL(ctx, r.pool, tx, q, s.ID, s.Plan, s.TotalDays, s.Active, s.ExpiresAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *subscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	const q = `
SELECT id, user_id, plan, total_days, active, activation_method, activated_at, expires_at, created_at, updated_at
  FROM subscriptions
 WHERE user_id = $1 AND active = TRUE;
`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}

	var s model.Subscription
	err = row.Scan(
		&s.ID, &s.UserID, &s.Plan, &s.TotalDays, &s.Active, &s.ActivationMethod,
		&s.ActivatedAt, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &s, nil
}

func (r *subscriptionRepo) CountByStatus(ctx context.Context) (int, int, error) {
	const q = `
SELECT count(*) FILTER (WHERE active AND expires_at > now()),
       count(*) FILTER (WHERE NOT active OR expires_at <= now())
  FROM subscriptions;
`
	var active, lapsed int
	if err := r.pool.QueryRow(ctx, q).Scan(&active, &lapsed); err != nil {
		return 0, 0, fmt.Errorf("count subscriptions: %w", err)
	}
	return active, lapsed, nil
}
