package repository

import (
	"context"

	"subscription-activation/internal/domain/model"
)

// SubscriptionRepository is the port for user subscriptions.
type SubscriptionRepository interface {
	// Insert creates a subscription. The store carries a partial unique
	// index on user_id where active, so a racing first-time creation
	// surfaces as domain.ErrAlreadyExists and the caller re-reads.
	Insert(ctx context.Context, tx Tx, sub *model.Subscription) error

	// Update persists window changes (extend, upgrade, reconciled flag).
	Update(ctx context.Context, tx Tx, sub *model.Subscription) error

	// FindActiveByUser returns the user's active record or
	// domain.ErrNotFound.
	FindActiveByUser(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)

	// CountByStatus reports active/lapsed totals for metrics.
	CountByStatus(ctx context.Context) (active int, lapsed int, err error)
}
