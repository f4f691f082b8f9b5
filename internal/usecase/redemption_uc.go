// File: internal/usecase/redemption_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"subscription-activation/internal/domain"
	"subscription-activation/internal/domain/model"
	"subscription-activation/internal/domain/ports/adapter"
	"subscription-activation/internal/domain/ports/repository"
	"subscription-activation/internal/infra/metrics"
)

const userLockTTL = 10 * time.Second

type RedemptionResult struct {
	Subscription *model.Subscription
	Code         *model.ActivationCode
}

// SubscriptionStatus is the read model with derived fields.
type SubscriptionStatus struct {
	Subscription  *model.Subscription
	DaysRemaining int
}

type BatchDetail struct {
	Batch     *model.CodeBatch
	Codes     []*model.ActivationCode
	UsageRate float64
}

// RedemptionUseCase ties codes, batches and subscriptions together. Every
// redemption runs as one transaction so a crash can never leave a code
// consumed without the matching entitlement.
type RedemptionUseCase struct {
	codes   repository.ActivationCodeRepository
	batches repository.CodeBatchRepository
	subs    repository.SubscriptionRepository
	tm      repository.TransactionManager
	locker  adapter.Locker
	log     *zerolog.Logger
}

func NewRedemptionUseCase(
	codes repository.ActivationCodeRepository,
	batches repository.CodeBatchRepository,
	subs repository.SubscriptionRepository,
	tm repository.TransactionManager,
	locker adapter.Locker,
	logger *zerolog.Logger,
) *RedemptionUseCase {
	return &RedemptionUseCase{codes: codes, batches: batches, subs: subs, tm: tm, locker: locker, log: logger}
}

// RedeemCode converts an unused code into subscription time for userID.
// Exactly one of two concurrent redemptions of the same code succeeds; the
// loser observes ErrCodeAlreadyUsed via the conditional MarkRedeemed write.
func (uc *RedemptionUseCase) RedeemCode(ctx context.Context, rawCode, userID string) (*RedemptionResult, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	code, err := model.NormalizeCode(rawCode)
	if err != nil {
		return nil, err
	}

	// Two codes submitted near-simultaneously by the same user serialize
	// here instead of burning a conflict retry inside the store.
	unlock, err := uc.lockUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	start := time.Now()
	var res *RedemptionResult
	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		ac, err := uc.codes.FindByCode(ctx, tx, code)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrCodeNotFound
			}
			return err
		}
		if ac.IsUsed {
			return usedError(ac)
		}

		now := time.Now()
		if ac.BatchID != nil {
			batch, err := uc.batches.FindByID(ctx, tx, *ac.BatchID)
			if err != nil {
				return err
			}
			if batch.IsExpired(now) {
				return domain.ErrBatchExpired
			}
		}

		sub, err := uc.extendOrCreate(ctx, tx, userID, ac.Plan, model.ActivationMethodCode, now)
		if err != nil {
			return err
		}

		if err := uc.codes.MarkRedeemed(ctx, tx, ac.ID, userID, now); err != nil {
			if errors.Is(err, domain.ErrCodeAlreadyUsed) {
				// lost the race after our read; the whole tx rolls back
				return usedError(ac)
			}
			return err
		}
		ac.IsUsed = true
		ac.UsedBy = &userID
		ac.UsedAt = &now

		if ac.BatchID != nil {
			if err := uc.batches.IncrementCodesUsed(ctx, tx, *ac.BatchID); err != nil {
				return err
			}
		}

		res = &RedemptionResult{Subscription: sub, Code: ac}
		return nil
	})
	latency := time.Since(start).Milliseconds()
	if err != nil {
		outcome := redemptionOutcome(err)
		metrics.IncRedemption(outcome)
		metrics.ObserveRedemptionLatency(outcome, latency)
		uc.log.Warn().Err(err).Str("user_id", userID).Msg("redemption rejected")
		return nil, err
	}

	metrics.IncRedemption("ok")
	metrics.ObserveRedemptionLatency("ok", latency)
	uc.log.Info().
		Str("user_id", userID).
		Str("plan", string(res.Code.Plan)).
		Time("expires_at", res.Subscription.ExpiresAt).
		Msg("code redeemed")
	return res, nil
}

// ActivateByPayment applies the same extension and upgrade rules as code
// redemption, gated on the externally verified payment flag.
func (uc *RedemptionUseCase) ActivateByPayment(ctx context.Context, plan model.Plan, userID string, paymentVerified bool) (*model.Subscription, error) {
	if userID == "" || !plan.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	if !paymentVerified {
		return nil, domain.ErrPaymentNotVerified
	}

	unlock, err := uc.lockUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var sub *model.Subscription
	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		sub, err = uc.extendOrCreate(ctx, tx, userID, plan, model.ActivationMethodPayment, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("user_id", userID).Str("plan", string(plan)).Msg("payment activation applied")
	return sub, nil
}

// CreateTrial creates the signup trial window. The store's partial unique
// constraint makes first-time creation race-safe.
func (uc *RedemptionUseCase) CreateTrial(ctx context.Context, userID string) (*model.Subscription, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	sub, err := model.NewTrialSubscription(uuid.NewString(), userID)
	if err != nil {
		return nil, err
	}
	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		return uc.subs.Insert(ctx, tx, sub)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// GetSubscriptionStatus returns the single active subscription with
// derived fields. A record whose window has lapsed counts as not found,
// whatever its stored flag still says.
func (uc *RedemptionUseCase) GetSubscriptionStatus(ctx context.Context, userID string) (*SubscriptionStatus, error) {
	sub, err := uc.subs.FindActiveByUser(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoActiveSubscription
		}
		return nil, err
	}
	now := time.Now()
	if sub.IsExpired(now) {
		return nil, domain.ErrNoActiveSubscription
	}
	return &SubscriptionStatus{Subscription: sub, DaysRemaining: sub.DaysRemaining(now)}, nil
}

// GetBatchDetail is the administrative read: batch, per-code usage and the
// computed usage rate.
func (uc *RedemptionUseCase) GetBatchDetail(ctx context.Context, batchID string) (*BatchDetail, error) {
	batch, err := uc.batches.FindByID(ctx, nil, batchID)
	if err != nil {
		return nil, err
	}
	codes, err := uc.codes.ListByBatch(ctx, nil, batchID)
	if err != nil {
		return nil, err
	}
	return &BatchDetail{Batch: batch, Codes: codes, UsageRate: batch.UsageRate()}, nil
}

// extendOrCreate looks up the user's active subscription and either stacks
// the plan's days onto it (applying the monotonic upgrade policy) or
// creates the first window.
func (uc *RedemptionUseCase) extendOrCreate(ctx context.Context, tx repository.Tx, userID string, plan model.Plan, method model.ActivationMethod, now time.Time) (*model.Subscription, error) {
	sub, err := uc.subs.FindActiveByUser(ctx, tx, userID)
	switch {
	case err == nil:
		sub.ApplyPlan(plan)
		if err := sub.Extend(now, plan.Days()); err != nil {
			return nil, err
		}
		if err := uc.subs.Update(ctx, tx, sub); err != nil {
			return nil, err
		}
		return sub, nil

	case errors.Is(err, domain.ErrNotFound):
		sub, err = model.NewSubscription(uuid.NewString(), userID, plan, method)
		if err != nil {
			return nil, err
		}
		if err := uc.subs.Insert(ctx, tx, sub); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				// lost a first-creation race, extend the winner instead
				cur, err2 := uc.subs.FindActiveByUser(ctx, tx, userID)
				if err2 != nil {
					return nil, err2
				}
				cur.ApplyPlan(plan)
				if err2 := cur.Extend(now, plan.Days()); err2 != nil {
					return nil, err2
				}
				if err2 := uc.subs.Update(ctx, tx, cur); err2 != nil {
					return nil, err2
				}
				return cur, nil
			}
			return nil, err
		}
		return sub, nil

	default:
		return nil, err
	}
}

func (uc *RedemptionUseCase) lockUser(ctx context.Context, userID string) (func(), error) {
	if uc.locker == nil {
		return func() {}, nil
	}
	key := "redeem:user:" + userID
	token, err := uc.locker.TryLock(ctx, key, userLockTTL)
	if err != nil {
		return nil, err
	}
	return func() { _ = uc.locker.Unlock(ctx, key, token) }, nil
}

func usedError(ac *model.ActivationCode) error {
	e := &domain.CodeAlreadyUsedError{Code: ac.Code}
	if ac.UsedBy != nil {
		e.UsedBy = *ac.UsedBy
	}
	if ac.UsedAt != nil {
		e.UsedAt = *ac.UsedAt
	}
	return e
}

func redemptionOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrMalformedCode):
		return "malformed"
	case errors.Is(err, domain.ErrCodeNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrCodeAlreadyUsed):
		return "already_used"
	case errors.Is(err, domain.ErrBatchExpired):
		return "batch_expired"
	default:
		return "error"
	}
}
