package model

import (
	"math"
	"time"

	"subscription-activation/internal/domain"
)

type ActivationMethod string

const (
	ActivationMethodSignup  ActivationMethod = "signup"
	ActivationMethodCode    ActivationMethod = "code"
	ActivationMethodPayment ActivationMethod = "payment"
)

// Subscription is a user's current entitlement window. At most one active
// record exists per user; the store enforces this with a partial unique
// index and the workflow serializes per user on top of it.
type Subscription struct {
	ID     string
	UserID string
	Plan   Plan
	// TotalDays is the cumulative granted duration. It grows with every
	// extension, it is not a per-plan constant.
	TotalDays int
	// Active is persisted but reconciled against ExpiresAt on every write
	// path. Reads must prefer IsExpired/DaysRemaining over this flag.
	Active           bool
	ActivationMethod ActivationMethod
	ActivatedAt      time.Time
	ExpiresAt        time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewSubscription creates a user's first subscription window for a plan.
func NewSubscription(id, userID string, plan Plan, method ActivationMethod) (*Subscription, error) {
	if id == "" || userID == "" || !plan.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	days := plan.Days()
	return &Subscription{
		ID:               id,
		UserID:           userID,
		Plan:             plan,
		TotalDays:        days,
		Active:           true,
		ActivationMethod: method,
		ActivatedAt:      now,
		ExpiresAt:        now.Add(time.Duration(days) * 24 * time.Hour),
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// NewTrialSubscription creates the signup trial window.
func NewTrialSubscription(id, userID string) (*Subscription, error) {
	return NewSubscription(id, userID, Plan3Days, ActivationMethodSignup)
}

// IsExpired derives expiry from the window, never from the stored flag.
func (s *Subscription) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// DaysRemaining is ceil((expiresAt - now)/1 day), clamped at zero and
// forced to zero for inactive or expired subscriptions.
func (s *Subscription) DaysRemaining(now time.Time) int {
	if !s.Active || s.IsExpired(now) {
		return 0
	}
	d := math.Ceil(s.ExpiresAt.Sub(now).Hours() / 24)
	if d < 0 {
		return 0
	}
	return int(d)
}

// Extend grants additionalDays. A live window stacks on the current
// expiry; an expired one restarts from now.
func (s *Subscription) Extend(now time.Time, additionalDays int) error {
	if additionalDays <= 0 {
		return domain.ErrInvalidArgument
	}
	start := s.ExpiresAt
	if s.IsExpired(now) {
		start = now
	}
	s.ExpiresAt = start.Add(time.Duration(additionalDays) * 24 * time.Hour)
	s.TotalDays += additionalDays
	s.Active = true
	s.UpdatedAt = now
	return nil
}

// ApplyPlan upgrades the tier when newPlan ranks strictly higher.
// Downgrades and same-tier applications are silent no-ops. The trial tier
// ranks lowest, so any paid plan replaces it.
func (s *Subscription) ApplyPlan(newPlan Plan) {
	if !newPlan.Valid() {
		return
	}
	if newPlan.Priority() > s.Plan.Priority() {
		s.Plan = newPlan
	}
}
