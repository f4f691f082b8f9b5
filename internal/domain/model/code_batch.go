package model

import (
	"time"

	"subscription-activation/internal/domain"
)

type BatchStatus string

const (
	BatchStatusActive    BatchStatus = "active"
	BatchStatusCompleted BatchStatus = "completed"
	BatchStatusArchived  BatchStatus = "archived"
)

// GenerationStats records true attempt counts for a finished batch, not
// estimates.
type GenerationStats struct {
	TotalAttempts      int
	Collisions         int
	AvgAttemptsPerCode float64
	CollisionRate      float64
	Elapsed            time.Duration
}

// CodeBatch is a named group of codes issued together under one plan.
// Invariant: CodesUsed <= CodesGenerated <= TotalCodes.
type CodeBatch struct {
	ID             string
	Name           string
	Description    string
	Plan           Plan
	TotalCodes     int
	CodesGenerated int
	CodesUsed      int
	Status         BatchStatus
	ExpiresAt      *time.Time // optional hard cutoff for redemption
	Stats          GenerationStats
	CreatedAt      time.Time
}

// NewCodeBatch validates and constructs a batch in the active state.
func NewCodeBatch(id, name, description string, plan Plan, totalCodes int, expiresAt *time.Time) (*CodeBatch, error) {
	if id == "" || name == "" || !plan.Valid() || totalCodes <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &CodeBatch{
		ID:          id,
		Name:        name,
		Description: description,
		Plan:        plan,
		TotalCodes:  totalCodes,
		Status:      BatchStatusActive,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now(),
	}, nil
}

// Complete transitions active -> completed, recording the final counters
// and stats exactly once. There is no way back to active.
func (b *CodeBatch) Complete(generated int, stats GenerationStats) error {
	if b.Status != BatchStatusActive {
		return domain.ErrInvalidArgument
	}
	if generated > b.TotalCodes {
		return domain.ErrInvalidArgument
	}
	b.CodesGenerated = generated
	b.Stats = stats
	b.Status = BatchStatusCompleted
	return nil
}

// Archive is an administrative terminal transition, reachable only from
// completed.
func (b *CodeBatch) Archive() error {
	if b.Status != BatchStatusCompleted {
		return domain.ErrBatchNotCompleted
	}
	b.Status = BatchStatusArchived
	return nil
}

// IsExpired reports whether the batch's redemption cutoff has passed.
func (b *CodeBatch) IsExpired(now time.Time) bool {
	return b.ExpiresAt != nil && !now.Before(*b.ExpiresAt)
}

// UsageRate returns the used/generated percentage for admin reads.
func (b *CodeBatch) UsageRate() float64 {
	if b.CodesGenerated == 0 {
		return 0
	}
	return float64(b.CodesUsed) / float64(b.CodesGenerated) * 100
}
