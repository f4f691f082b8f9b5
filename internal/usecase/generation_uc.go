// File: internal/usecase/generation_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"subscription-activation/internal/domain"
	"subscription-activation/internal/domain/model"
	"subscription-activation/internal/domain/ports/repository"
	"subscription-activation/internal/infra/metrics"
)

// GenerationConfig bounds batch issuance. Zero values fall back to the
// service defaults.
type GenerationConfig struct {
	MaxBatchSize       int
	AttemptsPerCode    int
	CollisionThreshold float64
}

func (c GenerationConfig) withDefaults() GenerationConfig {
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = 10000
	}
	if c.AttemptsPerCode <= 0 {
		c.AttemptsPerCode = maxAttemptsPerCode
	}
	if c.CollisionThreshold <= 0 {
		c.CollisionThreshold = 0.001
	}
	return c
}

type GenerateCodesParams struct {
	Plan        model.Plan
	Count       int
	BatchName   string // empty means ungrouped codes, no batch row
	Description string
	ExpiresAt   *time.Time
}

type GenerateCodesResult struct {
	Codes []*model.ActivationCode
	Batch *model.CodeBatch // nil for ungrouped generation
	Stats model.GenerationStats
}

// GenerationUseCase issues activation codes in bulk.
type GenerationUseCase struct {
	codes   repository.ActivationCodeRepository
	batches repository.CodeBatchRepository
	tm      repository.TransactionManager
	cfg     GenerationConfig
	log     *zerolog.Logger
}

func NewGenerationUseCase(
	codes repository.ActivationCodeRepository,
	batches repository.CodeBatchRepository,
	tm repository.TransactionManager,
	cfg GenerationConfig,
	logger *zerolog.Logger,
) *GenerationUseCase {
	return &GenerationUseCase{codes: codes, batches: batches, tm: tm, cfg: cfg.withDefaults(), log: logger}
}

// GenerateCodes produces Count unique strong codes under one batch. The
// batch row, every code row and the finalized counters are committed as a
// single transaction: exhausting the attempt cap mid-batch rolls back all
// committed codes, so no half-issued batch is ever visible.
func (uc *GenerationUseCase) GenerateCodes(ctx context.Context, p GenerateCodesParams) (*GenerateCodesResult, error) {
	if !p.Plan.Valid() {
		return nil, fmt.Errorf("plan %q: %w", p.Plan, domain.ErrInvalidArgument)
	}
	if p.Count < 1 || p.Count > uc.cfg.MaxBatchSize {
		return nil, fmt.Errorf("count %d outside [1, %d]: %w", p.Count, uc.cfg.MaxBatchSize, domain.ErrInvalidArgument)
	}
	if prob := collisionProbability(p.Count); prob > uc.cfg.CollisionThreshold {
		return nil, fmt.Errorf("batch of %d has collision probability %.2e: %w", p.Count, prob, domain.ErrCollisionRisk)
	}

	start := time.Now()
	var result *GenerateCodesResult

	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var batch *model.CodeBatch
		if p.BatchName != "" {
			var err error
			batch, err = model.NewCodeBatch(ulid.Make().String(), p.BatchName, p.Description, p.Plan, p.Count, p.ExpiresAt)
			if err != nil {
				return err
			}
			if err := uc.batches.Insert(ctx, tx, batch); err != nil {
				return err
			}
		}

		codes := make([]*model.ActivationCode, 0, p.Count)
		attempts, collisions := 0, 0
		for len(codes) < p.Count {
			ac, err := uc.nextCode(ctx, tx, p.Plan, batch, &attempts, &collisions)
			if err != nil {
				return err
			}
			if ac == nil {
				return &domain.GenerationError{Generated: len(codes), Requested: p.Count, Attempts: attempts}
			}
			codes = append(codes, ac)
		}

		stats := model.GenerationStats{
			TotalAttempts:      attempts,
			Collisions:         collisions,
			AvgAttemptsPerCode: float64(attempts) / float64(p.Count),
			Elapsed:            time.Since(start),
		}
		if attempts > 0 {
			stats.CollisionRate = float64(collisions) / float64(attempts)
		}

		if batch != nil {
			if err := batch.Complete(len(codes), stats); err != nil {
				return err
			}
			if err := uc.batches.Finalize(ctx, tx, batch); err != nil {
				return err
			}
		}
		result = &GenerateCodesResult{Codes: codes, Batch: batch, Stats: stats}
		return nil
	})
	if err != nil {
		uc.log.Error().Err(err).Str("plan", string(p.Plan)).Int("count", p.Count).Msg("code generation failed")
		return nil, err
	}

	metrics.AddCodesGenerated(len(result.Codes))
	metrics.ObserveGeneration(result.Stats.TotalAttempts, result.Stats.Collisions)
	uc.log.Info().
		Str("plan", string(p.Plan)).
		Int("count", p.Count).
		Int("attempts", result.Stats.TotalAttempts).
		Int("collisions", result.Stats.Collisions).
		Dur("elapsed", result.Stats.Elapsed).
		Msg("batch generated")
	return result, nil
}

// nextCode draws candidates until one both passes the strength filter and
// clears the store's uniqueness constraint. A nil, nil return means the
// attempt cap was exhausted.
func (uc *GenerationUseCase) nextCode(ctx context.Context, tx repository.Tx, plan model.Plan, batch *model.CodeBatch, attempts, collisions *int) (*model.ActivationCode, error) {
	for try := 0; try < uc.cfg.AttemptsPerCode; try++ {
		*attempts++
		cand, err := generateCandidate()
		if err != nil {
			return nil, err
		}
		if !isStrongCode(cand) {
			continue
		}
		ratio := entropyRatio(cand)
		ac := &model.ActivationCode{
			ID:            uuid.NewString(),
			Code:          cand,
			Plan:          plan,
			EntropyRatio:  ratio,
			IsHighEntropy: ratio > highEntropyThreshold,
			CreatedAt:     time.Now(),
		}
		if batch != nil {
			ac.BatchID = &batch.ID
			ac.BatchName = &batch.Name
		}
		if err := uc.codes.Insert(ctx, tx, ac); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				// keyspace collision, draw again
				*collisions++
				continue
			}
			return nil, err
		}
		return ac, nil
	}
	return nil, nil
}

// ArchiveBatch applies the administrative completed -> archived transition.
func (uc *GenerationUseCase) ArchiveBatch(ctx context.Context, batchID string) (*model.CodeBatch, error) {
	var archived *model.CodeBatch
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		batch, err := uc.batches.FindByID(ctx, tx, batchID)
		if err != nil {
			return err
		}
		if err := batch.Archive(); err != nil {
			return err
		}
		if err := uc.batches.SetStatus(ctx, tx, batch.ID, model.BatchStatusArchived); err != nil {
			return err
		}
		archived = batch
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("batch_id", batchID).Msg("batch archived")
	return archived, nil
}
