//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"subscription-activation/internal/domain"
	"subscription-activation/internal/domain/model"
	"subscription-activation/internal/domain/ports/adapter"
	"subscription-activation/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// ---- Mock TransactionManager ----

// MockTxManager runs the callback without a real transaction.
type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, nil)
}

// ---- Mock ActivationCodeRepository ----

// MockActivationCodeRepo is an in-memory store with optional func overrides.
type MockActivationCodeRepo struct {
	mu    sync.Mutex
	codes map[string]*model.ActivationCode // keyed by code string

	InsertFunc       func(ctx context.Context, tx repository.Tx, code *model.ActivationCode) error
	FindByCodeFunc   func(ctx context.Context, tx repository.Tx, code string) (*model.ActivationCode, error)
	MarkRedeemedFunc func(ctx context.Context, tx repository.Tx, codeID, userID string, at time.Time) error
}

var _ repository.ActivationCodeRepository = (*MockActivationCodeRepo)(nil)

func NewMockActivationCodeRepo() *MockActivationCodeRepo {
	return &MockActivationCodeRepo{codes: make(map[string]*model.ActivationCode)}
}

func (m *MockActivationCodeRepo) Insert(ctx context.Context, tx repository.Tx, code *model.ActivationCode) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, tx, code)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.codes[code.Code]; exists {
		return domain.ErrAlreadyExists
	}
	cp := *code
	m.codes[code.Code] = &cp
	return nil
}

func (m *MockActivationCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.ActivationCode, error) {
	if m.FindByCodeFunc != nil {
		return m.FindByCodeFunc(ctx, tx, code)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ac, ok := m.codes[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *ac
	return &cp, nil
}

// MarkRedeemed mirrors the store's compare-and-swap: it mutates under the
// mutex and reports already-used when another caller won.
func (m *MockActivationCodeRepo) MarkRedeemed(ctx context.Context, tx repository.Tx, codeID, userID string, at time.Time) error {
	if m.MarkRedeemedFunc != nil {
		return m.MarkRedeemedFunc(ctx, tx, codeID, userID, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ac := range m.codes {
		if ac.ID == codeID {
			if ac.IsUsed {
				return domain.ErrCodeAlreadyUsed
			}
			ac.IsUsed = true
			ac.UsedBy = &userID
			t := at
			ac.UsedAt = &t
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MockActivationCodeRepo) ListByBatch(ctx context.Context, tx repository.Tx, batchID string) ([]*model.ActivationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ActivationCode
	for _, ac := range m.codes {
		if ac.BatchID != nil && *ac.BatchID == batchID {
			cp := *ac
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockActivationCodeRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.codes)
}

// ---- Mock CodeBatchRepository ----

type MockCodeBatchRepo struct {
	mu      sync.Mutex
	batches map[string]*model.CodeBatch

	InsertFunc             func(ctx context.Context, tx repository.Tx, batch *model.CodeBatch) error
	FindByIDFunc           func(ctx context.Context, tx repository.Tx, id string) (*model.CodeBatch, error)
	IncrementCodesUsedFunc func(ctx context.Context, tx repository.Tx, batchID string) error
}

var _ repository.CodeBatchRepository = (*MockCodeBatchRepo)(nil)

func NewMockCodeBatchRepo() *MockCodeBatchRepo {
	return &MockCodeBatchRepo{batches: make(map[string]*model.CodeBatch)}
}

func (m *MockCodeBatchRepo) Insert(ctx context.Context, tx repository.Tx, batch *model.CodeBatch) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, tx, batch)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.batches {
		if b.Name == batch.Name {
			return domain.ErrDuplicateBatchName
		}
	}
	cp := *batch
	m.batches[batch.ID] = &cp
	return nil
}

func (m *MockCodeBatchRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CodeBatch, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *MockCodeBatchRepo) Finalize(ctx context.Context, tx repository.Tx, batch *model.CodeBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.batches[batch.ID]
	if !ok || stored.Status != model.BatchStatusActive {
		return domain.ErrNotFound
	}
	cp := *batch
	m.batches[batch.ID] = &cp
	return nil
}

func (m *MockCodeBatchRepo) IncrementCodesUsed(ctx context.Context, tx repository.Tx, batchID string) error {
	if m.IncrementCodesUsedFunc != nil {
		return m.IncrementCodesUsedFunc(ctx, tx, batchID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[batchID]
	if !ok || b.CodesUsed >= b.CodesGenerated {
		return domain.ErrNotFound
	}
	b.CodesUsed++
	return nil
}

func (m *MockCodeBatchRepo) SetStatus(ctx context.Context, tx repository.Tx, batchID string, status model.BatchStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[batchID]
	if !ok || b.Status != model.BatchStatusCompleted {
		return domain.ErrBatchNotCompleted
	}
	b.Status = status
	return nil
}

// ---- Mock SubscriptionRepository ----

type MockSubscriptionRepo struct {
	mu   sync.Mutex
	subs map[string]*model.Subscription // keyed by id

	InsertFunc           func(ctx context.Context, tx repository.Tx, sub *model.Subscription) error
	UpdateFunc           func(ctx context.Context, tx repository.Tx, sub *model.Subscription) error
	FindActiveByUserFunc func(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error)
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{subs: make(map[string]*model.Subscription)}
}

func (m *MockSubscriptionRepo) Insert(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, tx, sub)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.UserID == sub.UserID && s.Active {
			return domain.ErrAlreadyExists
		}
	}
	cp := *sub
	m.subs[sub.ID] = &cp
	return nil
}

func (m *MockSubscriptionRepo) Update(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, sub)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[sub.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *sub
	m.subs[sub.ID] = &cp
	return nil
}

func (m *MockSubscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	if m.FindActiveByUserFunc != nil {
		return m.FindActiveByUserFunc(ctx, tx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.UserID == userID && s.Active {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockSubscriptionRepo) CountByStatus(ctx context.Context) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var active, lapsed int
	for _, s := range m.subs {
		if s.Active && !s.IsExpired(now) {
			active++
		} else {
			lapsed++
		}
	}
	return active, lapsed, nil
}

// ---- Mock Locker ----

type MockLocker struct {
	mu   sync.Mutex
	held map[string]string
}

var _ adapter.Locker = (*MockLocker)(nil)

func NewMockLocker() *MockLocker { return &MockLocker{held: make(map[string]string)} }

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	for i := 0; i < 50; i++ {
		l.mu.Lock()
		if _, busy := l.held[key]; !busy {
			l.held[key] = key
			l.mu.Unlock()
			return key, nil
		}
		l.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	return "", domain.ErrAlreadyExists
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}
