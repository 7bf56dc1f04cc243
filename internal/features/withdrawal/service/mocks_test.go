package service

import (
	"context"
	"sort"
	"sync"

	"github.com/stretchr/testify/mock"

	accountmodels "github.com/CD-338080/Usdt-roller/internal/features/account/models"
	accountrepo "github.com/CD-338080/Usdt-roller/internal/features/account/repository"
	"github.com/CD-338080/Usdt-roller/internal/features/withdrawal/models"
	"github.com/CD-338080/Usdt-roller/internal/features/withdrawal/repository"
)

type memoryWithdrawalRepository struct {
	mu      sync.Mutex
	records map[string]*models.Withdrawal
}

func newMemoryWithdrawalRepository() *memoryWithdrawalRepository {
	return &memoryWithdrawalRepository{records: make(map[string]*models.Withdrawal)}
}

func (r *memoryWithdrawalRepository) Create(ctx context.Context, w *models.Withdrawal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *w
	r.records[w.ID] = &clone
	return nil
}

func (r *memoryWithdrawalRepository) GetByID(ctx context.Context, id string) (*models.Withdrawal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.records[id]
	if !ok {
		return nil, repository.ErrWithdrawalNotFound
	}
	clone := *w
	return &clone, nil
}

func (r *memoryWithdrawalRepository) Update(ctx context.Context, w *models.Withdrawal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[w.ID]; !ok {
		return repository.ErrWithdrawalNotFound
	}
	clone := *w
	r.records[w.ID] = &clone
	return nil
}

func (r *memoryWithdrawalRepository) ListByAccount(ctx context.Context, telegramID int64) ([]*models.Withdrawal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Withdrawal
	for _, w := range r.records {
		if w.TelegramID == telegramID {
			clone := *w
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type memoryAccountRepository struct {
	mu       sync.Mutex
	accounts map[int64]*accountmodels.Account
}

func newMemoryAccountRepository() *memoryAccountRepository {
	return &memoryAccountRepository{accounts: make(map[int64]*accountmodels.Account)}
}

func (r *memoryAccountRepository) put(acc *accountmodels.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *acc
	r.accounts[acc.TelegramID] = &clone
}

func (r *memoryAccountRepository) Create(ctx context.Context, acc *accountmodels.Account) error {
	r.put(acc)
	return nil
}

func (r *memoryAccountRepository) GetByID(ctx context.Context, telegramID int64) (*accountmodels.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[telegramID]
	if !ok {
		return nil, accountrepo.ErrAccountNotFound
	}
	clone := *acc
	return &clone, nil
}

func (r *memoryAccountRepository) Update(ctx context.Context, acc *accountmodels.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[acc.TelegramID]
	if !ok {
		return accountrepo.ErrAccountNotFound
	}
	if stored.Version != acc.Version {
		return accountrepo.ErrVersionConflict
	}
	acc.Version++
	clone := *acc
	r.accounts[acc.TelegramID] = &clone
	return nil
}

func (r *memoryAccountRepository) WithLock(ctx context.Context, telegramID int64, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (r *memoryAccountRepository) AddReferral(ctx context.Context, referrerID, referredID int64) error {
	return nil
}

func (r *memoryAccountRepository) ListReferralIDs(ctx context.Context, referrerID int64) ([]int64, error) {
	return nil, nil
}

// MockProcessor mocks the external payout processor; done is signalled
// after every Submit call so tests can wait for the async pipeline.
type MockProcessor struct {
	mock.Mock
	done chan struct{}
}

func NewMockProcessor() *MockProcessor {
	return &MockProcessor{done: make(chan struct{}, 16)}
}

func (m *MockProcessor) Submit(ctx context.Context, referenceID, walletAddress string, amount float64) error {
	args := m.Called(ctx, referenceID, walletAddress, amount)
	m.done <- struct{}{}
	return args.Error(0)
}
