package service

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/CD-338080/Usdt-roller/internal/features/account/models"
	"github.com/CD-338080/Usdt-roller/internal/features/account/repository"
)

// memoryAccountRepository implements the repository contract in memory so
// service behavior can be exercised end to end, including the version
// check on Update and create-once semantics.
type memoryAccountRepository struct {
	mu        sync.Mutex
	accounts  map[int64]*models.Account
	referrals map[int64][]int64
	locks     map[int64]*sync.Mutex
}

func newMemoryAccountRepository() *memoryAccountRepository {
	return &memoryAccountRepository{
		accounts:  make(map[int64]*models.Account),
		referrals: make(map[int64][]int64),
		locks:     make(map[int64]*sync.Mutex),
	}
}

func (r *memoryAccountRepository) Create(ctx context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.TelegramID]; ok {
		return repository.ErrAlreadyExists
	}
	clone := *account
	r.accounts[account.TelegramID] = &clone
	return nil
}

func (r *memoryAccountRepository) GetByID(ctx context.Context, telegramID int64) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[telegramID]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	clone := *acc
	return &clone, nil
}

func (r *memoryAccountRepository) Update(ctx context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[account.TelegramID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	if stored.Version != account.Version {
		return repository.ErrVersionConflict
	}
	account.Version++
	clone := *account
	r.accounts[account.TelegramID] = &clone
	return nil
}

func (r *memoryAccountRepository) WithLock(ctx context.Context, telegramID int64, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	lock, ok := r.locks[telegramID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[telegramID] = lock
	}
	r.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn(ctx)
}

func (r *memoryAccountRepository) AddReferral(ctx context.Context, referrerID, referredID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.referrals[referrerID] = append(r.referrals[referrerID], referredID)
	return nil
}

func (r *memoryAccountRepository) ListReferralIDs(ctx context.Context, referrerID int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.referrals[referrerID]...), nil
}

// MockWelcomeSender mocks the welcome greeter.
type MockWelcomeSender struct {
	mock.Mock
	sent chan int64
}

func NewMockWelcomeSender() *MockWelcomeSender {
	return &MockWelcomeSender{sent: make(chan int64, 8)}
}

func (m *MockWelcomeSender) SendWelcome(ctx context.Context, chatID int64, firstName string) error {
	args := m.Called(ctx, chatID, firstName)
	m.sent <- chatID
	return args.Error(0)
}
