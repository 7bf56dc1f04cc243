package repository

import (
	"context"
	"errors"

	"github.com/CD-338080/Usdt-roller/internal/features/account/models"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAlreadyExists   = errors.New("account already exists")
	ErrVersionConflict = errors.New("account version conflict")
	ErrLockTimeout     = errors.New("account lock timeout")
)

// AccountRepository is the ledger boundary: records are only changed through
// read-modify-write under WithLock, never via field setters from outside.
type AccountRepository interface {
	// Create stores a new record, failing with ErrAlreadyExists if the key
	// is taken. Used for the create-once semantics of account sync.
	Create(ctx context.Context, account *models.Account) error

	GetByID(ctx context.Context, telegramID int64) (*models.Account, error)

	// Update commits a mutated record. The stored version must match
	// account.Version or ErrVersionConflict is returned; on success the
	// version is bumped. Callers hold the account lock.
	Update(ctx context.Context, account *models.Account) error

	// WithLock runs fn while holding the per-account exclusive lock,
	// serializing concurrent mutations of the same account. Operations on
	// different accounts proceed in parallel.
	WithLock(ctx context.Context, telegramID int64, fn func(ctx context.Context) error) error

	// AddReferral records a referral edge for list queries.
	AddReferral(ctx context.Context, referrerID, referredID int64) error

	ListReferralIDs(ctx context.Context, referrerID int64) ([]int64, error)
}
