package repository

import (
	"context"
	"errors"

	"github.com/CD-338080/Usdt-roller/internal/features/withdrawal/models"
)

var ErrWithdrawalNotFound = errors.New("withdrawal not found")

type WithdrawalRepository interface {
	Create(ctx context.Context, w *models.Withdrawal) error
	GetByID(ctx context.Context, id string) (*models.Withdrawal, error)
	Update(ctx context.Context, w *models.Withdrawal) error
	ListByAccount(ctx context.Context, telegramID int64) ([]*models.Withdrawal, error)
}
