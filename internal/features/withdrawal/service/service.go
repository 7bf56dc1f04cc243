package service

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/CD-338080/Usdt-roller/internal/common/errors"
	"github.com/CD-338080/Usdt-roller/internal/common/logger"
	accountrepo "github.com/CD-338080/Usdt-roller/internal/features/account/repository"
	"github.com/CD-338080/Usdt-roller/internal/features/withdrawal/models"
	"github.com/CD-338080/Usdt-roller/internal/features/withdrawal/payout"
	"github.com/CD-338080/Usdt-roller/internal/features/withdrawal/repository"
	"github.com/CD-338080/Usdt-roller/internal/game/progression"
)

// WithdrawalService owns the payout request lifecycle. The balance debit
// (reservation) happens atomically with acceptance, before anything is
// handed to the external processor, so two requests can never spend the
// same balance. A failed submission is compensated with a credit of the
// exact reserved amount, exactly once.
type WithdrawalService interface {
	Request(ctx context.Context, telegramID int64, amount float64) (*models.Response, error)
	List(ctx context.Context, telegramID int64) ([]*models.Withdrawal, error)

	// Confirm applies the processor's final verdict for a submitted
	// withdrawal: success completes it, failure triggers the compensating
	// credit. Idempotent for terminal records.
	Confirm(ctx context.Context, id string, success bool, reason string) (*models.Withdrawal, error)
}

type withdrawalService struct {
	withdrawals repository.WithdrawalRepository
	accounts    accountrepo.AccountRepository
	processor   payout.Processor

	maxAttempts int
	backoff     func(attempt int) time.Duration
	now         func() time.Time
}

func NewWithdrawalService(withdrawals repository.WithdrawalRepository, accounts accountrepo.AccountRepository, processor payout.Processor, maxAttempts int) WithdrawalService {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &withdrawalService{
		withdrawals: withdrawals,
		accounts:    accounts,
		processor:   processor,
		maxAttempts: maxAttempts,
		backoff: func(attempt int) time.Duration {
			return time.Second << attempt
		},
		now: time.Now,
	}
}

func (s *withdrawalService) Request(ctx context.Context, telegramID int64, amount float64) (*models.Response, error) {
	if amount < progression.MinimumWithdraw {
		return nil, apperrors.NewValidationError("amount", "below the minimum withdrawal").
			WithDetail("minimum", progression.MinimumWithdraw)
	}

	var (
		w          *models.Withdrawal
		newBalance float64
	)

	err := s.accounts.WithLock(ctx, telegramID, func(ctx context.Context) error {
		acc, err := s.accounts.GetByID(ctx, telegramID)
		if err != nil {
			return err
		}

		if acc.WalletAddress == "" {
			return apperrors.New(apperrors.ErrCodeWalletRequired, "Connect a wallet before withdrawing")
		}
		if acc.ReferralCount < progression.MinimumReferrals {
			return apperrors.New(apperrors.ErrCodeInsufficientReferrals, "Not enough referrals to withdraw").
				WithDetail("referral_count", acc.ReferralCount).
				WithDetail("required", progression.MinimumReferrals)
		}
		if acc.PointsBalance < progression.MinimumWithdraw || amount > acc.PointsBalance {
			return apperrors.NewInsufficientBalanceError(acc.PointsBalance, amount)
		}

		now := s.now()
		w = &models.Withdrawal{
			ID:            uuid.New().String(),
			TelegramID:    telegramID,
			Amount:        amount,
			WalletAddress: acc.WalletAddress,
			Status:        models.StatusRequested,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		// Reservation: the debit commits together with the request record,
		// inside the account lock, before the processor sees anything.
		acc.PointsBalance -= amount
		if err := s.accounts.Update(ctx, acc); err != nil {
			return err
		}
		newBalance = acc.PointsBalance

		w.Status = models.StatusReserved
		return s.withdrawals.Create(ctx, w)
	})
	if err != nil {
		return nil, s.translate(telegramID, err)
	}

	go s.submit(w)

	return &models.Response{
		ID:            w.ID,
		Amount:        w.Amount,
		Status:        w.Status,
		PointsBalance: newBalance,
		CreatedAt:     w.CreatedAt,
	}, nil
}

func (s *withdrawalService) List(ctx context.Context, telegramID int64) ([]*models.Withdrawal, error) {
	withdrawals, err := s.withdrawals.ListByAccount(ctx, telegramID)
	if err != nil {
		return nil, s.translate(telegramID, err)
	}
	return withdrawals, nil
}

// Confirm moves a withdrawal out of the submitted state on the processor's
// word, delivered via callback or reconciliation poll. A failure reported
// after the submission was accepted goes through the same compensation as
// an exhausted submit, guarded by the same Compensated flag.
func (s *withdrawalService) Confirm(ctx context.Context, id string, success bool, reason string) (*models.Withdrawal, error) {
	w, err := s.withdrawals.GetByID(ctx, id)
	if err != nil {
		return nil, s.translate(0, err)
	}

	switch w.Status {
	case models.StatusCompleted, models.StatusFailed:
		return w, nil
	}

	if success {
		w.Status = models.StatusCompleted
		if err := s.withdrawals.Update(ctx, w); err != nil {
			return nil, s.translate(w.TelegramID, err)
		}
		logger.Info().
			Str("withdrawal_id", w.ID).
			Int64("telegram_id", w.TelegramID).
			Float64("amount", w.Amount).
			Msg("Withdrawal completed by processor")
		return w, nil
	}

	var cause error
	if reason != "" {
		cause = stderrors.New(reason)
	}
	s.compensate(ctx, w, cause)
	return w, nil
}

// submit hands the reserved withdrawal to the processor, retrying transient
// failures with exponential backoff. It runs outside the account lock;
// exhausting the attempts triggers the compensating credit.
func (s *withdrawalService) submit(w *models.Withdrawal) {
	ctx := context.Background()

	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(s.backoff(attempt - 1))
		}

		err := s.processor.Submit(ctx, w.ID, w.WalletAddress, w.Amount)
		if err == nil {
			w.Status = models.StatusSubmitted
			if err := s.withdrawals.Update(ctx, w); err != nil {
				logger.Error().Err(err).Str("withdrawal_id", w.ID).Msg("Failed to persist submitted status")
			}
			logger.Info().
				Str("withdrawal_id", w.ID).
				Int64("telegram_id", w.TelegramID).
				Float64("amount", w.Amount).
				Msg("Withdrawal submitted to payout processor")
			return
		}

		lastErr = err
		logger.Warn().
			Err(err).
			Str("withdrawal_id", w.ID).
			Int("attempt", attempt+1).
			Msg("Payout submission failed")
	}

	s.compensate(ctx, w, lastErr)
}

// compensate credits the reserved amount back and marks the request failed.
// Guarded by the Compensated flag so a crash-and-retry cannot double-credit.
func (s *withdrawalService) compensate(ctx context.Context, w *models.Withdrawal, cause error) {
	err := s.accounts.WithLock(ctx, w.TelegramID, func(ctx context.Context) error {
		current, err := s.withdrawals.GetByID(ctx, w.ID)
		if err != nil {
			return err
		}
		if current.Compensated {
			return nil
		}

		acc, err := s.accounts.GetByID(ctx, w.TelegramID)
		if err != nil {
			return err
		}

		acc.PointsBalance += current.Amount
		if err := s.accounts.Update(ctx, acc); err != nil {
			return err
		}

		current.Status = models.StatusFailed
		current.Compensated = true
		if cause != nil {
			current.FailureReason = cause.Error()
		}
		*w = *current
		return s.withdrawals.Update(ctx, current)
	})
	if err != nil {
		logger.Error().
			Err(err).
			Str("withdrawal_id", w.ID).
			Int64("telegram_id", w.TelegramID).
			Msg("Failed to compensate withdrawal")
		return
	}

	logger.Info().
		Str("withdrawal_id", w.ID).
		Int64("telegram_id", w.TelegramID).
		Float64("amount", w.Amount).
		Msg("Withdrawal failed and compensated")
}

func (s *withdrawalService) translate(telegramID int64, err error) error {
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	switch {
	case stderrors.Is(err, accountrepo.ErrAccountNotFound):
		return apperrors.NewAccountNotFoundError(telegramID)
	case stderrors.Is(err, accountrepo.ErrVersionConflict):
		return apperrors.Wrap(err, apperrors.ErrCodeConflict, "Concurrent modification, retry the request")
	case stderrors.Is(err, accountrepo.ErrLockTimeout):
		return apperrors.Wrap(err, apperrors.ErrCodeLockTimeout, "Account is busy, retry the request")
	case stderrors.Is(err, repository.ErrWithdrawalNotFound):
		return apperrors.New(apperrors.ErrCodeWithdrawalNotFound, "Withdrawal not found")
	default:
		return apperrors.NewDatabaseError("withdrawal", err)
	}
}
