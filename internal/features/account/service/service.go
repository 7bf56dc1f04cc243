package service

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/xssnick/tonutils-go/address"

	apperrors "github.com/CD-338080/Usdt-roller/internal/common/errors"
	"github.com/CD-338080/Usdt-roller/internal/common/logger"
	"github.com/CD-338080/Usdt-roller/internal/features/account/models"
	"github.com/CD-338080/Usdt-roller/internal/features/account/repository"
	"github.com/CD-338080/Usdt-roller/internal/game/energy"
	"github.com/CD-338080/Usdt-roller/internal/game/mine"
	"github.com/CD-338080/Usdt-roller/internal/game/progression"
)

// conflictRetries bounds transparent retries of a read-validate-commit
// cycle that lost a version race; the cycle has no partial effect.
const conflictRetries = 3

// bonusStreakGrace is how long after a claim the streak survives; one
// missed day past the 24h cooldown resets it.
const bonusStreakGrace = 48 * time.Hour

// CreateParams carries the identity fields of the platform session plus the
// optional referrer from the invite deep link.
type CreateParams struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
	IsPremium  bool
	ReferrerID int64
}

// WelcomeSender greets freshly created accounts. It runs outside the
// account lock and its failures never fail the creating request.
type WelcomeSender interface {
	SendWelcome(ctx context.Context, chatID int64, firstName string) error
}

// AccountService is the reconciliation gateway: every client intent is
// validated against current ledger state, applied atomically under the
// per-account lock, and answered with the canonical post-state.
type AccountService interface {
	SyncAccount(ctx context.Context, params CreateParams) (*models.Snapshot, error)
	Tap(ctx context.Context, telegramID int64) (*models.Snapshot, error)
	PurchaseUpgrade(ctx context.Context, telegramID int64, kind progression.UpgradeKind) (*models.Snapshot, error)
	RefillEnergy(ctx context.Context, telegramID int64) (*models.Snapshot, error)
	ClaimMineProfit(ctx context.Context, telegramID int64) (*models.ClaimResult, error)
	MineStatus(ctx context.Context, telegramID int64) (*models.MineStatus, error)
	ClaimDailyBonus(ctx context.Context, telegramID int64) (*models.BonusResult, error)
	ListReferrals(ctx context.Context, telegramID int64) (*models.ReferralList, error)
	ConnectWallet(ctx context.Context, telegramID int64, walletAddress string) (*models.Snapshot, error)
	DisconnectWallet(ctx context.Context, telegramID int64) (*models.Snapshot, error)
}

type accountService struct {
	repo    repository.AccountRepository
	welcome WelcomeSender
	now     func() time.Time
}

func NewAccountService(repo repository.AccountRepository, welcome WelcomeSender) AccountService {
	return &accountService{
		repo:    repo,
		welcome: welcome,
		now:     time.Now,
	}
}

// settle advances the account's time-based state to now: the rolling refill
// window and passive energy regeneration. Idempotent for a fixed now.
func settle(acc *models.Account, now time.Time) {
	acc.EnergyRefillsLeft, acc.EnergyWindowStartAt = energy.ResetWindow(acc.EnergyRefillsLeft, acc.EnergyWindowStartAt, now)

	capacity := progression.EnergyCapacity(acc.EnergyLimitLevelIndex)
	acc.Energy = energy.Regenerate(acc.Energy, capacity, acc.LastEnergyUpdateAt, now)
	acc.LastEnergyUpdateAt = now
}

// mutate runs fn on the current record under the account lock and commits
// the result. Version conflicts are retried transparently; fn must be pure
// apart from mutating the account it is handed.
func (s *accountService) mutate(ctx context.Context, telegramID int64, fn func(acc *models.Account, now time.Time) error) (*models.Account, error) {
	var result *models.Account

	err := s.repo.WithLock(ctx, telegramID, func(ctx context.Context) error {
		for attempt := 0; attempt < conflictRetries; attempt++ {
			acc, err := s.repo.GetByID(ctx, telegramID)
			if err != nil {
				return err
			}

			now := s.now()
			settle(acc, now)

			if err := fn(acc, now); err != nil {
				return err
			}

			err = s.repo.Update(ctx, acc)
			if err == nil {
				result = acc
				return nil
			}
			if !stderrors.Is(err, repository.ErrVersionConflict) {
				return err
			}
		}
		return repository.ErrVersionConflict
	})
	if err != nil {
		return nil, s.translate(telegramID, err)
	}
	return result, nil
}

// translate maps repository failures onto the application error taxonomy;
// AppErrors produced inside fn pass through untouched.
func (s *accountService) translate(telegramID int64, err error) error {
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	switch {
	case stderrors.Is(err, repository.ErrAccountNotFound):
		return apperrors.NewAccountNotFoundError(telegramID)
	case stderrors.Is(err, repository.ErrVersionConflict):
		return apperrors.Wrap(err, apperrors.ErrCodeConflict, "Concurrent modification, retry the request")
	case stderrors.Is(err, repository.ErrLockTimeout):
		return apperrors.Wrap(err, apperrors.ErrCodeLockTimeout, "Account is busy, retry the request")
	default:
		return apperrors.NewDatabaseError("account", err)
	}
}

func (s *accountService) SyncAccount(ctx context.Context, params CreateParams) (*models.Snapshot, error) {
	_, err := s.repo.GetByID(ctx, params.TelegramID)
	if err == nil {
		return s.refreshExisting(ctx, params)
	}
	if !stderrors.Is(err, repository.ErrAccountNotFound) {
		return nil, s.translate(params.TelegramID, err)
	}

	return s.createAccount(ctx, params)
}

func (s *accountService) refreshExisting(ctx context.Context, params CreateParams) (*models.Snapshot, error) {
	updated, err := s.mutate(ctx, params.TelegramID, func(acc *models.Account, now time.Time) error {
		acc.Username = params.Username
		acc.FirstName = params.FirstName
		acc.LastName = params.LastName
		acc.IsPremium = params.IsPremium
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated.ToSnapshot(), nil
}

func (s *accountService) createAccount(ctx context.Context, params CreateParams) (*models.Snapshot, error) {
	now := s.now()

	referrerID := params.ReferrerID
	if referrerID == params.TelegramID {
		referrerID = 0
	}
	if referrerID != 0 {
		if _, err := s.repo.GetByID(ctx, referrerID); err != nil {
			// A stale invite link must not brick account creation; the
			// account is created without the referral edge.
			logger.Warn().
				Int64("telegram_id", params.TelegramID).
				Int64("referrer_id", referrerID).
				Msg("Referrer not found, creating account without referral")
			referrerID = 0
		}
	}

	capacity := progression.EnergyCapacity(0)
	acc := &models.Account{
		TelegramID:           params.TelegramID,
		Username:             params.Username,
		FirstName:            params.FirstName,
		LastName:             params.LastName,
		IsPremium:            params.IsPremium,
		Energy:               capacity,
		EnergyRefillsLeft:    energy.MaxRefillsPerDay,
		EnergyWindowStartAt:  now,
		LastEnergyUpdateAt:   now,
		LastMineClaimAt:      now,
		ReferrerID:           referrerID,
		NextBonusAvailableAt: now,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.repo.Create(ctx, acc); err != nil {
		if stderrors.Is(err, repository.ErrAlreadyExists) {
			// Lost the creation race to a duplicate request; the winner's
			// record is canonical, including any referral bonus it earned.
			existing, err := s.repo.GetByID(ctx, params.TelegramID)
			if err != nil {
				return nil, s.translate(params.TelegramID, err)
			}
			return existing.ToSnapshot(), nil
		}
		return nil, s.translate(params.TelegramID, err)
	}

	if referrerID != 0 {
		if err := s.processReferral(ctx, params.TelegramID, referrerID); err != nil {
			logger.Error().
				Err(err).
				Int64("telegram_id", params.TelegramID).
				Int64("referrer_id", referrerID).
				Msg("Failed to process referral bonus")
		}
	}

	if s.welcome != nil {
		go func(chatID int64, name string) {
			sendCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.welcome.SendWelcome(sendCtx, chatID, name); err != nil {
				logger.Warn().Err(err).Int64("telegram_id", chatID).Msg("Failed to send welcome message")
			}
		}(params.TelegramID, params.FirstName)
	}

	final, err := s.repo.GetByID(ctx, params.TelegramID)
	if err != nil {
		return nil, s.translate(params.TelegramID, err)
	}
	return final.ToSnapshot(), nil
}

// processReferral credits the one-time bonus to both sides. Both account
// locks are taken in ascending ID order to avoid deadlocks; the
// ReferralProcessed marker makes creation retries safe.
func (s *accountService) processReferral(ctx context.Context, referredID, referrerID int64) error {
	first, second := referredID, referrerID
	if second < first {
		first, second = second, first
	}

	return s.repo.WithLock(ctx, first, func(ctx context.Context) error {
		return s.repo.WithLock(ctx, second, func(ctx context.Context) error {
			referred, err := s.repo.GetByID(ctx, referredID)
			if err != nil {
				return err
			}
			if referred.ReferralProcessed || referred.ReferrerID != referrerID {
				return nil
			}

			referrer, err := s.repo.GetByID(ctx, referrerID)
			if err != nil {
				return err
			}

			// The bonus is spendable balance only; the lifetime total that
			// drives level progression grows through taps alone.
			bonus := progression.ReferralBonus(referred.IsPremium)

			referred.PointsBalance += bonus
			referred.ReferralProcessed = true

			referrer.PointsBalance += bonus
			referrer.ReferralCount++
			referrer.ReferralPointsEarned += bonus

			if err := s.repo.Update(ctx, referred); err != nil {
				return err
			}
			if err := s.repo.Update(ctx, referrer); err != nil {
				return err
			}

			return s.repo.AddReferral(ctx, referrerID, referredID)
		})
	})
}

func (s *accountService) Tap(ctx context.Context, telegramID int64) (*models.Snapshot, error) {
	acc, err := s.mutate(ctx, telegramID, func(acc *models.Account, now time.Time) error {
		if !energy.CanTap(acc.Energy) {
			return apperrors.NewInsufficientEnergyError(acc.Energy)
		}

		reward := progression.PointsPerTap(acc.MultitapLevelIndex)
		acc.Energy--
		acc.Points += reward
		acc.PointsBalance += reward
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc.ToSnapshot(), nil
}

func (s *accountService) PurchaseUpgrade(ctx context.Context, telegramID int64, kind progression.UpgradeKind) (*models.Snapshot, error) {
	if !kind.Valid() {
		return nil, apperrors.NewValidationError("kind", "unknown upgrade kind")
	}

	acc, err := s.mutate(ctx, telegramID, func(acc *models.Account, now time.Time) error {
		var level *int
		switch kind {
		case progression.UpgradeMultitap:
			level = &acc.MultitapLevelIndex
		case progression.UpgradeEnergyLimit:
			level = &acc.EnergyLimitLevelIndex
		case progression.UpgradeMine:
			level = &acc.MineLevelIndex
		}

		cost := progression.UpgradeCost(kind, *level)
		if acc.PointsBalance < cost {
			return apperrors.NewInsufficientBalanceError(acc.PointsBalance, cost)
		}

		acc.PointsBalance -= cost
		*level++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc.ToSnapshot(), nil
}

func (s *accountService) RefillEnergy(ctx context.Context, telegramID int64) (*models.Snapshot, error) {
	acc, err := s.mutate(ctx, telegramID, func(acc *models.Account, now time.Time) error {
		if !energy.CanRefill(acc.EnergyRefillsLeft) {
			return apperrors.New(apperrors.ErrCodeNoRefillsLeft, "No energy refills left today")
		}

		acc.Energy = progression.EnergyCapacity(acc.EnergyLimitLevelIndex)
		acc.EnergyRefillsLeft--
		acc.LastEnergyRefillAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc.ToSnapshot(), nil
}

func (s *accountService) ClaimMineProfit(ctx context.Context, telegramID int64) (*models.ClaimResult, error) {
	var claimed float64
	acc, err := s.mutate(ctx, telegramID, func(acc *models.Account, now time.Time) error {
		rate := progression.ProfitPerHour(acc.MineLevelIndex)
		claimed = mine.Available(rate, acc.LastMineClaimAt, now)

		acc.PointsBalance += claimed
		acc.LastMineClaimAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &models.ClaimResult{
		CreditedAmount: claimed,
		PointsBalance:  acc.PointsBalance,
		LastClaimTime:  acc.LastMineClaimAt,
	}, nil
}

func (s *accountService) MineStatus(ctx context.Context, telegramID int64) (*models.MineStatus, error) {
	acc, err := s.repo.GetByID(ctx, telegramID)
	if err != nil {
		return nil, s.translate(telegramID, err)
	}

	rate := progression.ProfitPerHour(acc.MineLevelIndex)
	return &models.MineStatus{
		AvailableProfit: mine.Available(rate, acc.LastMineClaimAt, s.now()),
		ProfitPerHour:   rate,
		LastClaimTime:   acc.LastMineClaimAt,
	}, nil
}

func (s *accountService) ClaimDailyBonus(ctx context.Context, telegramID int64) (*models.BonusResult, error) {
	var credited float64
	acc, err := s.mutate(ctx, telegramID, func(acc *models.Account, now time.Time) error {
		if now.Before(acc.NextBonusAvailableAt) {
			return apperrors.New(apperrors.ErrCodeBonusNotReady, "Daily bonus not available yet").
				WithDetail("next_available_at", acc.NextBonusAvailableAt)
		}

		streak := 0
		if !acc.LastBonusClaimAt.IsZero() && now.Sub(acc.LastBonusClaimAt) < bonusStreakGrace {
			streak = acc.BonusStreak + 1
		}

		credited = progression.DailyReward(streak)
		acc.PointsBalance += credited
		acc.BonusStreak = streak
		acc.LastBonusClaimAt = now
		acc.NextBonusAvailableAt = now.Add(24 * time.Hour)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &models.BonusResult{
		CreditedAmount:       credited,
		BonusStreak:          acc.BonusStreak,
		PointsBalance:        acc.PointsBalance,
		NextBonusAvailableAt: acc.NextBonusAvailableAt,
	}, nil
}

func (s *accountService) ListReferrals(ctx context.Context, telegramID int64) (*models.ReferralList, error) {
	owner, err := s.repo.GetByID(ctx, telegramID)
	if err != nil {
		return nil, s.translate(telegramID, err)
	}

	ids, err := s.repo.ListReferralIDs(ctx, telegramID)
	if err != nil {
		return nil, s.translate(telegramID, err)
	}

	referrals := make([]*models.ReferralSummary, 0, len(ids))
	for _, id := range ids {
		referred, err := s.repo.GetByID(ctx, id)
		if err != nil {
			continue
		}

		name := referred.FirstName
		if name == "" {
			name = referred.Username
		}

		levelIdx := progression.LevelIndex(referred.Points)
		referrals = append(referrals, &models.ReferralSummary{
			TelegramID:   referred.TelegramID,
			Name:         name,
			LevelName:    progression.Levels[levelIdx].Name,
			Points:       referred.Points,
			PointsEarned: progression.ReferralBonus(referred.IsPremium),
		})
	}

	return &models.ReferralList{
		ReferralCount: owner.ReferralCount,
		Referrals:     referrals,
	}, nil
}

func (s *accountService) ConnectWallet(ctx context.Context, telegramID int64, walletAddress string) (*models.Snapshot, error) {
	parsed, err := address.ParseAddr(walletAddress)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidWallet, "Invalid wallet address")
	}

	acc, err := s.mutate(ctx, telegramID, func(acc *models.Account, now time.Time) error {
		acc.WalletAddress = parsed.String()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc.ToSnapshot(), nil
}

func (s *accountService) DisconnectWallet(ctx context.Context, telegramID int64) (*models.Snapshot, error) {
	acc, err := s.mutate(ctx, telegramID, func(acc *models.Account, now time.Time) error {
		acc.WalletAddress = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc.ToSnapshot(), nil
}
