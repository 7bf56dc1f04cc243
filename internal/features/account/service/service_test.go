package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/CD-338080/Usdt-roller/internal/common/errors"
	"github.com/CD-338080/Usdt-roller/internal/game/energy"
	"github.com/CD-338080/Usdt-roller/internal/game/progression"
)

// validWallet is a syntactically valid mainnet address with a correct
// checksum; any corruption of it fails parsing.
const validWallet = "EQCD39VS5jcptHL8vMjEXrzpaMj96pZccqSJI4WqQkRiV1cF"

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(repo *memoryAccountRepository, welcome WelcomeSender) (*accountService, *testClock) {
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return &accountService{
		repo:    repo,
		welcome: welcome,
		now:     clock.Now,
	}, clock
}

func createAccount(t *testing.T, svc *accountService, id int64) {
	t.Helper()
	_, err := svc.SyncAccount(context.Background(), CreateParams{
		TelegramID: id,
		Username:   "player",
		FirstName:  "Player",
	})
	require.NoError(t, err)
}

func TestSyncAccountCreatesWithDefaults(t *testing.T) {
	repo := newMemoryAccountRepository()
	svc, _ := newTestService(repo, nil)

	snap, err := svc.SyncAccount(context.Background(), CreateParams{
		TelegramID: 100,
		Username:   "alice",
		FirstName:  "Alice",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(100), snap.TelegramID)
	assert.Equal(t, 0.0, snap.Points)
	assert.Equal(t, progression.EnergyCapacity(0), snap.Energy)
	assert.Equal(t, energy.MaxRefillsPerDay, snap.EnergyRefillsLeft)
	assert.Equal(t, "USDT Novice", snap.LevelName)
	assert.Equal(t, progression.PointsPerTap(0), snap.PointsPerTap)
}

func TestSyncAccountRefreshesIdentity(t *testing.T) {
	repo := newMemoryAccountRepository()
	svc, _ := newTestService(repo, nil)
	createAccount(t, svc, 100)

	snap, err := svc.SyncAccount(context.Background(), CreateParams{
		TelegramID: 100,
		Username:   "renamed",
		FirstName:  "Renamed",
		IsPremium:  true,
	})

	require.NoError(t, err)
	acc, err := repo.GetByID(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, "renamed", acc.Username)
	assert.True(t, acc.IsPremium)
	assert.Equal(t, int64(100), snap.TelegramID)
}

func TestSyncAccountSendsWelcomeOnce(t *testing.T) {
	repo := newMemoryAccountRepository()
	welcome := NewMockWelcomeSender()
	welcome.On("SendWelcome", mock.Anything, int64(100), "Alice").Return(nil)
	svc, _ := newTestService(repo, welcome)

	_, err := svc.SyncAccount(context.Background(), CreateParams{TelegramID: 100, FirstName: "Alice"})
	require.NoError(t, err)

	select {
	case chatID := <-welcome.sent:
		assert.Equal(t, int64(100), chatID)
	case <-time.After(time.Second):
		t.Fatal("welcome message was not sent")
	}

	// Repeated sync of an existing account must not greet again.
	_, err = svc.SyncAccount(context.Background(), CreateParams{TelegramID: 100, FirstName: "Alice"})
	require.NoError(t, err)
	select {
	case <-welcome.sent:
		t.Fatal("welcome sent twice")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSyncAccountCreditsReferralOnce(t *testing.T) {
	repo := newMemoryAccountRepository()
	svc, _ := newTestService(repo, nil)
	createAccount(t, svc, 1)

	params := CreateParams{TelegramID: 2, Username: "bob", ReferrerID: 1}
	bonus := progression.ReferralBonus(false)

	snap, err := svc.SyncAccount(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, bonus, snap.PointsBalance)
	// The bonus never advances level progression.
	assert.Equal(t, 0.0, snap.Points)

	referrer, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, bonus, referrer.PointsBalance)
	assert.Equal(t, 0.0, referrer.Points)
	assert.Equal(t, 1, referrer.ReferralCount)
	assert.Equal(t, bonus, referrer.ReferralPointsEarned)

	// A retried creation request must not double-credit.
	_, err = svc.SyncAccount(context.Background(), params)
	require.NoError(t, err)

	referrer, err = repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, bonus, referrer.PointsBalance)
	assert.Equal(t, 1, referrer.ReferralCount)

	referred, err := repo.GetByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, bonus, referred.PointsBalance)
}

func TestSyncAccountUnknownReferrerIsIgnored(t *testing.T) {
	repo := newMemoryAccountRepository()
	svc, _ := newTestService(repo, nil)

	snap, err := svc.SyncAccount(context.Background(), CreateParams{TelegramID: 2, ReferrerID: 999})
	require.NoError(t, err)
	assert.Equal(t, 0.0, snap.PointsBalance)

	acc, err := repo.GetByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), acc.ReferrerID)
}

func TestSyncAccountSelfReferralIsIgnored(t *testing.T) {
	repo := newMemoryAccountRepository()
	svc, _ := newTestService(repo, nil)

	snap, err := svc.SyncAccount(context.Background(), CreateParams{TelegramID: 5, ReferrerID: 5})
	require.NoError(t, err)
	assert.Equal(t, 0.0, snap.PointsBalance)
	assert.Equal(t, 0, snap.ReferralCount)
}

func TestTapSpendsEnergyAndCreditsPoints(t *testing.T) {
	repo := newMemoryAccountRepository()
	svc, _ := newTestService(repo, nil)
	createAccount(t, svc, 100)

	reward := progression.PointsPerTap(0)
	capacity := progression.EnergyCapacity(0)

	var last float64
	for i := 0; i < 10; i++ {
		snap, err := svc.Tap(context.Background(), 100)
		require.NoError(t, err)
		last = snap.Points
		assert.Equal(t, capacity-float64(i+1), snap.Energy)
	}
	assert.Equal(t, 10*reward, last)
}

func TestTapRejectedWithoutEnergy(t *testing.T) {
	repo := newMemoryAccountRepository()
	svc, _ := newTestService(repo, nil)
	createAccount(t, svc, 100)

	capacity := int(progression.EnergyCapacity(0))
	for i := 0; i < capacity; i++ {
		_, err := svc.Tap(context.Background(), 100)
		require.NoError(t, err)
	}

	_, err := svc.Tap(context.Background(), 100)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeInsufficientEnergy, appErr.Code)

	// The failed tap left the record untouched.
	acc, err := repo.GetByID(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, float64(capacity)*progression.PointsPerTap(0), acc.Points)
}

func TestTapEnergyRegeneratesOverTime(t *testing.T) {
	repo := newMemoryAccountRepository()
	svc, clock := newTestService(repo, nil)
	createAccount(t, svc, 100)

	capacity := int(progression.EnergyCapacity(0))
	for i := 0; i < capacity; i++ {
		_, err := svc.Tap(context.Background(), 100)
		require.NoError(t, err)
	}

	// A full regeneration period restores a drained bar to capacity.
	clock.Advance(energy.RegenPeriod)
	snap, err := svc.Tap(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, progression.EnergyCapacity(0)-1, snap.Energy)
}

func TestPurchaseUpgradeDeductsCostAndRaisesLevel(t *testing.T) {
	repo := newMemoryAccountRepository()
	svc, _ := newTestService(repo, nil)
	createAccount(t, svc, 100)

	cost := progression.UpgradeCost(progression.UpgradeMultitap, 0)
	seedBalance(t, repo, 100, cost+7)

	snap, err := svc.PurchaseUpgrade(context.Background(), 100, progression.UpgradeMultitap)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.MultitapLevelIndex)
	assert.Equal(t, 7.0, snap.PointsBalance)
	assert.Equal(t, progression.PointsPerTap(1), snap.PointsPerTap)
	assert.Equal(t, progression.UpgradeCost(progression.UpgradeMultitap, 1), snap.MultitapUpgradeCost)
}

func TestPurchaseUpgradeInsufficientBalance(t *testing.T) {
	repo := newMemoryAccountRepository()
	svc, _ := newTestService(repo, nil)
	createAccount(t, svc, 100)

	_, err := svc.PurchaseUpgrade(context.Background(), 100, progression.UpgradeMine)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeInsufficientBalance, appErr.Code)

	acc, err := repo.GetByID(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 0, acc.MineLevelIndex)
}

func TestPurchaseUpgradeUnknownKind(t *testing.T) {
	repo := newMemoryAccountRepository()
	svc, _ := newTestService(repo, nil)
	createAccount(t, svc, 100)

	_, err := svc.PurchaseUpgrade(context.Background(), 100, progression.UpgradeKind("turbo"))
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeValidation, appErr.Code)
}

func TestConcurrentUpgradesDeductOnce(t *testing.T) {
	repo := newMemoryAccountRepository()
	svc, _ := newTestService(repo, nil)
	createAccount(t, svc, 100)

	// Balance covers exactly one purchase; only one of the racing
	// requests may win.
	cost := progression.UpgradeCost(progression.UpgradeMultitap, 0)
	seedBalance(t, repo, 100, cost)

	const workers = 8
	results := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PurchaseUpgrade(context.Background(), 100, progression.UpgradeMultitap)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeInsufficientBalance, appErr.Code)
	}
	assert.Equal(t, 1, succeeded)

	acc, err := repo.GetByID(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, acc.MultitapLevelIndex)
	assert.Equal(t, 0.0, acc.PointsBalance)
}

func TestConcurrentMineClaimsCreditOnce(t *testing.T) {
	repo := newMemoryAccountRepository()
	svc, clock := newTestService(repo, nil)
	createAccount(t, svc, 100)

	clock.Advance(2 * time.Hour)
	accrued := 2 * progression.ProfitPerHour(0)

	type claim struct {
		credited float64
		err      error
	}

	const workers = 8
	claims := make(chan claim, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.ClaimMineProfit(context.Background(), 100)
			if err != nil {
				claims <- claim{err: err}
				return
			}
			claims <- claim{credited: res.CreditedAmount}
		}()
	}
	wg.Wait()
	close(claims)

	// One claim takes the accrued profit, the rest find nothing.
	var total float64
	for c := range claims {
		require.NoError(t, c.err)
		total += c.credited
	}
	assert.InDelta(t, accrued, total, 1e-9)

	acc, err := repo.GetByID(context.Background(), 100)
	require.NoError(t, err)
	assert.InDelta(t, accrued, acc.PointsBalance, 1e-9)
}

func TestPurchaseEnergyLimitRaisesCapacity(t *testing.T) {
	repo := newMemoryAccountRepository()
	svc, _ := newTestService(repo, nil)
	createAccount(t, svc, 100)

	seedBalance(t, repo, 100, progression.UpgradeCost(progression.UpgradeEnergyLimit, 0))

	snap, err := svc.PurchaseUpgrade(context.Background(), 100, progression.UpgradeEnergyLimit)
	require.NoError(t, err)
	assert.Equal(t, progression.EnergyCapacity(1), snap.MaxEnergy)
	// Current energy is not granted by the purchase itself.
	assert.Equal(t, progression.EnergyCapacity(0), snap.Energy)
}

func TestRefillEnergyRestoresAndDecrements(t *testing.T) {
	repo := newMemoryAccountRepository()
	svc, _ := newTestService(repo, nil)
	createAccount(t, svc, 100)

	for i := 0; i < 5; i++ {
		_, err := svc.Tap(context.Background(), 100)
		require.NoError(t, err)
	}

	snap, err := svc.RefillEnergy(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, progression.EnergyCapacity(0), snap.Energy)
	assert.Equal(t, energy.MaxRefillsPerDay-1, snap.EnergyRefillsLeft)
}

func TestRefillEnergyExhaustedAndWindowReset(t *testing.T) {
	repo := newMemoryAccountRepository()
	svc, clock := newTestService(repo, nil)
	createAccount(t, svc, 100)

	for i := 0; i < energy.MaxRefillsPerDay; i++ {
		_, err := svc.RefillEnergy(context.Background(), 100)
		require.NoError(t, err)
	}

	_, err := svc.RefillEnergy(context.Background(), 100)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeNoRefillsLeft, appErr.Code)

	// The allowance comes back when the rolling window expires.
	clock.Advance(energy.RefillWindow)
	snap, err := svc.RefillEnergy(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, energy.MaxRefillsPerDay-1, snap.EnergyRefillsLeft)
}

func TestClaimMineProfitCreditsOnce(t *testing.T) {
	repo := newMemoryAccountRepository()
	svc, clock := newTestService(repo, nil)
	createAccount(t, svc, 100)

	clock.Advance(2 * time.Hour)

	res, err := svc.ClaimMineProfit(context.Background(), 100)
	require.NoError(t, err)
	assert.InDelta(t, 2*progression.ProfitPerHour(0), res.CreditedAmount, 1e-9)
	assert.InDelta(t, res.CreditedAmount, res.PointsBalance, 1e-9)

	// An immediate second claim finds nothing accrued.
	res, err = svc.ClaimMineProfit(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.CreditedAmount)
}

func TestClaimMineProfitCappedAtWindow(t *testing.T) {
	repo := newMemoryAccountRepository()
	svc, clock := newTestService(repo, nil)
	createAccount(t, svc, 100)

	clock.Advance(72 * time.Hour)

	res, err := svc.ClaimMineProfit(context.Background(), 100)
	require.NoError(t, err)
	assert.InDelta(t, 24*progression.ProfitPerHour(0), res.CreditedAmount, 1e-9)
}

func TestMineStatusDoesNotMutate(t *testing.T) {
	repo := newMemoryAccountRepository()
	svc, clock := newTestService(repo, nil)
	createAccount(t, svc, 100)

	clock.Advance(time.Hour)

	first, err := svc.MineStatus(context.Background(), 100)
	require.NoError(t, err)
	second, err := svc.MineStatus(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, first.AvailableProfit, second.AvailableProfit)
	assert.Equal(t, progression.ProfitPerHour(0), first.ProfitPerHour)
}

func TestClaimDailyBonusAdvancesStreak(t *testing.T) {
	repo := newMemoryAccountRepository()
	svc, clock := newTestService(repo, nil)
	createAccount(t, svc, 100)

	res, err := svc.ClaimDailyBonus(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, progression.DailyReward(0), res.CreditedAmount)
	assert.Equal(t, 0, res.BonusStreak)

	_, err = svc.ClaimDailyBonus(context.Background(), 100)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeBonusNotReady, appErr.Code)

	clock.Advance(25 * time.Hour)
	res, err = svc.ClaimDailyBonus(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, res.BonusStreak)
	assert.Equal(t, progression.DailyReward(1), res.CreditedAmount)
}

func TestClaimDailyBonusMissedDayResetsStreak(t *testing.T) {
	repo := newMemoryAccountRepository()
	svc, clock := newTestService(repo, nil)
	createAccount(t, svc, 100)

	_, err := svc.ClaimDailyBonus(context.Background(), 100)
	require.NoError(t, err)

	clock.Advance(72 * time.Hour)
	res, err := svc.ClaimDailyBonus(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 0, res.BonusStreak)
	assert.Equal(t, progression.DailyReward(0), res.CreditedAmount)
}

func TestListReferrals(t *testing.T) {
	repo := newMemoryAccountRepository()
	svc, _ := newTestService(repo, nil)
	createAccount(t, svc, 1)

	_, err := svc.SyncAccount(context.Background(), CreateParams{TelegramID: 2, FirstName: "Bob", ReferrerID: 1})
	require.NoError(t, err)
	_, err = svc.SyncAccount(context.Background(), CreateParams{TelegramID: 3, Username: "carol", ReferrerID: 1})
	require.NoError(t, err)

	list, err := svc.ListReferrals(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, list.ReferralCount)
	require.Len(t, list.Referrals, 2)

	names := []string{list.Referrals[0].Name, list.Referrals[1].Name}
	assert.Contains(t, names, "Bob")
	assert.Contains(t, names, "carol")
	for _, ref := range list.Referrals {
		assert.Equal(t, "USDT Novice", ref.LevelName)
		assert.Equal(t, progression.ReferralBonus(false), ref.PointsEarned)
	}
}

func TestConnectWalletValidatesAddress(t *testing.T) {
	repo := newMemoryAccountRepository()
	svc, _ := newTestService(repo, nil)
	createAccount(t, svc, 100)

	_, err := svc.ConnectWallet(context.Background(), 100, "not-a-wallet")
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeInvalidWallet, appErr.Code)

	snap, err := svc.ConnectWallet(context.Background(), 100, validWallet)
	require.NoError(t, err)
	assert.NotEmpty(t, snap.WalletAddress)

	snap, err = svc.DisconnectWallet(context.Background(), 100)
	require.NoError(t, err)
	assert.Empty(t, snap.WalletAddress)
}

func TestTapUnknownAccount(t *testing.T) {
	repo := newMemoryAccountRepository()
	svc, _ := newTestService(repo, nil)

	_, err := svc.Tap(context.Background(), 404)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeAccountNotFound, appErr.Code)
}

func seedBalance(t *testing.T, repo *memoryAccountRepository, id int64, balance float64) {
	t.Helper()
	acc, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	acc.PointsBalance = balance
	require.NoError(t, repo.Update(context.Background(), acc))
}
