package models

import (
	"time"

	"github.com/CD-338080/Usdt-roller/internal/game/progression"
)

// Account is the authoritative persisted record per player, keyed by
// Telegram ID. Level, capacity, per-tap reward and profit rate are never
// stored; they are derived from the counters below on every read.
type Account struct {
	TelegramID int64  `json:"telegram_id"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	IsPremium  bool   `json:"is_premium"`

	// Points is the monotonic lifetime total used for level lookup;
	// PointsBalance is the spendable/withdrawable part.
	Points        float64 `json:"points"`
	PointsBalance float64 `json:"points_balance"`

	Energy                float64   `json:"energy"`
	EnergyLimitLevelIndex int       `json:"energy_limit_level_index"`
	EnergyRefillsLeft     int       `json:"energy_refills_left"`
	LastEnergyRefillAt    time.Time `json:"last_energy_refill_at"`
	EnergyWindowStartAt   time.Time `json:"energy_window_start_at"`
	LastEnergyUpdateAt    time.Time `json:"last_energy_update_at"`

	MultitapLevelIndex int `json:"multitap_level_index"`

	MineLevelIndex  int       `json:"mine_level_index"`
	LastMineClaimAt time.Time `json:"last_mine_claim_at"`

	// ReferrerID is set once at creation and immutable afterwards; zero
	// means no referrer. ReferralProcessed guards the one-time bonus.
	ReferrerID           int64   `json:"referrer_id,omitempty"`
	ReferralProcessed    bool    `json:"referral_processed"`
	ReferralCount        int     `json:"referral_count"`
	ReferralPointsEarned float64 `json:"referral_points_earned"`

	WalletAddress string `json:"wallet_address,omitempty"`

	LastBonusClaimAt     time.Time `json:"last_bonus_claim_at"`
	NextBonusAvailableAt time.Time `json:"next_bonus_available_at"`
	BonusStreak          int       `json:"bonus_streak"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot is the canonical account state returned by every gateway action.
// Clients discard their optimistic guesses and adopt these values.
type Snapshot struct {
	TelegramID    int64   `json:"telegram_id"`
	Points        float64 `json:"points"`
	PointsBalance float64 `json:"points_balance"`

	LevelIndex int    `json:"level_index"`
	LevelName  string `json:"level_name"`

	Energy            float64 `json:"energy"`
	MaxEnergy         float64 `json:"max_energy"`
	EnergyRefillsLeft int     `json:"energy_refills_left"`

	PointsPerTap  float64 `json:"points_per_tap"`
	ProfitPerHour float64 `json:"profit_per_hour"`

	MultitapLevelIndex    int `json:"multitap_level_index"`
	EnergyLimitLevelIndex int `json:"energy_limit_level_index"`
	MineLevelIndex        int `json:"mine_level_index"`

	MultitapUpgradeCost    float64 `json:"multitap_upgrade_cost"`
	EnergyLimitUpgradeCost float64 `json:"energy_limit_upgrade_cost"`
	MineUpgradeCost        float64 `json:"mine_upgrade_cost"`

	ReferralCount        int     `json:"referral_count"`
	ReferralPointsEarned float64 `json:"referral_points_earned"`

	WalletAddress string `json:"wallet_address,omitempty"`

	LastMineClaimAt      time.Time `json:"last_mine_claim_at"`
	NextBonusAvailableAt time.Time `json:"next_bonus_available_at"`
}

// ToSnapshot derives the client-facing view from the stored counters.
func (a *Account) ToSnapshot() *Snapshot {
	levelIdx := progression.LevelIndex(a.Points)
	return &Snapshot{
		TelegramID:             a.TelegramID,
		Points:                 a.Points,
		PointsBalance:          a.PointsBalance,
		LevelIndex:             levelIdx,
		LevelName:              progression.Levels[levelIdx].Name,
		Energy:                 a.Energy,
		MaxEnergy:              progression.EnergyCapacity(a.EnergyLimitLevelIndex),
		EnergyRefillsLeft:      a.EnergyRefillsLeft,
		PointsPerTap:           progression.PointsPerTap(a.MultitapLevelIndex),
		ProfitPerHour:          progression.ProfitPerHour(a.MineLevelIndex),
		MultitapLevelIndex:     a.MultitapLevelIndex,
		EnergyLimitLevelIndex:  a.EnergyLimitLevelIndex,
		MineLevelIndex:         a.MineLevelIndex,
		MultitapUpgradeCost:    progression.UpgradeCost(progression.UpgradeMultitap, a.MultitapLevelIndex),
		EnergyLimitUpgradeCost: progression.UpgradeCost(progression.UpgradeEnergyLimit, a.EnergyLimitLevelIndex),
		MineUpgradeCost:        progression.UpgradeCost(progression.UpgradeMine, a.MineLevelIndex),
		ReferralCount:          a.ReferralCount,
		ReferralPointsEarned:   a.ReferralPointsEarned,
		WalletAddress:          a.WalletAddress,
		LastMineClaimAt:        a.LastMineClaimAt,
		NextBonusAvailableAt:   a.NextBonusAvailableAt,
	}
}

// ReferralSummary is one row of the referral list query.
type ReferralSummary struct {
	TelegramID   int64   `json:"telegram_id"`
	Name         string  `json:"name"`
	LevelName    string  `json:"level_name"`
	Points       float64 `json:"points"`
	PointsEarned float64 `json:"points_earned"`
}

// ReferralList is the response of the referral list query.
type ReferralList struct {
	ReferralCount int                `json:"referral_count"`
	Referrals     []*ReferralSummary `json:"referrals"`
}

// MineStatus is the response of the mine status query.
type MineStatus struct {
	AvailableProfit float64   `json:"available_profit"`
	ProfitPerHour   float64   `json:"profit_per_hour"`
	LastClaimTime   time.Time `json:"last_claim_time"`
}

// ClaimResult reports a successful mine claim.
type ClaimResult struct {
	CreditedAmount float64   `json:"credited_amount"`
	PointsBalance  float64   `json:"points_balance"`
	LastClaimTime  time.Time `json:"last_claim_time"`
}

// BonusResult reports a successful daily bonus claim.
type BonusResult struct {
	CreditedAmount       float64   `json:"credited_amount"`
	BonusStreak          int       `json:"bonus_streak"`
	PointsBalance        float64   `json:"points_balance"`
	NextBonusAvailableAt time.Time `json:"next_bonus_available_at"`
}
