// Package progression contains the pure calculators that map stored level
// indices onto derived game stats and upgrade prices. Nothing here touches
// storage or the clock; the account service composes these with the ledger.
package progression

import "math"

// Economy constants. Upgrade tracks share one cost curve
// (basePrice × costCoefficient^level) with per-track constant sets.
const (
	ReferralBonusBase    = 25
	ReferralBonusPremium = 25

	MinimumWithdraw  = 150
	MinimumReferrals = 10

	multitapBasePrice   = 100
	multitapCostCoef    = 2
	multitapBaseBenefit = 1
	multitapBenefitStep = 1

	energyLimitBasePrice   = 100
	energyLimitCostCoef    = 2
	energyLimitBaseBenefit = 50
	energyLimitBenefitStep = 50

	mineBasePrice   = 100
	mineCostCoef    = 1.5
	mineBaseBenefit = 100
	mineBenefitCoef = 1.2
)

// UpgradeKind identifies one of the three paid upgrade tracks.
type UpgradeKind string

const (
	UpgradeMultitap    UpgradeKind = "multitap"
	UpgradeEnergyLimit UpgradeKind = "energy_limit"
	UpgradeMine        UpgradeKind = "mine"
)

// Valid reports whether k names a known upgrade track.
func (k UpgradeKind) Valid() bool {
	switch k {
	case UpgradeMultitap, UpgradeEnergyLimit, UpgradeMine:
		return true
	}
	return false
}

// LevelIndex returns the greatest index i with Levels[i].MinPoints <= points.
// Index 0 matches points = 0; negative input clamps to 0.
func LevelIndex(points float64) int {
	idx := 0
	for i, lvl := range Levels {
		if points < lvl.MinPoints {
			break
		}
		idx = i
	}
	return idx
}

// PointsPerTap returns the reward for one tap at the given multitap level.
func PointsPerTap(multitapLevel int) float64 {
	if multitapLevel < 0 {
		multitapLevel = 0
	}
	return multitapBaseBenefit + multitapBenefitStep*float64(multitapLevel)
}

// EnergyCapacity returns the maximum energy at the given energy-limit level.
func EnergyCapacity(energyLimitLevel int) float64 {
	if energyLimitLevel < 0 {
		energyLimitLevel = 0
	}
	return energyLimitBaseBenefit + energyLimitBenefitStep*float64(energyLimitLevel)
}

// ProfitPerHour returns the passive mine rate at the given mine level.
// Growth is geometric, unlike the additive tap and energy tracks.
func ProfitPerHour(mineLevel int) float64 {
	if mineLevel < 0 {
		mineLevel = 0
	}
	return mineBaseBenefit * math.Pow(mineBenefitCoef, float64(mineLevel))
}

// UpgradeCost returns the price of buying the next level on the given track,
// where level is the track's current (pre-purchase) level index.
func UpgradeCost(kind UpgradeKind, level int) float64 {
	if level < 0 {
		level = 0
	}
	switch kind {
	case UpgradeMultitap:
		return multitapBasePrice * math.Pow(multitapCostCoef, float64(level))
	case UpgradeEnergyLimit:
		return energyLimitBasePrice * math.Pow(energyLimitCostCoef, float64(level))
	case UpgradeMine:
		return mineBasePrice * math.Pow(mineCostCoef, float64(level))
	}
	return 0
}

// ReferralBonus returns the one-time bonus credited to both sides of a
// referral. Telegram premium users earn the premium variant.
func ReferralBonus(isPremium bool) float64 {
	if isPremium {
		return ReferralBonusPremium
	}
	return ReferralBonusBase
}

// DailyReward returns the bonus for the given consecutive-day streak,
// capping at the last table entry.
func DailyReward(streak int) float64 {
	if streak < 0 {
		streak = 0
	}
	if streak >= len(DailyRewards) {
		streak = len(DailyRewards) - 1
	}
	return DailyRewards[streak]
}
