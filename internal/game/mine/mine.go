// Package mine implements lazy passive-income accrual. There is no running
// timer: the claimable amount is a pure function of the stored claim
// timestamp and the current rate, capped at CapHours of offline profit.
package mine

import "time"

// CapHours bounds how much profit can accumulate between claims.
const CapHours = 24

// Available returns the profit claimable at now given the hourly rate and
// the last claim time. Two reads with no claim in between return the same
// value for the same now.
func Available(profitPerHour float64, lastClaim, now time.Time) float64 {
	if profitPerHour <= 0 || lastClaim.IsZero() {
		return 0
	}
	elapsed := now.Sub(lastClaim)
	if elapsed <= 0 {
		return 0
	}
	hours := elapsed.Hours()
	if hours > CapHours {
		hours = CapHours
	}
	return profitPerHour * hours
}
