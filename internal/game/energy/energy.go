// Package energy implements the time-based energy state machine: passive
// regeneration from stored timestamps plus a limited number of manual
// refills per rolling 24h window.
package energy

import "time"

const (
	// RegenPeriod is how long a full recharge from zero takes.
	RegenPeriod = time.Hour

	// MaxRefillsPerDay is the manual refill allowance per rolling window.
	MaxRefillsPerDay = 6

	// RefillWindow is the rolling window after which the allowance resets,
	// anchored on a stored timestamp rather than wall-clock midnight.
	RefillWindow = 24 * time.Hour
)

// Regenerate returns the energy after applying passive regen between
// lastSeen and now, clamped to [0, capacity]. The rate is a full recharge
// per RegenPeriod. Recomputing with no elapsed time is a no-op, so callers
// may apply it on every read.
func Regenerate(current, capacity float64, lastSeen, now time.Time) float64 {
	if capacity <= 0 {
		return 0
	}
	if current < 0 {
		current = 0
	}
	elapsed := now.Sub(lastSeen)
	if elapsed > 0 {
		current += capacity * elapsed.Seconds() / RegenPeriod.Seconds()
	}
	if current > capacity {
		current = capacity
	}
	return current
}

// ResetWindow returns the refill allowance and window anchor after rolling
// the 24h window forward if it has elapsed. Inside the window both values
// pass through unchanged.
func ResetWindow(refillsLeft int, windowStart, now time.Time) (int, time.Time) {
	if windowStart.IsZero() || now.Sub(windowStart) >= RefillWindow {
		return MaxRefillsPerDay, now
	}
	return refillsLeft, windowStart
}

// CanRefill reports whether a manual refill is allowed with the given
// remaining allowance.
func CanRefill(refillsLeft int) bool {
	return refillsLeft > 0
}

// CanTap reports whether one tap can be paid for.
func CanTap(current float64) bool {
	return current >= 1
}
