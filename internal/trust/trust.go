// Package trust maintains each user's long-lived trust score.
//
// Trust starts at DefaultScore and moves once per completed attempt:
//
//	new = old - risk/10, clamped to [0, 100]
//
// A risk-free attempt leaves trust unchanged; a maximum-risk attempt costs 10
// points. Update is pure; persistence and per-user serialisation live in
// Ledger.
package trust

import (
	"errors"
	"math"
)

// Score bounds and the starting value for users with no history.
const (
	MinScore     = 0.0
	MaxScore     = 100.0
	DefaultScore = 100.0

	// RiskDivisor scales a risk score into trust points.
	RiskDivisor = 10.0
)

var (
	// ErrUserNotFound is returned by stores that hold no score for a user.
	ErrUserNotFound = errors.New("trust: user not found")

	// ErrAttemptAlreadyScored is returned when an attempt ID already moved
	// a trust score. Each attempt deducts at most once.
	ErrAttemptAlreadyScored = errors.New("trust: attempt already scored")
)

// Update applies a risk-scaled deduction to a previous trust score.
func Update(old, riskScore float64) float64 {
	return Clamp(old - riskScore/RiskDivisor)
}

// Clamp bounds v to [MinScore, MaxScore].
func Clamp(v float64) float64 {
	return math.Max(MinScore, math.Min(MaxScore, v))
}

// Trend describes the direction of a trust change.
type Trend string

const (
	TrendDecreased Trend = "decreased"
	TrendIncreased Trend = "increased"
	TrendUnchanged Trend = "unchanged"
)

// Change returns new-old rounded to 2 decimals and its direction.
func Change(old, new float64) (float64, Trend) {
	delta := math.Round((new-old)*100) / 100
	switch {
	case delta < 0:
		return delta, TrendDecreased
	case delta > 0:
		return delta, TrendIncreased
	default:
		return 0, TrendUnchanged
	}
}
