// Package trust is the only place the trust score formula and badge policy
// live. Every surface that shows a score, a verified count or a badge calls
// Evaluate; nothing re-derives the percentage locally.
//
// Domain purity: no I/O, no clocks, no context.
package trust

import (
	"trustgate/internal/verification/models"
)

// Badge policy constants.
const (
	// FullyVerifiedMinCount is the verified-category count at which the
	// "fully verified" badge is shown. It is deliberately 6 of 7.
	FullyVerifiedMinCount = 6

	// HighTrustScoreFloor is exclusive: the badge needs score > 70.
	HighTrustScoreFloor = 70

	MaxScore = 100
)

// Gate is the read-only tuple exposed to ranking, badge and marketing
// consumers. No other fields are part of the contract.
type Gate struct {
	Score         int  `json:"score"`
	VerifiedCount int  `json:"verified_count"`
	FullyVerified bool `json:"fully_verified"`
	HighTrust     bool `json:"high_trust"`
}

// VerifiedCount counts taxonomy categories whose latest document is VERIFIED.
// A PENDING resubmission over a VERIFIED record does not count.
func VerifiedCount(state *models.AccountState) int {
	n := 0
	for _, c := range models.Categories() {
		if doc := state.Latest(c); doc != nil && doc.IsVerified() {
			n++
		}
	}
	return n
}

// Score converts a verified count into round-half-up(count / CategoryCount * 100),
// computed in integers so no float rounding can disagree between callers.
// Counts outside [0, CategoryCount] are clamped.
func Score(verifiedCount int) int {
	verifiedCount = clamp(verifiedCount, 0, models.CategoryCount)
	n := models.CategoryCount
	return (2*verifiedCount*MaxScore + n) / (2 * n)
}

// FromCount builds the gate tuple for a verified count.
func FromCount(verifiedCount int) Gate {
	verifiedCount = clamp(verifiedCount, 0, models.CategoryCount)
	score := Score(verifiedCount)
	return Gate{
		Score:         score,
		VerifiedCount: verifiedCount,
		FullyVerified: verifiedCount >= FullyVerifiedMinCount,
		HighTrust:     score > HighTrustScoreFloor,
	}
}

// Evaluate computes the gate tuple for one account snapshot.
func Evaluate(state *models.AccountState) Gate {
	return FromCount(VerifiedCount(state))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
