package entitlements

import "strings"

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// FreeResultCap is how many results a free-tier search may return.
const FreeResultCap = 2

// UnlimitedResults marks a decision without a result cap.
const UnlimitedResults = -1

// NormalizePlan maps arbitrary stored plan strings onto the known plans,
// defaulting to free.
func NormalizePlan(plan string) Plan {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanPremium):
		return PlanPremium
	default:
		return PlanFree
	}
}
