package entitlements

import (
	"time"

	"github.com/clipscout/clipscout/app/models"
	"github.com/clipscout/clipscout/internal/pkg/quota"
)

// Store is the entitlement lookup surface the resolver needs.
type Store interface {
	GetOrCreateByUserID(userID uint) (*models.Entitlement, error)
}

// Decision answers "may this user search right now, and with how many
// results". It is a pure read; consuming quota is a separate step.
type Decision struct {
	Allowed   bool        `json:"allowed"`
	Plan      Plan        `json:"plan"`
	ResultCap int         `json:"result_cap"`
	Usage     quota.Usage `json:"usage"`
	Reason    string      `json:"reason,omitempty"`
}

// Resolver derives search permissions from the entitlement store and the
// quota counter. It has no side effects.
type Resolver struct {
	store   Store
	counter *quota.Counter
}

// NewResolver creates a resolver from its two read dependencies.
func NewResolver(store Store, counter *quota.Counter) *Resolver {
	return &Resolver{store: store, counter: counter}
}

// CanSearch loads the entitlement and, for free-tier users, the current-month
// quota. Premium entitlements that are active and inside their billing period
// get unlimited access; everyone else is treated as free tier.
func (r *Resolver) CanSearch(userID uint, now time.Time) (Decision, error) {
	ent, err := r.store.GetOrCreateByUserID(userID)
	if err != nil {
		return Decision{}, err
	}

	if ent.IsPremiumActive(now) {
		return Decision{
			Allowed:   true,
			Plan:      PlanPremium,
			ResultCap: UnlimitedResults,
			Usage:     quota.UnlimitedUsage(),
		}, nil
	}

	usage, err := r.counter.Usage(userID, now)
	if err != nil {
		return Decision{}, err
	}
	if usage.Count >= usage.Limit {
		return Decision{
			Allowed:   false,
			Plan:      PlanFree,
			ResultCap: 0,
			Usage:     usage,
			Reason:    "monthly search limit reached, upgrade to premium for unlimited searches",
		}, nil
	}
	return Decision{
		Allowed:   true,
		Plan:      PlanFree,
		ResultCap: FreeResultCap,
		Usage:     usage,
	}, nil
}
