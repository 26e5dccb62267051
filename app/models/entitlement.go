package models

import "time"

// Billing provider constant used across billing-related models.
const BillingProviderStripe = "stripe"

const (
	EntitlementStatusInactive = "inactive"
	EntitlementStatusActive   = "active"
	EntitlementStatusPastDue  = "past_due"
	EntitlementStatusCanceled = "canceled"
)

// Entitlement is the stored record of a user's plan and billing status.
// One row per user; created lazily with free/inactive defaults. The billing
// reconciler is the only writer of plan/status/period fields, the search path
// only touches SearchCount.
type Entitlement struct {
	ID                       uint       `gorm:"primaryKey" json:"id"`
	UserID                   uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	Plan                     string     `gorm:"type:varchar(50);not null;default:'free';index" json:"plan"`
	Status                   string     `gorm:"type:varchar(32);not null;default:'inactive';index" json:"status"`
	ProcessorCustomerRef     string     `gorm:"type:varchar(191);default:'';index" json:"-"`
	ProcessorSubscriptionRef string     `gorm:"type:varchar(191);default:'';index" json:"-"`
	CurrentPeriodEnd         *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd        bool       `gorm:"default:false" json:"cancel_at_period_end"`
	SearchCount              int64      `gorm:"not null;default:0" json:"search_count"`
	CreatedAt                time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsPremiumActive reports whether the entitlement grants unlimited access at
// the given instant. Premium with a lapsed period end is stale until a renewal
// event arrives.
func (e *Entitlement) IsPremiumActive(now time.Time) bool {
	if e.Plan != "premium" || e.Status != EntitlementStatusActive {
		return false
	}
	if e.CurrentPeriodEnd != nil && !now.Before(*e.CurrentPeriodEnd) {
		return false
	}
	return true
}
