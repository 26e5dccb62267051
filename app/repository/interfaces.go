package repository

import (
	"time"

	"github.com/clipscout/clipscout/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	Count() (int64, error)
}

// EntitlementRepository is the narrow persistence facade for entitlement rows.
// ApplyTransition callers must be trusted writers (the billing reconciler or
// the explicit cancel endpoint); no business rules are enforced here.
type EntitlementRepository interface {
	GetOrCreateByUserID(userID uint) (*models.Entitlement, error)
	GetByCustomerRef(customerRef string) (*models.Entitlement, error)
	GetBySubscriptionRef(subscriptionRef string) (*models.Entitlement, error)
	ApplyTransition(userID uint, fields map[string]interface{}) error
	IncrementSearchCount(userID uint) error
}

// QuotaRepository persists the per-month search counters.
type QuotaRepository interface {
	Get(userID uint, monthStart time.Time) (*models.MonthlyQuota, error)
	// Increment must be an atomic upsert on (userID, monthStart) so that
	// concurrent requests from the same user never lose updates.
	Increment(userID uint, monthStart time.Time) (int64, error)
}

// SearchLogRepository persists the per-search usage ledger.
type SearchLogRepository interface {
	Create(log *models.SearchLog) error
	ListByUserID(userID uint, limit int) ([]models.SearchLog, error)
	CountByUserID(userID uint) (int64, error)
}
