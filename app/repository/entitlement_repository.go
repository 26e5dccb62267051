package repository

import (
	"errors"

	"github.com/clipscout/clipscout/app/models"
	"gorm.io/gorm"
)

type gormEntitlementRepository struct {
	db *gorm.DB
}

// NewEntitlementRepository creates an entitlement repository backed by GORM.
func NewEntitlementRepository(db *gorm.DB) EntitlementRepository {
	return &gormEntitlementRepository{db: db}
}

// GetOrCreateByUserID returns the user's entitlement, creating the free/
// inactive default row if none exists. It never fails with "not found" for a
// valid user.
func (r *gormEntitlementRepository) GetOrCreateByUserID(userID uint) (*models.Entitlement, error) {
	var ent models.Entitlement
	err := r.db.Where("user_id = ?", userID).First(&ent).Error
	if err == nil {
		return &ent, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	ent = models.Entitlement{
		UserID: userID,
		Plan:   "free",
		Status: models.EntitlementStatusInactive,
	}
	if err := r.db.Create(&ent).Error; err != nil {
		// Lost a race against a concurrent lazy create; re-read the row.
		var existing models.Entitlement
		if readErr := r.db.Where("user_id = ?", userID).First(&existing).Error; readErr == nil {
			return &existing, nil
		}
		return nil, err
	}
	return &ent, nil
}

func (r *gormEntitlementRepository) GetByCustomerRef(customerRef string) (*models.Entitlement, error) {
	var ent models.Entitlement
	if err := r.db.Where("processor_customer_ref = ?", customerRef).First(&ent).Error; err != nil {
		return nil, err
	}
	return &ent, nil
}

func (r *gormEntitlementRepository) GetBySubscriptionRef(subscriptionRef string) (*models.Entitlement, error) {
	var ent models.Entitlement
	if err := r.db.Where("processor_subscription_ref = ?", subscriptionRef).First(&ent).Error; err != nil {
		return nil, err
	}
	return &ent, nil
}

// ApplyTransition performs a partial update of the given fields. Last write
// wins per field; out-of-order processor deliveries are accepted as-is.
func (r *gormEntitlementRepository) ApplyTransition(userID uint, fields map[string]interface{}) error {
	// RowsAffected is not checked: MySQL reports zero affected rows for a
	// no-op update, which is exactly what an idempotent replay produces.
	return r.db.Model(&models.Entitlement{}).Where("user_id = ?", userID).Updates(fields).Error
}

func (r *gormEntitlementRepository) IncrementSearchCount(userID uint) error {
	return r.db.Model(&models.Entitlement{}).
		Where("user_id = ?", userID).
		UpdateColumn("search_count", gorm.Expr("search_count + 1")).Error
}
