package billing

import (
	"time"

	"github.com/clipscout/clipscout/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the DB operations used by the billing service.
type Repository interface {
	GetEntitlementByCustomerRef(customerRef string) (*models.Entitlement, error)
	GetEntitlementBySubscriptionRef(subscriptionRef string) (*models.Entitlement, error)
	ApplyTransition(userID uint, fields map[string]interface{}) error
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetEntitlementByCustomerRef(customerRef string) (*models.Entitlement, error) {
	var ent models.Entitlement
	err := r.db.Where("processor_customer_ref = ?", customerRef).First(&ent).Error
	if err != nil {
		return nil, err
	}
	return &ent, nil
}

func (r *gormRepository) GetEntitlementBySubscriptionRef(subscriptionRef string) (*models.Entitlement, error) {
	var ent models.Entitlement
	err := r.db.Where("processor_subscription_ref = ?", subscriptionRef).First(&ent).Error
	if err != nil {
		return nil, err
	}
	return &ent, nil
}

func (r *gormRepository) ApplyTransition(userID uint, fields map[string]interface{}) error {
	return r.db.Model(&models.Entitlement{}).Where("user_id = ?", userID).Updates(fields).Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
