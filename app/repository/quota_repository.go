package repository

import (
	"errors"
	"time"

	"github.com/clipscout/clipscout/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormQuotaRepository struct {
	db *gorm.DB
}

// NewQuotaRepository creates a quota repository backed by GORM.
func NewQuotaRepository(db *gorm.DB) QuotaRepository {
	return &gormQuotaRepository{db: db}
}

// Get returns the quota row for the bucket, or a zero-count placeholder when
// no search happened in that month yet.
func (r *gormQuotaRepository) Get(userID uint, monthStart time.Time) (*models.MonthlyQuota, error) {
	var q models.MonthlyQuota
	err := r.db.Where("user_id = ? AND month_start = ?", userID, monthStart).First(&q).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.MonthlyQuota{UserID: userID, MonthStart: monthStart, Count: 0}, nil
		}
		return nil, err
	}
	return &q, nil
}

// Increment upserts the bucket row in a single statement: insert with count=1
// or bump the existing count. Executed as one storage operation so concurrent
// increments for the same user never lose updates.
func (r *gormQuotaRepository) Increment(userID uint, monthStart time.Time) (int64, error) {
	var count int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		q := models.MonthlyQuota{UserID: userID, MonthStart: monthStart, Count: 1}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "month_start"},
			},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"count":      gorm.Expr("count + 1"),
				"updated_at": time.Now().UTC(),
			}),
		}).Create(&q).Error
		if err != nil {
			return err
		}

		// The upsert does not report the new value. Its row lock is held
		// until commit, so this read returns the exact post-increment count.
		var stored models.MonthlyQuota
		if err := tx.Where("user_id = ? AND month_start = ?", userID, monthStart).First(&stored).Error; err != nil {
			return err
		}
		count = stored.Count
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
