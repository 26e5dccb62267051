package repository

import (
	"github.com/clipscout/clipscout/app/models"
	"gorm.io/gorm"
)

type gormSearchLogRepository struct {
	db *gorm.DB
}

// NewSearchLogRepository creates a search log repository backed by GORM.
func NewSearchLogRepository(db *gorm.DB) SearchLogRepository {
	return &gormSearchLogRepository{db: db}
}

func (r *gormSearchLogRepository) Create(log *models.SearchLog) error {
	return r.db.Create(log).Error
}

func (r *gormSearchLogRepository) ListByUserID(userID uint, limit int) ([]models.SearchLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var logs []models.SearchLog
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

func (r *gormSearchLogRepository) CountByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.SearchLog{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
