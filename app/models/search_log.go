package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SearchLog records every executed search as a usage ledger entry. Quota
// enforcement lives in MonthlyQuota; this table keeps the query history shown
// on the account page.
type SearchLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	QueryID     string    `gorm:"type:char(36);not null;uniqueIndex" json:"query_id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Query       string    `gorm:"type:varchar(500);not null" json:"query"`
	ResultCount int       `gorm:"not null;default:0" json:"result_count"`
	Truncated   bool      `gorm:"default:false" json:"truncated"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// BeforeCreate assigns the query UUID when the caller did not set one.
func (s *SearchLog) BeforeCreate(tx *gorm.DB) error {
	if s.QueryID == "" {
		s.QueryID = uuid.NewString()
	}
	return nil
}
