package models

import "time"

// MonthlyQuota is the per-month usage ledger limiting free-tier search counts.
// One row per (user, month bucket); rollover happens by keying on the month,
// not by resetting a prior row. Rows are never decremented or deleted.
type MonthlyQuota struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index:ux_monthly_quotas_user_month,unique,priority:1" json:"user_id"`
	MonthStart time.Time `gorm:"type:timestamp;not null;index:ux_monthly_quotas_user_month,unique,priority:2" json:"month_start"`
	Count      int64     `gorm:"not null;default:0" json:"count"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
