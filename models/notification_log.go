package models

import "time"

// NotificationLog keeps one row per push attempt, success or failure, so the
// producer dashboard can show delivery stats.
type NotificationLog struct {
	ID        uint   `gorm:"primaryKey"`
	UserEmail string `gorm:"index"`
	Type      string `gorm:"size:24"` // daily_reminder | payment_reminder | order_update | producer_alert
	Title     string
	Message   string `gorm:"type:text"`
	SentAt    time.Time
	Success   bool
	Error     string
	Reason    string `gorm:"size:32"` // why this user was targeted
}
