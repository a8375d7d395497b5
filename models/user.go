package models

import (
	"time"

	"gorm.io/gorm"
)

// VerifiedToday is the per-user redemption snapshot for the current service
// date. Producer-side "already redeemed" checks and notification targeting
// read this instead of scanning the token table.
type VerifiedToday struct {
	Date       string `gorm:"size:16"`
	Verified   bool
	VerifiedAt *time.Time
}

type User struct {
	gorm.Model
	Name            string
	Email           string `gorm:"uniqueIndex;not null"`
	Password        string
	Role            string `gorm:"size:16;default:student"` // "student" | "producer"
	ProfilePhoto    string
	ProfilePhotoKey string
	ProfileComplete bool

	// SNS platform endpoint for push delivery; empty means not subscribed.
	PushEndpoint string `gorm:"size:256"`
	PushPlatform string `gorm:"size:16"`

	PrefDailyReminder    bool `gorm:"default:true"`
	PrefOrderUpdates     bool `gorm:"default:true"`
	PrefPaymentReminders bool `gorm:"default:true"`
	LastNotificationSent *time.Time

	Orders        []UserOrder
	VerifiedToday VerifiedToday  `gorm:"embedded;embeddedPrefix:verified_today_"`
	Redeemed      []RedeemedMeal // meal summary behind the snapshot
}

// UserOrder is one meal *unit* from a checkout. A token's meal lines are
// quantity-based; the order ledger stores them exploded per unit, so a line
// with quantity 3 becomes three rows sharing the same token number.
type UserOrder struct {
	ID          uint `gorm:"primaryKey"`
	UserID      uint `gorm:"index;not null"`
	MealName    string
	Price       float64
	OrderedAt   time.Time
	ServiceDate string `gorm:"size:16;index"`
	Batch       int
	Paid        bool   `gorm:"default:false"`
	Token       string `gorm:"size:16"`
}

type RedeemedMeal struct {
	ID         uint   `gorm:"primaryKey"`
	UserID     uint   `gorm:"index;not null"`
	Date       string `gorm:"size:16"`
	Name       string
	Quantity   int
	TotalPrice float64
}
