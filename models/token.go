package models

import (
	"time"

	"gorm.io/gorm"
)

// PaymentDetails records the settlement of a token: the main amount paid to
// the mess UPI and the derived commission slice, plus the transaction id
// generated at confirmation time.
type PaymentDetails struct {
	MainAmount       float64
	MainUPI          string
	CommissionAmount float64
	CommissionUPI    string
	TransactionID    string `gorm:"size:64"`
	UPIRef           string `gorm:"size:64"`
	PaidAt           *time.Time
}

// MealToken is a redemption voucher for one user's meals within a given
// service date and batch. Number is a dense sequence scoped to (date,batch),
// not globally unique. Two composite unique indexes serialize concurrent
// checkouts: idx_token_owner allows at most one token per student per batch
// per day, and idx_token_scope_number keeps count-then-insert races between
// different students from assigning the same number twice.
type MealToken struct {
	gorm.Model
	Number      string `gorm:"size:16;not null;uniqueIndex:idx_token_scope_number"`
	ServiceDate string `gorm:"size:16;not null;uniqueIndex:idx_token_owner;uniqueIndex:idx_token_scope_number"`
	Batch       int    `gorm:"not null;uniqueIndex:idx_token_owner;uniqueIndex:idx_token_scope_number"`
	UserEmail   string `gorm:"not null;uniqueIndex:idx_token_owner"`
	UserName    string
	UserPhoto   string

	Meals       []TokenMeal
	TotalAmount float64

	Paid       bool `gorm:"default:false"`
	Verified   bool `gorm:"default:false"`
	VerifiedAt *time.Time
	ExpiresAt  time.Time

	Payment PaymentDetails `gorm:"embedded;embeddedPrefix:payment_"`
}

// TokenMeal is one quantity-aggregated meal line on a token.
type TokenMeal struct {
	ID          uint    `gorm:"primaryKey" json:"-"`
	MealTokenID uint    `gorm:"index;not null" json:"-"`
	Name        string  `json:"name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// LineTotal is the amount this line contributes to the token total.
func (m TokenMeal) LineTotal() float64 {
	return m.Price * float64(m.Quantity)
}
