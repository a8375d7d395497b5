package models

import (
	"gorm.io/gorm"
)

// Meal is one orderable catalog item.
type Meal struct {
	gorm.Model
	Name         string `gorm:"uniqueIndex;not null"`
	Price        float64
	Description  string
	Image        string // public URL
	ImageKey     string // storage key, needed for cascade delete
	AvgRating    float64
	TotalRatings int

	Ratings []MealRating
}

// MealRating is one submitted rating. Rows are append-only; the meal's
// AvgRating/TotalRatings are recomputed from an SQL aggregate so concurrent
// submissions never lose updates.
type MealRating struct {
	ID        uint   `gorm:"primaryKey"`
	MealID    uint   `gorm:"index;not null"`
	UserEmail string `gorm:"index"`
	Rating    int
}
