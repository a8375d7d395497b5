package services

import (
	"testing"

	"messmate/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB opens a fresh in-memory database with the full schema migrated.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.UserOrder{},
		&models.RedeemedMeal{},
		&models.Meal{},
		&models.MealRating{},
		&models.MealToken{},
		&models.TokenMeal{},
		&models.NotificationLog{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name, email string) *models.User {
	t.Helper()
	user := models.User{Name: name, Email: email, Role: "student"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return &user
}

func countOrders(t *testing.T, db *gorm.DB, userID uint, token, date string, batch int) int64 {
	t.Helper()
	var n int64
	err := db.Model(&models.UserOrder{}).
		Where("user_id = ? AND token = ? AND service_date = ? AND batch = ?", userID, token, date, batch).
		Count(&n).Error
	if err != nil {
		t.Fatalf("count orders: %v", err)
	}
	return n
}
