package config

import (
	"fmt"
	"log"
	"os"

	"messmate/models"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	err = DB.AutoMigrate(
		&models.User{},
		&models.UserOrder{},
		&models.RedeemedMeal{},
		&models.Meal{},
		&models.MealRating{},
		&models.MealToken{},
		&models.TokenMeal{},
		&models.NotificationLog{},
	)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	seedMeals()
}

// seedMeals fills an empty catalog with the default menu.
func seedMeals() {
	var count int64
	DB.Model(&models.Meal{}).Count(&count)
	if count > 0 {
		return
	}

	defaults := []models.Meal{
		{Name: "Paneer Butter Masala", Price: 120, Description: "Rich and creamy paneer curry"},
		{Name: "Chole Bhature", Price: 100, Description: "Spicy chickpeas with fluffy fried bread"},
		{Name: "Masala Dosa", Price: 80, Description: "Crispy rice crepe with potato filling"},
		{Name: "Chicken Biryani", Price: 150, Description: "Fragrant rice with tender chicken"},
		{Name: "Veg Thali", Price: 110, Description: "Complete vegetarian meal platter"},
	}
	if err := DB.Create(&defaults).Error; err != nil {
		log.Printf("Meal seeding failed: %v", err)
		return
	}
	log.Println("Default meals initialized")
}
