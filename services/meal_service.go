package services

import (
	"errors"
	"log"
	"math"

	"messmate/models"
	"messmate/utils"

	"gorm.io/gorm"
)

// RatingBroadcaster pushes live rating updates to connected clients.
type RatingBroadcaster interface {
	BroadcastRating(mealName string, avgRating float64, totalRatings int)
}

type MealService struct {
	db  *gorm.DB
	hub RatingBroadcaster
}

func NewMealService(db *gorm.DB, hub RatingBroadcaster) *MealService {
	return &MealService{db: db, hub: hub}
}

func (s *MealService) List() ([]models.Meal, error) {
	var meals []models.Meal
	err := s.db.Order("name ASC").Find(&meals).Error
	return meals, err
}

func (s *MealService) GetByName(name string) (*models.Meal, error) {
	var meal models.Meal
	if err := s.db.Where("name = ?", name).First(&meal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("meal not found")
		}
		return nil, err
	}
	return &meal, nil
}

// Create adds a catalog entry. imageBase64 is optional; when present it is
// stored externally and only the URL and key land in the row.
func (s *MealService) Create(name string, price float64, description, imageBase64 string) (*models.Meal, error) {
	if name == "" {
		return nil, invalid("name and price required")
	}
	if price <= 0 {
		return nil, invalid("price must be positive")
	}

	meal := models.Meal{Name: name, Price: price, Description: description}
	if imageBase64 != "" {
		url, key, err := utils.UploadBase64Image(imageBase64, "messmate-meals")
		if err != nil {
			return nil, err
		}
		meal.Image = url
		meal.ImageKey = key
	}

	if err := s.db.Create(&meal).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflict("meal already exists")
		}
		return nil, err
	}
	return &meal, nil
}

func (s *MealService) Update(id uint, name string, price float64, description, imageBase64 string) (*models.Meal, error) {
	var meal models.Meal
	if err := s.db.First(&meal, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("meal not found")
		}
		return nil, err
	}

	if name != "" {
		meal.Name = name
	}
	if price > 0 {
		meal.Price = price
	}
	if description != "" {
		meal.Description = description
	}
	if imageBase64 != "" {
		if meal.ImageKey != "" {
			if err := utils.DeleteImage(meal.ImageKey); err != nil {
				log.Printf("Failed to delete old image: %v", err)
			}
		}
		url, key, err := utils.UploadBase64Image(imageBase64, "messmate-meals")
		if err != nil {
			return nil, err
		}
		meal.Image = url
		meal.ImageKey = key
	}

	if err := s.db.Save(&meal).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflict("meal already exists")
		}
		return nil, err
	}
	return &meal, nil
}

func (s *MealService) Delete(id uint) error {
	var meal models.Meal
	if err := s.db.First(&meal, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("meal not found")
		}
		return err
	}

	if meal.ImageKey != "" {
		if err := utils.DeleteImage(meal.ImageKey); err != nil {
			log.Printf("Failed to delete meal image: %v", err)
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("meal_id = ?", meal.ID).Delete(&models.MealRating{}).Error; err != nil {
			return err
		}
		return tx.Delete(&meal).Error
	})
}

// Rate appends one rating row and recomputes the meal's aggregate from SQL.
// Append-plus-recompute keeps concurrent submissions from losing updates;
// read-modify-write of the whole meal row would.
func (s *MealService) Rate(email, mealName string, rating int) (*models.Meal, error) {
	if email == "" || mealName == "" {
		return nil, invalid("missing fields")
	}
	if rating < 1 || rating > 5 {
		return nil, invalid("rating must be between 1 and 5")
	}

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user not found")
		}
		return nil, err
	}

	var meal models.Meal
	if err := s.db.Where("name = ?", mealName).First(&meal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("meal not found")
		}
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.MealRating{MealID: meal.ID, UserEmail: email, Rating: rating}).Error; err != nil {
			return err
		}

		var stats struct {
			Count int64
			Avg   float64
		}
		if err := tx.Model(&models.MealRating{}).
			Select("COUNT(*) as count, COALESCE(AVG(rating), 0) as avg").
			Where("meal_id = ?", meal.ID).
			Scan(&stats).Error; err != nil {
			return err
		}

		meal.AvgRating = math.Round(stats.Avg*10) / 10
		meal.TotalRatings = int(stats.Count)
		return tx.Model(&meal).Updates(map[string]any{
			"avg_rating":    meal.AvgRating,
			"total_ratings": meal.TotalRatings,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.BroadcastRating(meal.Name, meal.AvgRating, meal.TotalRatings)
	}
	return &meal, nil
}
