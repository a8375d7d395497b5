package services

import (
	"errors"
	"log"
	"strings"

	"messmate/models"
	"messmate/utils"

	"gorm.io/gorm"
)

// UserService is the thin account boundary: signup, login and profile
// completion. Real identity (OAuth etc.) lives outside this service.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) Register(name, email, password, role string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, invalid("email and password required")
	}
	if role == "" {
		role = "student"
	}
	if role != "student" && role != "producer" {
		return nil, invalid("unknown role")
	}
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := models.User{Name: name, Email: email, Password: hashed, Role: role}
	if err := s.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflict("user already exists")
		}
		return nil, err
	}
	return &user, nil
}

func (s *UserService) Authenticate(email, password string) (*models.User, string, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", unauthorized("invalid credentials")
		}
		return nil, "", err
	}
	if user.Password == "" || !utils.CheckPasswordHash(password, user.Password) {
		return nil, "", unauthorized("invalid credentials")
	}

	token, err := utils.GenerateJWT(user.Email, user.Role)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

func (s *UserService) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user not found")
		}
		return nil, err
	}
	return &user, nil
}

// CompleteProfile stores an optional profile photo and flips the completion
// flag. The previous photo, if any, is removed best effort.
func (s *UserService) CompleteProfile(email, photoBase64 string) (*models.User, error) {
	user, err := s.GetByEmail(email)
	if err != nil {
		return nil, err
	}

	if photoBase64 != "" {
		if user.ProfilePhotoKey != "" {
			if err := utils.DeleteImage(user.ProfilePhotoKey); err != nil {
				log.Printf("Failed to delete old photo: %v", err)
			}
		}
		url, key, err := utils.UploadBase64Image(photoBase64, "messmate-profiles")
		if err != nil {
			return nil, err
		}
		user.ProfilePhoto = url
		user.ProfilePhotoKey = key
	}

	user.ProfileComplete = true
	if err := s.db.Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// NotificationPrefs mirrors the per-user opt-out toggles. Nil fields are
// left untouched.
type NotificationPrefs struct {
	DailyReminder    *bool `json:"dailyReminder"`
	OrderUpdates     *bool `json:"orderUpdates"`
	PaymentReminders *bool `json:"paymentReminders"`
}

func (s *UserService) UpdatePreferences(email string, prefs NotificationPrefs) (*models.User, error) {
	user, err := s.GetByEmail(email)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if prefs.DailyReminder != nil {
		user.PrefDailyReminder = *prefs.DailyReminder
		updates["pref_daily_reminder"] = *prefs.DailyReminder
	}
	if prefs.OrderUpdates != nil {
		user.PrefOrderUpdates = *prefs.OrderUpdates
		updates["pref_order_updates"] = *prefs.OrderUpdates
	}
	if prefs.PaymentReminders != nil {
		user.PrefPaymentReminders = *prefs.PaymentReminders
		updates["pref_payment_reminders"] = *prefs.PaymentReminders
	}
	if len(updates) == 0 {
		return user, nil
	}
	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Orders(email string) ([]models.UserOrder, error) {
	user, err := s.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	var orders []models.UserOrder
	err = s.db.Where("user_id = ?", user.ID).Order("ordered_at DESC").Find(&orders).Error
	return orders, err
}
