package services

import (
	"errors"
	"log"
	"time"

	"messmate/models"

	"gorm.io/gorm"
)

// TokenService covers token lookups, student-side edits and the expiry sweep.
type TokenService struct {
	db *gorm.DB
}

func NewTokenService(db *gorm.DB) *TokenService {
	return &TokenService{db: db}
}

// findTodayToken fetches a token by number scoped to today's service date
// and its batch. Numbers are dense per (date,batch), so both batches carry a
// token "1" every day and the batch is part of the identity. A match on a
// past date reports "expired" rather than "not found".
func findTodayToken(db *gorm.DB, number string, batch int) (*models.MealToken, error) {
	if batch != 1 && batch != 2 {
		return nil, invalid("batch must be 1 or 2")
	}

	var tok models.MealToken
	err := db.Preload("Meals").
		Where("number = ? AND service_date = ? AND batch = ?", number, Today(), batch).
		First(&tok).Error
	if err == nil {
		return &tok, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var stale int64
	db.Model(&models.MealToken{}).Where("number = ? AND batch = ?", number, batch).Count(&stale)
	if stale > 0 {
		return nil, conflict("token expired")
	}
	return nil, notFound("token not found")
}

func (s *TokenService) GetByNumber(number string, batch int) (*models.MealToken, error) {
	return findTodayToken(s.db, number, batch)
}

func (s *TokenService) GetByID(id uint) (*models.MealToken, error) {
	var tok models.MealToken
	if err := s.db.Preload("Meals").First(&tok, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("token not found")
		}
		return nil, err
	}
	return &tok, nil
}

func (s *TokenService) ListByUser(email string) ([]models.MealToken, error) {
	var toks []models.MealToken
	err := s.db.Preload("Meals").
		Where("user_email = ?", email).
		Order("created_at DESC").
		Find(&toks).Error
	return toks, err
}

// MealEdit is the replacement meal list for an update-token call.
type MealEdit struct {
	Name     string  `json:"name" binding:"required"`
	Quantity int     `json:"quantity" binding:"required,gt=0"`
	Price    float64 `json:"price" binding:"required,gt=0"`
}

// UpdateMeals replaces a token's meal lines. Edits are allowed only while the
// token is unpaid and only on its own service date; the order ledger is
// rewritten alongside so the two representations never drift.
func (s *TokenService) UpdateMeals(id uint, edits []MealEdit) (*models.MealToken, error) {
	if len(edits) == 0 {
		return nil, invalid("token must keep at least one meal")
	}
	for _, e := range edits {
		if e.Name == "" || e.Quantity <= 0 || e.Price <= 0 {
			return nil, invalid("meal lines need a name, positive quantity and price")
		}
	}

	tok, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if tok.Verified {
		return nil, conflict("cannot edit a verified token")
	}
	if tok.Paid {
		return nil, conflict("token already paid, edits are closed")
	}
	if tok.ServiceDate != Today() {
		return nil, conflict("cannot edit past tokens")
	}

	meals := make([]models.TokenMeal, 0, len(edits))
	total := 0.0
	for _, e := range edits {
		meals = append(meals, models.TokenMeal{MealTokenID: tok.ID, Name: e.Name, Quantity: e.Quantity, Price: e.Price})
		total += e.Price * float64(e.Quantity)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("meal_token_id = ?", tok.ID).Delete(&models.TokenMeal{}).Error; err != nil {
			return err
		}
		if err := tx.Create(&meals).Error; err != nil {
			return err
		}
		if err := tx.Model(tok).Update("total_amount", total).Error; err != nil {
			return err
		}

		var user models.User
		if err := tx.Where("email = ?", tok.UserEmail).First(&user).Error; err != nil {
			return err
		}
		tok.Meals = meals
		tok.TotalAmount = total
		return rewriteOrderRows(tx, user.ID, tok)
	})
	if err != nil {
		return nil, err
	}

	return tok, nil
}

// SweepExpired hard-deletes tokens past their expiry that were never paid or
// verified, plus their meal lines and matching unpaid ledger rows. The
// paid/verified condition is re-checked at delete time so an in-flight
// payment confirmation can never race the sweep.
func (s *TokenService) SweepExpired() (int, error) {
	var candidates []models.MealToken
	if err := s.db.Where("expires_at < ? AND paid = ? AND verified = ?", time.Now(), false, false).
		Find(&candidates).Error; err != nil {
		return 0, err
	}

	removed := 0
	for _, t := range candidates {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			res := tx.Unscoped().
				Where("id = ? AND paid = ? AND verified = ?", t.ID, false, false).
				Delete(&models.MealToken{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil // paid or verified since the snapshot read, leave it
			}
			if err := tx.Where("meal_token_id = ?", t.ID).Delete(&models.TokenMeal{}).Error; err != nil {
				return err
			}

			var user models.User
			if err := tx.Where("email = ?", t.UserEmail).First(&user).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					removed++
					return nil
				}
				return err
			}
			if err := tx.Where("user_id = ? AND token = ? AND service_date = ? AND batch = ? AND paid = ?",
				user.ID, t.Number, t.ServiceDate, t.Batch, false).
				Delete(&models.UserOrder{}).Error; err != nil {
				return err
			}
			removed++
			return nil
		})
		if err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// RunSweeper runs SweepExpired on a fixed cadence until stop closes.
func (s *TokenService) RunSweeper(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n, err := s.SweepExpired()
			if err != nil {
				log.Printf("token sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("token sweep removed %d expired tokens", n)
			}
		case <-stop:
			return
		}
	}
}
