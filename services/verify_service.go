package services

import (
	"errors"
	"math"
	"os"
	"strconv"
	"time"

	"messmate/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// amountEpsilon is the tolerance when matching a reported payment amount
// against the token total.
const amountEpsilon = 0.01

const defaultCommissionRate = 0.02

// VerifyService owns the token state machine:
// AwaitingPayment -> Paid -> Verified, each transition one-way and guarded by
// a conditional update on the current state.
type VerifyService struct {
	db   *gorm.DB
	push Pusher
}

func NewVerifyService(db *gorm.DB, push Pusher) *VerifyService {
	return &VerifyService{db: db, push: push}
}

func commissionRate() float64 {
	if v := os.Getenv("COMMISSION_RATE"); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil && r >= 0 && r < 1 {
			return r
		}
	}
	return defaultCommissionRate
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ConfirmPayment moves a token from AwaitingPayment to Paid. The reported
// amount must match the token total within amountEpsilon. The settlement is
// split into the main mess amount and the derived commission slice, and the
// user's ledger rows for the token flip to paid in the same transaction.
func (s *VerifyService) ConfirmPayment(number string, batch int, amount float64, upiRef string) (*models.MealToken, error) {
	tok, err := findTodayToken(s.db, number, batch)
	if err != nil {
		return nil, err
	}
	if tok.Verified {
		return nil, &AlreadyVerifiedError{VerifiedAt: derefTime(tok.VerifiedAt)}
	}
	if tok.Paid {
		return nil, conflict("payment already confirmed for this token")
	}
	if math.Abs(amount-tok.TotalAmount) > amountEpsilon {
		return nil, invalid("payment amount does not match token total")
	}

	now := time.Now()
	commission := round2(tok.TotalAmount * commissionRate())
	payment := models.PaymentDetails{
		MainAmount:       round2(tok.TotalAmount - commission),
		MainUPI:          os.Getenv("MESS_UPI"),
		CommissionAmount: commission,
		CommissionUPI:    os.Getenv("COMMISSION_UPI"),
		TransactionID:    uuid.NewString(),
		UPIRef:           upiRef,
		PaidAt:           &now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.MealToken{}).
			Where("id = ? AND paid = ?", tok.ID, false).
			Updates(map[string]any{
				"paid":                       true,
				"payment_main_amount":        payment.MainAmount,
				"payment_main_upi":           payment.MainUPI,
				"payment_commission_amount":  payment.CommissionAmount,
				"payment_commission_upi":     payment.CommissionUPI,
				"payment_transaction_id":     payment.TransactionID,
				"payment_upi_ref":            payment.UPIRef,
				"payment_paid_at":            payment.PaidAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflict("payment already confirmed for this token")
		}

		var user models.User
		if err := tx.Where("email = ?", tok.UserEmail).First(&user).Error; err != nil {
			return err
		}
		return tx.Model(&models.UserOrder{}).
			Where("user_id = ? AND token = ? AND service_date = ? AND batch = ?",
				user.ID, tok.Number, tok.ServiceDate, tok.Batch).
			Update("paid", true).Error
	})
	if err != nil {
		return nil, err
	}

	tok.Paid = true
	tok.Payment = payment

	if s.push != nil {
		_ = s.push.PushToUser(tok.UserEmail, "Payment Received!",
			"Your payment has been confirmed. Show your token at the counter to collect the meal.",
			map[string]string{"url": "/dashboard", "token": tok.Number},
			"order_update", "payment_confirmed")
	}

	return tok, nil
}

// VerifyToken redeems a paid token, fetched by number and batch, exactly
// once. Repeat calls get an AlreadyVerifiedError carrying the original
// redemption time.
func (s *VerifyService) VerifyToken(number string, batch int) (*models.MealToken, error) {
	tok, err := findTodayToken(s.db, number, batch)
	if err != nil {
		return nil, err
	}
	if tok.Verified {
		return nil, &AlreadyVerifiedError{VerifiedAt: derefTime(tok.VerifiedAt)}
	}
	if !tok.Paid {
		return nil, conflict("token payment is pending, cannot verify")
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.MealToken{}).
			Where("id = ? AND verified = ? AND paid = ?", tok.ID, false, true).
			Updates(map[string]any{"verified": true, "verified_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race to a concurrent producer scan.
			var current models.MealToken
			if err := tx.First(&current, tok.ID).Error; err != nil {
				return err
			}
			return &AlreadyVerifiedError{VerifiedAt: derefTime(current.VerifiedAt)}
		}

		summary := make([]models.RedeemedMeal, 0, len(tok.Meals))
		for _, m := range tok.Meals {
			summary = append(summary, models.RedeemedMeal{
				Date:       tok.ServiceDate,
				Name:       m.Name,
				Quantity:   m.Quantity,
				TotalPrice: m.LineTotal(),
			})
		}
		return writeSnapshot(tx, tok.UserEmail, tok.ServiceDate, now, summary)
	})
	if err != nil {
		return nil, err
	}

	tok.Verified = true
	tok.VerifiedAt = &now

	if s.push != nil {
		_ = s.push.PushToUser(tok.UserEmail, "Order Verified!",
			"Your meal order has been verified. Enjoy your food!",
			map[string]string{"url": "/dashboard"},
			"order_update", "token_verified")
	}

	return tok, nil
}

// VerifyQR redeems by scanned identity instead of token number: all of the
// user's paid orders for the date are grouped and marked verified. A second
// scan of the same QR is rejected by the snapshot guard.
func (s *VerifyService) VerifyQR(email, date string) ([]models.RedeemedMeal, error) {
	if email == "" || !validServiceDate(date) {
		return nil, invalid("missing or invalid scan data")
	}

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user not found")
		}
		return nil, err
	}

	if user.VerifiedToday.Date == date && user.VerifiedToday.Verified {
		return nil, &AlreadyVerifiedError{VerifiedAt: derefTime(user.VerifiedToday.VerifiedAt)}
	}

	var orders []models.UserOrder
	if err := s.db.Where("user_id = ? AND service_date = ? AND paid = ?", user.ID, date, true).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, invalid("No paid orders for this date")
	}

	type agg struct {
		quantity int
		total    float64
	}
	grouped := map[string]*agg{}
	var names []string
	for _, o := range orders {
		a := grouped[o.MealName]
		if a == nil {
			a = &agg{}
			grouped[o.MealName] = a
			names = append(names, o.MealName)
		}
		a.quantity++
		a.total += o.Price
	}

	now := time.Now()
	summary := make([]models.RedeemedMeal, 0, len(names))
	for _, name := range names {
		summary = append(summary, models.RedeemedMeal{
			Date:       date,
			Name:       name,
			Quantity:   grouped[name].quantity,
			TotalPrice: grouped[name].total,
		})
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.MealToken{}).
			Where("user_email = ? AND service_date = ? AND paid = ? AND verified = ?", email, date, true, false).
			Updates(map[string]any{"verified": true, "verified_at": now}).Error; err != nil {
			return err
		}
		return writeSnapshot(tx, email, date, now, summary)
	})
	if err != nil {
		return nil, err
	}

	if s.push != nil {
		_ = s.push.PushToUser(email, "Order Verified!",
			"Your meal order has been verified. Enjoy your food!",
			map[string]string{"url": "/dashboard"},
			"order_update", "qr_verified")
	}

	return summary, nil
}

// CheckVerified is the idempotency guard producers call before confirming a
// pending scan. It reads only the snapshot.
func (s *VerifyService) CheckVerified(email, date string) (bool, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.VerifiedToday.Date == date && user.VerifiedToday.Verified, nil
}

// writeSnapshot replaces the user's verifiedToday snapshot and redeemed-meal
// summary wholesale.
func writeSnapshot(tx *gorm.DB, email, date string, at time.Time, summary []models.RedeemedMeal) error {
	var user models.User
	if err := tx.Where("email = ?", email).First(&user).Error; err != nil {
		return err
	}

	if err := tx.Where("user_id = ?", user.ID).Delete(&models.RedeemedMeal{}).Error; err != nil {
		return err
	}
	for i := range summary {
		summary[i].UserID = user.ID
	}
	if len(summary) > 0 {
		if err := tx.Create(&summary).Error; err != nil {
			return err
		}
	}

	return tx.Model(&user).Updates(map[string]any{
		"verified_today_date":        date,
		"verified_today_verified":    true,
		"verified_today_verified_at": at,
	}).Error
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
