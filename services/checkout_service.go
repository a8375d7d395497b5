package services

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"messmate/models"

	"gorm.io/gorm"
)

// Pusher delivers a push notification to one user. Implemented by
// PushService; nil disables push entirely.
type Pusher interface {
	PushToUser(email, title, body string, data map[string]string, typ, reason string) error
}

// Mailer sends the checkout confirmation mail. Nil disables mail.
type Mailer interface {
	SendOrderConfirmation(to, tokenNumber string, total float64) error
}

// CheckoutService turns cart lines into numbered meal tokens and keeps the
// per-user order ledger in sync with them.
type CheckoutService struct {
	db   *gorm.DB
	push Pusher
	mail Mailer
}

func NewCheckoutService(db *gorm.DB, push Pusher, mail Mailer) *CheckoutService {
	return &CheckoutService{db: db, push: push, mail: mail}
}

// CheckoutLine is one meal unit from the client cart; repeated units of the
// same meal arrive as repeated lines.
type CheckoutLine struct {
	MealName string  `json:"mealName" binding:"required"`
	Price    float64 `json:"price" binding:"required,gt=0"`
	Date     string  `json:"date" binding:"required"`
	Batch    int     `json:"batch" binding:"required"`
}

type TokenResult struct {
	Token       string             `json:"token"`
	Date        string             `json:"date"`
	Batch       int                `json:"batch"`
	Meals       []models.TokenMeal `json:"meals"`
	TotalAmount float64            `json:"totalAmount"`
}

type tokenScope struct {
	date  string
	batch int
}

type lineGroup struct {
	names  []string // aggregation order
	byName map[string]*models.TokenMeal
	total  float64
}

// Checkout groups the cart by (date,batch) and produces one token per group.
// Re-checkout for a scope that already has an unpaid token replaces that
// token's lines instead of creating a duplicate. Orders are accepted for the
// current service date only.
func (s *CheckoutService) Checkout(email string, lines []CheckoutLine) ([]TokenResult, error) {
	if len(lines) == 0 {
		return nil, invalid("cart is empty")
	}

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user not found")
		}
		return nil, err
	}

	today := Today()
	groups := map[tokenScope]*lineGroup{}
	var order []tokenScope
	for _, l := range lines {
		if l.MealName == "" || l.Price <= 0 {
			return nil, invalid("order line missing meal name or price")
		}
		if l.Batch != 1 && l.Batch != 2 {
			return nil, invalid("batch must be 1 or 2")
		}
		if l.Date != today {
			return nil, invalid("orders can only be placed for today's service date")
		}

		scope := tokenScope{date: l.Date, batch: l.Batch}
		g := groups[scope]
		if g == nil {
			g = &lineGroup{byName: map[string]*models.TokenMeal{}}
			groups[scope] = g
			order = append(order, scope)
		}
		m := g.byName[l.MealName]
		if m == nil {
			m = &models.TokenMeal{Name: l.MealName, Price: l.Price}
			g.byName[l.MealName] = m
			g.names = append(g.names, l.MealName)
		}
		m.Quantity++
		g.total += l.Price
	}

	results := make([]TokenResult, 0, len(order))
	for _, scope := range order {
		tok, err := s.materializeToken(&user, scope, groups[scope])
		if err != nil {
			return nil, err
		}
		results = append(results, TokenResult{
			Token:       tok.Number,
			Date:        tok.ServiceDate,
			Batch:       tok.Batch,
			Meals:       tok.Meals,
			TotalAmount: tok.TotalAmount,
		})
	}

	// Confirmation push and mail are fire-and-forget: a delivery failure
	// must never fail the checkout that already committed.
	for _, r := range results {
		if s.push != nil {
			_ = s.push.PushToUser(user.Email, "Order Confirmed!",
				fmt.Sprintf("Your order has been placed successfully. Total: ₹%.0f. Token #%s", r.TotalAmount, r.Token),
				map[string]string{"url": "/dashboard", "token": r.Token},
				"order_update", "order_placed")
		}
		if s.mail != nil {
			_ = s.mail.SendOrderConfirmation(user.Email, r.Token, r.TotalAmount)
		}
	}

	return results, nil
}

// materializeToken creates or merges the token for one (date,batch) scope and
// rewrites the matching order ledger rows, all in one transaction. A lost
// insert race is retried by re-reading: against the (date,batch,userEmail)
// index the retry merges into the winner's token, and against the
// (date,batch,number) index the retry recounts and takes the next number.
func (s *CheckoutService) materializeToken(user *models.User, scope tokenScope, g *lineGroup) (*models.MealToken, error) {
	var tok models.MealToken

	for attempt := 0; attempt < 3; attempt++ {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			meals := make([]models.TokenMeal, 0, len(g.names))
			for _, name := range g.names {
				m := g.byName[name]
				meals = append(meals, models.TokenMeal{Name: m.Name, Quantity: m.Quantity, Price: m.Price})
			}

			err := tx.Where("service_date = ? AND batch = ? AND user_email = ?",
				scope.date, scope.batch, user.Email).First(&tok).Error
			switch {
			case err == nil:
				if tok.Paid {
					return conflict("token already paid, edits are closed")
				}
				if err := tx.Where("meal_token_id = ?", tok.ID).Delete(&models.TokenMeal{}).Error; err != nil {
					return err
				}
				for i := range meals {
					meals[i].MealTokenID = tok.ID
				}
				if err := tx.Create(&meals).Error; err != nil {
					return err
				}
				if err := tx.Model(&tok).Updates(map[string]any{
					"total_amount": g.total,
					"expires_at":   endOfServiceDay(scope.date),
				}).Error; err != nil {
					return err
				}
				tok.Meals = meals
				tok.TotalAmount = g.total

			case errors.Is(err, gorm.ErrRecordNotFound):
				var count int64
				if err := tx.Model(&models.MealToken{}).
					Where("service_date = ? AND batch = ?", scope.date, scope.batch).
					Count(&count).Error; err != nil {
					return err
				}
				tok = models.MealToken{
					Number:      strconv.FormatInt(count+1, 10),
					ServiceDate: scope.date,
					Batch:       scope.batch,
					UserEmail:   user.Email,
					UserName:    user.Name,
					UserPhoto:   user.ProfilePhoto,
					Meals:       meals,
					TotalAmount: g.total,
					ExpiresAt:   endOfServiceDay(scope.date),
				}
				if err := tx.Create(&tok).Error; err != nil {
					return err
				}

			default:
				return err
			}

			return rewriteOrderRows(tx, user.ID, &tok)
		})

		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Another checkout won the insert, either this user's (merge
			// into the winner) or another user's taking the same number
			// (recount). The reread on the next attempt handles both.
			tok = models.MealToken{}
			continue
		}
		if err != nil {
			return nil, err
		}
		return &tok, nil
	}

	return nil, fmt.Errorf("checkout contention for %s batch %d", scope.date, scope.batch)
}

// rewriteOrderRows reconciles the user's order ledger with a token: all rows
// tagged with the token's number and date are dropped and re-inserted, one
// row per meal unit. Repeating this for any edit keeps the ledger exactly
// equal to the exploded token lines.
func rewriteOrderRows(tx *gorm.DB, userID uint, tok *models.MealToken) error {
	if err := tx.Where("user_id = ? AND token = ? AND service_date = ? AND batch = ?",
		userID, tok.Number, tok.ServiceDate, tok.Batch).Delete(&models.UserOrder{}).Error; err != nil {
		return err
	}

	now := time.Now()
	var rows []models.UserOrder
	for _, m := range tok.Meals {
		for i := 0; i < m.Quantity; i++ {
			rows = append(rows, models.UserOrder{
				UserID:      userID,
				MealName:    m.Name,
				Price:       m.Price,
				OrderedAt:   now,
				ServiceDate: tok.ServiceDate,
				Batch:       tok.Batch,
				Paid:        tok.Paid,
				Token:       tok.Number,
			})
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.Create(&rows).Error
}
