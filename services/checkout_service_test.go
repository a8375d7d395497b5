package services

import (
	"errors"
	"strconv"
	"testing"

	"messmate/models"

	"gorm.io/gorm"
)

func dosa(date string, batch int) CheckoutLine {
	return CheckoutLine{MealName: "Dosa", Price: 40, Date: date, Batch: batch}
}

func idli(date string, batch int) CheckoutLine {
	return CheckoutLine{MealName: "Idli", Price: 30, Date: date, Batch: batch}
}

func TestCheckoutCreatesToken(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db, "Asha", "asha@campus.edu")
	svc := NewCheckoutService(db, nil, nil)

	today := Today()
	results, err := svc.Checkout(user.Email, []CheckoutLine{
		dosa(today, 1), dosa(today, 1), idli(today, 1),
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 token, got %d", len(results))
	}

	tok := results[0]
	if tok.Token != "1" {
		t.Errorf("first token of the day should be \"1\", got %q", tok.Token)
	}
	if tok.TotalAmount != 110 {
		t.Errorf("total = %v, want 110", tok.TotalAmount)
	}
	if len(tok.Meals) != 2 {
		t.Fatalf("expected 2 meal lines, got %d", len(tok.Meals))
	}
	if tok.Meals[0].Name != "Dosa" || tok.Meals[0].Quantity != 2 {
		t.Errorf("repeated units should aggregate: got %+v", tok.Meals[0])
	}

	// ledger holds one row per unit, all unpaid
	if n := countOrders(t, db, user.ID, tok.Token, today, 1); n != 3 {
		t.Errorf("ledger rows = %d, want 3", n)
	}
	var unpaid int64
	db.Model(&models.UserOrder{}).Where("user_id = ? AND paid = ?", user.ID, false).Count(&unpaid)
	if unpaid != 3 {
		t.Errorf("unpaid ledger rows = %d, want 3", unpaid)
	}
}

func TestCheckoutMergesIntoExistingToken(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db, "Asha", "asha@campus.edu")
	svc := NewCheckoutService(db, nil, nil)
	today := Today()

	if _, err := svc.Checkout(user.Email, []CheckoutLine{dosa(today, 1), idli(today, 1)}); err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	results, err := svc.Checkout(user.Email, []CheckoutLine{dosa(today, 1)})
	if err != nil {
		t.Fatalf("second checkout: %v", err)
	}

	if results[0].Token != "1" {
		t.Errorf("re-checkout must keep the token number, got %q", results[0].Token)
	}
	if results[0].TotalAmount != 40 {
		t.Errorf("total after replace = %v, want 40", results[0].TotalAmount)
	}

	var tokens int64
	db.Model(&models.MealToken{}).
		Where("user_email = ? AND service_date = ? AND batch = ?", user.Email, today, 1).
		Count(&tokens)
	if tokens != 1 {
		t.Fatalf("re-checkout must not create a second token, found %d", tokens)
	}

	// ledger was rewritten, not appended to
	if n := countOrders(t, db, user.ID, "1", today, 1); n != 1 {
		t.Errorf("ledger rows after merge = %d, want 1", n)
	}
}

func TestCheckoutNumbersArePerDateAndBatch(t *testing.T) {
	db := testDB(t)
	svc := NewCheckoutService(db, nil, nil)
	today := Today()

	emails := []string{"a@campus.edu", "b@campus.edu", "c@campus.edu"}
	for i, email := range emails {
		seedUser(t, db, "Student", email)
		results, err := svc.Checkout(email, []CheckoutLine{dosa(today, 1)})
		if err != nil {
			t.Fatalf("checkout %s: %v", email, err)
		}
		want := strconv.Itoa(i + 1)
		if results[0].Token != want {
			t.Errorf("batch 1 token for %s = %q, want %q", email, results[0].Token, want)
		}
	}

	// batch 2 numbering starts over
	results, err := svc.Checkout("a@campus.edu", []CheckoutLine{dosa(today, 2)})
	if err != nil {
		t.Fatalf("batch 2 checkout: %v", err)
	}
	if results[0].Token != "1" {
		t.Errorf("batch 2 should number independently, got %q", results[0].Token)
	}
}

func TestTokenNumbersUniquePerScope(t *testing.T) {
	db := testDB(t)
	today := Today()

	first := models.MealToken{
		Number: "1", ServiceDate: today, Batch: 1,
		UserEmail: "a@campus.edu", ExpiresAt: endOfServiceDay(today),
	}
	if err := db.Create(&first).Error; err != nil {
		t.Fatalf("first token: %v", err)
	}

	// a different user claiming the same number in the same scope must hit
	// the unique index, which is what the checkout retry loop keys on
	dup := models.MealToken{
		Number: "1", ServiceDate: today, Batch: 1,
		UserEmail: "b@campus.edu", ExpiresAt: endOfServiceDay(today),
	}
	if err := db.Create(&dup).Error; !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("duplicate number insert: got %v, want duplicated key", err)
	}

	// the same number in the other batch is a different scope
	other := models.MealToken{
		Number: "1", ServiceDate: today, Batch: 2,
		UserEmail: "b@campus.edu", ExpiresAt: endOfServiceDay(today),
	}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("other batch: %v", err)
	}
}

func TestCheckoutRejections(t *testing.T) {
	db := testDB(t)
	seedUser(t, db, "Asha", "asha@campus.edu")
	svc := NewCheckoutService(db, nil, nil)
	today := Today()

	tests := []struct {
		name  string
		email string
		lines []CheckoutLine
		want  error
	}{
		{"empty cart", "asha@campus.edu", nil, ErrInvalidInput},
		{"unknown user", "ghost@campus.edu", []CheckoutLine{dosa(today, 1)}, ErrNotFound},
		{"bad batch", "asha@campus.edu", []CheckoutLine{dosa(today, 3)}, ErrInvalidInput},
		{"past date", "asha@campus.edu", []CheckoutLine{dosa("2020-01-01", 1)}, ErrInvalidInput},
		{"missing price", "asha@campus.edu", []CheckoutLine{{MealName: "Dosa", Date: today, Batch: 1}}, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Checkout(tt.email, tt.lines)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCheckoutRefusesMergeIntoPaidToken(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db, "Asha", "asha@campus.edu")
	svc := NewCheckoutService(db, nil, nil)
	today := Today()

	if _, err := svc.Checkout(user.Email, []CheckoutLine{dosa(today, 1)}); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if err := db.Model(&models.MealToken{}).
		Where("user_email = ?", user.Email).Update("paid", true).Error; err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	_, err := svc.Checkout(user.Email, []CheckoutLine{idli(today, 1)})
	if !errors.Is(err, ErrStateConflict) {
		t.Fatalf("merging into a paid token must conflict, got %v", err)
	}
}
