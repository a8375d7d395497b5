package services

import (
	"errors"
	"testing"

	"messmate/models"

	"gorm.io/gorm"
)

type verifyFixture struct {
	db       *gorm.DB
	checkout *CheckoutService
	verify   *VerifyService
}

func newVerifyFixture(t *testing.T) (*verifyFixture, *models.User) {
	t.Helper()
	db := testDB(t)
	user := seedUser(t, db, "Asha", "asha@campus.edu")
	return &verifyFixture{
		db:       db,
		checkout: NewCheckoutService(db, nil, nil),
		verify:   NewVerifyService(db, nil),
	}, user
}

// placeOrder runs a checkout for one dosa and returns the token number.
func (fx *verifyFixture) placeOrder(t *testing.T, email string) string {
	t.Helper()
	results, err := fx.checkout.Checkout(email, []CheckoutLine{dosa(Today(), 1)})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	return results[0].Token
}

func TestConfirmPaymentSplitsSettlement(t *testing.T) {
	t.Setenv("MESS_UPI", "mess@upi")
	t.Setenv("COMMISSION_UPI", "platform@upi")

	fx, user := newVerifyFixture(t)
	number := fx.placeOrder(t, user.Email)

	tok, err := fx.verify.ConfirmPayment(number, 1, 40, "UPI123")
	if err != nil {
		t.Fatalf("confirm payment: %v", err)
	}
	if !tok.Paid {
		t.Fatal("token should be paid")
	}
	if tok.Payment.CommissionAmount != 0.8 {
		t.Errorf("commission = %v, want 0.8", tok.Payment.CommissionAmount)
	}
	if tok.Payment.MainAmount != 39.2 {
		t.Errorf("main amount = %v, want 39.2", tok.Payment.MainAmount)
	}
	if tok.Payment.MainUPI != "mess@upi" || tok.Payment.CommissionUPI != "platform@upi" {
		t.Errorf("settlement UPIs not recorded: %+v", tok.Payment)
	}
	if tok.Payment.TransactionID == "" || tok.Payment.UPIRef != "UPI123" {
		t.Errorf("payment trail incomplete: %+v", tok.Payment)
	}

	// ledger rows flipped in the same transaction
	var unpaid int64
	fx.db.Model(&models.UserOrder{}).Where("user_id = ? AND paid = ?", user.ID, false).Count(&unpaid)
	if unpaid != 0 {
		t.Errorf("unpaid ledger rows after payment = %d, want 0", unpaid)
	}

	var stored models.MealToken
	if err := fx.db.Where("user_email = ?", user.Email).First(&stored).Error; err != nil {
		t.Fatalf("reload token: %v", err)
	}
	if !stored.Paid {
		t.Error("paid flag not persisted")
	}
}

func TestConfirmPaymentTargetsRequestedBatch(t *testing.T) {
	fx, user := newVerifyFixture(t)
	today := Today()

	// both batches hold a token "1" with different totals
	if _, err := fx.checkout.Checkout(user.Email, []CheckoutLine{dosa(today, 1)}); err != nil {
		t.Fatalf("checkout batch 1: %v", err)
	}
	if _, err := fx.checkout.Checkout(user.Email, []CheckoutLine{idli(today, 2)}); err != nil {
		t.Fatalf("checkout batch 2: %v", err)
	}

	tok, err := fx.verify.ConfirmPayment("1", 2, 30, "")
	if err != nil {
		t.Fatalf("batch 2 payment: %v", err)
	}
	if tok.Batch != 2 || tok.TotalAmount != 30 {
		t.Fatalf("paid the wrong token: batch %d total %v", tok.Batch, tok.TotalAmount)
	}

	// the batch 1 token is untouched and still payable
	var other models.MealToken
	if err := fx.db.Where("user_email = ? AND batch = ?", user.Email, 1).First(&other).Error; err != nil {
		t.Fatalf("reload batch 1 token: %v", err)
	}
	if other.Paid {
		t.Fatal("batch 1 token must stay unpaid")
	}
	if _, err := fx.verify.ConfirmPayment("1", 1, 40, ""); err != nil {
		t.Fatalf("batch 1 payment: %v", err)
	}
}

func TestConfirmPaymentGuards(t *testing.T) {
	fx, user := newVerifyFixture(t)
	number := fx.placeOrder(t, user.Email)

	if _, err := fx.verify.ConfirmPayment(number, 1, 99, ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("amount mismatch: got %v, want invalid input", err)
	}
	if _, err := fx.verify.ConfirmPayment("404", 1, 40, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown number: got %v, want not found", err)
	}

	if _, err := fx.verify.ConfirmPayment(number, 1, 40, ""); err != nil {
		t.Fatalf("confirm payment: %v", err)
	}
	if _, err := fx.verify.ConfirmPayment(number, 1, 40, ""); !errors.Is(err, ErrStateConflict) {
		t.Errorf("double confirm: got %v, want state conflict", err)
	}
}

func TestVerifyTokenRequiresPayment(t *testing.T) {
	fx, user := newVerifyFixture(t)
	number := fx.placeOrder(t, user.Email)

	if _, err := fx.verify.VerifyToken(number, 1); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("verifying an unpaid token must conflict, got %v", err)
	}
}

func TestVerifyTokenOnce(t *testing.T) {
	fx, user := newVerifyFixture(t)
	number := fx.placeOrder(t, user.Email)
	if _, err := fx.verify.ConfirmPayment(number, 1, 40, ""); err != nil {
		t.Fatalf("confirm payment: %v", err)
	}

	tok, err := fx.verify.VerifyToken(number, 1)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !tok.Verified || tok.VerifiedAt == nil {
		t.Fatal("token should carry verification timestamp")
	}
	first := *tok.VerifiedAt

	_, err = fx.verify.VerifyToken(number, 1)
	var already *AlreadyVerifiedError
	if !errors.As(err, &already) {
		t.Fatalf("second verify: got %v, want AlreadyVerifiedError", err)
	}
	if !errors.Is(err, ErrStateConflict) {
		t.Error("AlreadyVerifiedError should match ErrStateConflict")
	}
	if !already.VerifiedAt.Equal(first) {
		t.Errorf("repeat verify changed verifiedAt: %v != %v", already.VerifiedAt, first)
	}

	// snapshot written for the user
	var u models.User
	if err := fx.db.Where("email = ?", user.Email).First(&u).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if !u.VerifiedToday.Verified || u.VerifiedToday.Date != Today() {
		t.Errorf("snapshot not stamped: %+v", u.VerifiedToday)
	}
	var redeemed []models.RedeemedMeal
	fx.db.Where("user_id = ?", u.ID).Find(&redeemed)
	if len(redeemed) != 1 || redeemed[0].Name != "Dosa" || redeemed[0].Quantity != 1 {
		t.Errorf("redeemed summary wrong: %+v", redeemed)
	}
}

func TestVerifyQR(t *testing.T) {
	fx, user := newVerifyFixture(t)
	today := Today()

	// nothing paid yet
	if _, err := fx.verify.VerifyQR(user.Email, today); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("no paid orders: got %v, want invalid input", err)
	}

	number := fx.placeOrder(t, user.Email)
	if _, err := fx.verify.ConfirmPayment(number, 1, 40, ""); err != nil {
		t.Fatalf("confirm payment: %v", err)
	}

	summary, err := fx.verify.VerifyQR(user.Email, today)
	if err != nil {
		t.Fatalf("verify qr: %v", err)
	}
	if len(summary) != 1 || summary[0].Name != "Dosa" || summary[0].TotalPrice != 40 {
		t.Errorf("summary = %+v", summary)
	}

	verified, err := fx.verify.CheckVerified(user.Email, today)
	if err != nil || !verified {
		t.Errorf("CheckVerified = %v, %v; want true, nil", verified, err)
	}

	// a second scan is rejected
	_, err = fx.verify.VerifyQR(user.Email, today)
	var already *AlreadyVerifiedError
	if !errors.As(err, &already) {
		t.Fatalf("repeat scan: got %v, want AlreadyVerifiedError", err)
	}

	// the token itself was verified too
	var tok models.MealToken
	if err := fx.db.Where("user_email = ?", user.Email).First(&tok).Error; err != nil {
		t.Fatalf("reload token: %v", err)
	}
	if !tok.Verified {
		t.Error("qr verification should mark the underlying token verified")
	}
}

func TestCheckVerifiedUnknownUser(t *testing.T) {
	fx, _ := newVerifyFixture(t)
	verified, err := fx.verify.CheckVerified("ghost@campus.edu", Today())
	if err != nil || verified {
		t.Errorf("unknown user: got %v, %v; want false, nil", verified, err)
	}
}
