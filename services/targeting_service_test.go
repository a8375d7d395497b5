package services

import (
	"errors"
	"testing"
	"time"

	"messmate/models"

	"gorm.io/gorm"
)

type sentPush struct {
	email  string
	title  string
	reason string
}

// fakePusher records deliveries; emails in fail come back as errors.
type fakePusher struct {
	sent []sentPush
	fail map[string]bool
}

func (f *fakePusher) PushToUser(email, title, body string, data map[string]string, typ, reason string) error {
	if f.fail[email] {
		return errors.New("endpoint disabled")
	}
	f.sent = append(f.sent, sentPush{email: email, title: title, reason: reason})
	return nil
}

func seedSubscribedStudent(t *testing.T, db *gorm.DB, name, email string) *models.User {
	t.Helper()
	user := models.User{
		Name: name, Email: email, Role: "student",
		PushEndpoint:         "arn:aws:sns:ap-south-1:0:endpoint/" + name,
		PushPlatform:         "web",
		PrefDailyReminder:    true,
		PrefOrderUpdates:     true,
		PrefPaymentReminders: true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed student %s: %v", email, err)
	}
	return &user
}

func TestTargetedStudentsBuckets(t *testing.T) {
	db := testDB(t)
	svc := NewTargetingService(db, nil, nil)
	today := Today()

	// no orders at all
	seedSubscribedStudent(t, db, "Noor", "noor@campus.edu")

	// ordered but not verified
	ordered := seedSubscribedStudent(t, db, "Ravi", "ravi@campus.edu")
	db.Create(&models.UserOrder{
		UserID: ordered.ID, MealName: "Dosa", Price: 40,
		OrderedAt: time.Now(), ServiceDate: today, Batch: 1, Token: "1",
	})

	// ordered and verified today
	done := seedSubscribedStudent(t, db, "Asha", "asha@campus.edu")
	now := time.Now()
	db.Create(&models.UserOrder{
		UserID: done.ID, MealName: "Dosa", Price: 40, Paid: true,
		OrderedAt: now, ServiceDate: today, Batch: 1, Token: "2",
	})
	db.Model(done).Updates(map[string]any{
		"verified_today_date":        today,
		"verified_today_verified":    true,
		"verified_today_verified_at": now,
	})

	// not subscribed: never targeted
	seedUser(t, db, "Zara", "zara@campus.edu")

	buckets, err := svc.TargetedStudents()
	if err != nil {
		t.Fatalf("targeted students: %v", err)
	}

	if len(buckets.NoOrder) != 1 || buckets.NoOrder[0].Email != "noor@campus.edu" {
		t.Errorf("NoOrder = %+v", buckets.NoOrder)
	}
	if len(buckets.NotVerified) != 1 || buckets.NotVerified[0].Email != "ravi@campus.edu" {
		t.Errorf("NotVerified = %+v", buckets.NotVerified)
	}
	if buckets.NotVerified[0].OrderCount != 1 {
		t.Errorf("OrderCount = %d, want 1", buckets.NotVerified[0].OrderCount)
	}
	if len(buckets.AllGood) != 1 || buckets.AllGood[0].Email != "asha@campus.edu" {
		t.Errorf("AllGood = %+v", buckets.AllGood)
	}
}

func TestTargetedStudentsHonorsOptOut(t *testing.T) {
	db := testDB(t)
	svc := NewTargetingService(db, nil, nil)

	optedOut := seedSubscribedStudent(t, db, "Noor", "noor@campus.edu")
	db.Model(optedOut).Update("pref_daily_reminder", false)

	buckets, err := svc.TargetedStudents()
	if err != nil {
		t.Fatalf("targeted students: %v", err)
	}
	if len(buckets.NoOrder) != 0 {
		t.Errorf("opted-out student must not be targeted: %+v", buckets.NoOrder)
	}
	if len(buckets.AllGood) != 1 {
		t.Errorf("opted-out student should land in AllGood: %+v", buckets.AllGood)
	}
}

func TestSendRemindersCountsOutcomes(t *testing.T) {
	db := testDB(t)
	push := &fakePusher{fail: map[string]bool{"ravi@campus.edu": true}}
	svc := NewTargetingService(db, push, nil)

	seedSubscribedStudent(t, db, "Noor", "noor@campus.edu")
	ordered := seedSubscribedStudent(t, db, "Ravi", "ravi@campus.edu")
	db.Create(&models.UserOrder{
		UserID: ordered.ID, MealName: "Dosa", Price: 40,
		OrderedAt: time.Now(), ServiceDate: Today(), Batch: 1, Token: "1",
	})

	results, err := svc.SendReminders("", "daily_reminder")
	if err != nil {
		t.Fatalf("send reminders: %v", err)
	}

	if results.Total != 2 || results.Successful != 1 || results.Failed != 1 {
		t.Errorf("results = %+v", results)
	}
	if len(results.Errors) != 1 || results.Errors[0].Email != "ravi@campus.edu" {
		t.Errorf("errors = %+v", results.Errors)
	}
	if len(push.sent) != 1 || push.sent[0].reason != "no_order_today" {
		t.Errorf("sent = %+v", push.sent)
	}
}

func TestSendVerificationReminders(t *testing.T) {
	db := testDB(t)
	push := &fakePusher{}
	svc := NewTargetingService(db, push, nil)
	today := Today()

	paid := seedSubscribedStudent(t, db, "Ravi", "ravi@campus.edu")
	db.Create(&models.UserOrder{
		UserID: paid.ID, MealName: "Dosa", Price: 40, Paid: true,
		OrderedAt: time.Now(), ServiceDate: today, Batch: 1, Token: "1",
	})

	// unpaid order: no verification reminder
	unpaid := seedSubscribedStudent(t, db, "Noor", "noor@campus.edu")
	db.Create(&models.UserOrder{
		UserID: unpaid.ID, MealName: "Idli", Price: 30,
		OrderedAt: time.Now(), ServiceDate: today, Batch: 1, Token: "2",
	})

	sent, err := svc.SendVerificationReminders()
	if err != nil {
		t.Fatalf("send verification reminders: %v", err)
	}
	if sent != 1 {
		t.Fatalf("sent = %d, want 1", sent)
	}
	if push.sent[0].email != "ravi@campus.edu" || push.sent[0].reason != "not_verified_evening" {
		t.Errorf("sent = %+v", push.sent)
	}
}
