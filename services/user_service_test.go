package services

import (
	"errors"
	"testing"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := testDB(t)
	svc := NewUserService(db)

	user, err := svc.Register("Asha", "asha@campus.edu", "s3cret", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != "student" {
		t.Errorf("default role = %q, want student", user.Role)
	}
	if user.Password == "s3cret" {
		t.Error("password stored in plaintext")
	}

	if _, err := svc.Register("Asha", "asha@campus.edu", "other", ""); !errors.Is(err, ErrStateConflict) {
		t.Errorf("duplicate register: got %v, want state conflict", err)
	}
	if _, err := svc.Register("X", "x@campus.edu", "pw", "admin"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unknown role: got %v, want invalid input", err)
	}

	got, token, err := svc.Authenticate("asha@campus.edu", "s3cret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if token == "" || got.Email != "asha@campus.edu" {
		t.Errorf("login result: token=%q user=%+v", token, got)
	}

	if _, _, err := svc.Authenticate("asha@campus.edu", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("bad password: got %v, want unauthorized", err)
	}
	if _, _, err := svc.Authenticate("ghost@campus.edu", "pw"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("unknown user: got %v, want unauthorized", err)
	}
}

func TestRegisterDerivesNameFromEmail(t *testing.T) {
	db := testDB(t)
	svc := NewUserService(db)

	user, err := svc.Register("", "ravi.k@campus.edu", "pw", "producer")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Name != "ravi.k" {
		t.Errorf("derived name = %q, want ravi.k", user.Name)
	}
	if user.Role != "producer" {
		t.Errorf("role = %q, want producer", user.Role)
	}
}

func TestUpdatePreferencesPartial(t *testing.T) {
	db := testDB(t)
	svc := NewUserService(db)
	seedUser(t, db, "Asha", "asha@campus.edu")

	off := false
	user, err := svc.UpdatePreferences("asha@campus.edu", NotificationPrefs{DailyReminder: &off})
	if err != nil {
		t.Fatalf("update prefs: %v", err)
	}
	if user.PrefDailyReminder {
		t.Error("daily reminder should be off")
	}
	if !user.PrefPaymentReminders {
		t.Error("untouched preference must keep its value")
	}
}
