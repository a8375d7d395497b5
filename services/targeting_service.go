package services

import (
	"fmt"
	"log"
	"time"

	"messmate/models"

	"gorm.io/gorm"
)

// TargetingService decides which students actually need a reminder and fans
// pushes out to them. Students who already ordered and verified are always
// skipped.
type TargetingService struct {
	db   *gorm.DB
	push Pusher
	hub  *RealtimeHub
}

func NewTargetingService(db *gorm.DB, push Pusher, hub *RealtimeHub) *TargetingService {
	return &TargetingService{db: db, push: push, hub: hub}
}

type TargetedStudent struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Reason     string `json:"reason"`
	OrderCount int    `json:"orderCount,omitempty"`
}

type TargetBuckets struct {
	NoOrder     []TargetedStudent `json:"noOrder"`
	NotVerified []TargetedStudent `json:"notVerified"`
	AllGood     []TargetedStudent `json:"allGood"`
}

// TargetedStudents buckets subscribed students by today's state. Students
// who opted out of the matching reminder type land in AllGood so the send
// loops skip them.
func (s *TargetingService) TargetedStudents() (*TargetBuckets, error) {
	today := Today()

	var students []models.User
	if err := s.db.Where("role = ? AND push_endpoint <> ''", "student").
		Preload("Orders", "service_date = ?", today).
		Find(&students).Error; err != nil {
		return nil, err
	}

	buckets := &TargetBuckets{
		NoOrder:     []TargetedStudent{},
		NotVerified: []TargetedStudent{},
		AllGood:     []TargetedStudent{},
	}
	for _, st := range students {
		verified := st.VerifiedToday.Date == today && st.VerifiedToday.Verified
		switch {
		case len(st.Orders) == 0 && st.PrefDailyReminder:
			buckets.NoOrder = append(buckets.NoOrder, TargetedStudent{
				Email: st.Email, Name: st.Name, Reason: "no_order_today",
			})
		case len(st.Orders) > 0 && !verified && st.PrefPaymentReminders:
			buckets.NotVerified = append(buckets.NotVerified, TargetedStudent{
				Email: st.Email, Name: st.Name, Reason: "not_verified", OrderCount: len(st.Orders),
			})
		default:
			buckets.AllGood = append(buckets.AllGood, TargetedStudent{
				Email: st.Email, Name: st.Name, Reason: "already_verified",
			})
		}
	}
	return buckets, nil
}

type ReminderError struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

type ReminderResults struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
	Breakdown  struct {
		NoOrder         int `json:"noOrder"`
		NotVerified     int `json:"notVerified"`
		AlreadyVerified int `json:"alreadyVerified"`
	} `json:"breakdown"`
	Errors []ReminderError `json:"errors,omitempty"`
}

// SendReminders pushes a meal reminder to every student in the NoOrder and
// NotVerified buckets, with the body tailored to why they were targeted.
func (s *TargetingService) SendReminders(message, typ string) (*ReminderResults, error) {
	if s.push == nil {
		return nil, fmt.Errorf("push delivery not configured")
	}

	buckets, err := s.TargetedStudents()
	if err != nil {
		return nil, err
	}

	toNotify := append(append([]TargetedStudent{}, buckets.NoOrder...), buckets.NotVerified...)

	results := &ReminderResults{
		Total:   len(toNotify),
		Skipped: len(buckets.AllGood),
	}
	results.Breakdown.NoOrder = len(buckets.NoOrder)
	results.Breakdown.NotVerified = len(buckets.NotVerified)
	results.Breakdown.AlreadyVerified = len(buckets.AllGood)

	for _, st := range toNotify {
		body := message
		switch st.Reason {
		case "no_order_today":
			body = "Good morning! You haven't ordered meals for today yet. Don't miss out!"
		case "not_verified":
			body = fmt.Sprintf("You have %d order(s) today that need verification. Please visit the mess to verify your token!", st.OrderCount)
		}
		if body == "" {
			body = "Meal reminder! Don't forget to order your meals for today."
		}

		err := s.push.PushToUser(st.Email, "MessMate - Meal Reminder", body,
			map[string]string{"url": "/dashboard", "action": "view_meals"}, typ, st.Reason)
		if err != nil {
			results.Failed++
			results.Errors = append(results.Errors, ReminderError{Email: st.Email, Error: err.Error()})
		} else {
			results.Successful++
		}

		// breathing room for the push service
		time.Sleep(100 * time.Millisecond)
	}

	if s.hub != nil {
		s.hub.Broadcast(ChannelProducer, map[string]any{
			"type":      "reminder_sent",
			"results":   results,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
	return results, nil
}

// SendVerificationReminders pings students holding paid-but-unverified orders
// for today, with their outstanding amount in the body.
func (s *TargetingService) SendVerificationReminders() (int, error) {
	if s.push == nil {
		return 0, fmt.Errorf("push delivery not configured")
	}

	today := Today()
	var students []models.User
	if err := s.db.Where("role = ? AND push_endpoint <> '' AND pref_payment_reminders = ?", "student", true).
		Preload("Orders", "service_date = ? AND paid = ?", today, true).
		Find(&students).Error; err != nil {
		return 0, err
	}

	sent := 0
	for _, st := range students {
		if len(st.Orders) == 0 {
			continue
		}
		if st.VerifiedToday.Date == today && st.VerifiedToday.Verified {
			continue
		}

		total := 0.0
		for _, o := range st.Orders {
			total += o.Price
		}
		err := s.push.PushToUser(st.Email, "Verification Reminder",
			fmt.Sprintf("You have %d order(s) today (₹%.0f) that need verification. Please visit the mess to verify your token!", len(st.Orders), total),
			map[string]string{"url": "/dashboard", "action": "verify_orders"},
			"payment_reminder", "not_verified_evening")
		if err == nil {
			sent++
		}
		time.Sleep(100 * time.Millisecond)
	}
	return sent, nil
}

// RunScheduled fires the 10:00 meal reminder and the 18:00 verification
// reminder, Monday through Saturday, in the mess's local timezone. A
// minute-grain ticker with a last-fired guard replaces an external scheduler.
func (s *TargetingService) RunScheduled(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var lastDaily, lastVerification string
	for {
		select {
		case <-ticker.C:
			now := time.Now().In(serviceLocation)
			if now.Weekday() == time.Sunday {
				continue
			}
			today := now.Format(serviceDateLayout)

			if now.Hour() == 10 && now.Minute() == 0 && lastDaily != today {
				lastDaily = today
				if res, err := s.SendReminders("", "daily_reminder"); err != nil {
					log.Printf("Scheduled meal reminder failed: %v", err)
				} else {
					log.Printf("Scheduled meal reminder: %d/%d sent (%d skipped)", res.Successful, res.Total, res.Skipped)
				}
			}

			if now.Hour() == 18 && now.Minute() == 0 && lastVerification != today {
				lastVerification = today
				if n, err := s.SendVerificationReminders(); err != nil {
					log.Printf("Scheduled verification reminder failed: %v", err)
				} else {
					log.Printf("Verification reminders sent to %d students", n)
				}
			}
		case <-stop:
			return
		}
	}
}
