package services

import (
	"time"

	"messmate/models"

	"gorm.io/gorm"
)

// StatsService is the read-only aggregation surface behind the producer
// dashboard. It consumes order, snapshot and notification-log state and
// never mutates any of it.
type StatsService struct {
	db        *gorm.DB
	targeting *TargetingService
}

func NewStatsService(db *gorm.DB, targeting *TargetingService) *StatsService {
	return &StatsService{db: db, targeting: targeting}
}

type OrderStats struct {
	Total    int            `json:"total"`
	Paid     int            `json:"paid"`
	Unpaid   int            `json:"unpaid"`
	Meals    map[string]int `json:"meals"`
	Verified int            `json:"verified"`
}

// Orders aggregates the ledger for a period: day, week, month or year;
// anything else means all time. Verified counts redeemed meal units from
// today's snapshots.
func (s *StatsService) Orders(period string) (*OrderStats, error) {
	now := time.Now().In(serviceLocation)
	var start time.Time
	switch period {
	case "day":
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, serviceLocation)
	case "week":
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, serviceLocation)
		start = day.AddDate(0, 0, -int(now.Weekday()))
	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, serviceLocation)
	case "year":
		start = time.Date(now.Year(), 1, 1, 0, 0, 0, 0, serviceLocation)
	default:
		start = time.Time{}
	}

	var orders []models.UserOrder
	// Bind in UTC: sqlite compares timestamp text lexicographically, so an
	// offset-bearing bound would misorder against stored UTC values.
	if err := s.db.Where("ordered_at >= ?", start.UTC()).Find(&orders).Error; err != nil {
		return nil, err
	}

	stats := &OrderStats{Meals: map[string]int{}}
	stats.Total = len(orders)
	for _, o := range orders {
		if o.Paid {
			stats.Paid++
		}
		stats.Meals[o.MealName]++
	}
	stats.Unpaid = stats.Total - stats.Paid

	today := Today()
	var redeemed []models.RedeemedMeal
	if err := s.db.
		Joins("JOIN users ON users.id = redeemed_meals.user_id").
		Where("redeemed_meals.date = ? AND users.verified_today_date = ? AND users.verified_today_verified = ?",
			today, today, true).
		Find(&redeemed).Error; err != nil {
		return nil, err
	}
	for _, r := range redeemed {
		stats.Verified += r.Quantity
	}

	return stats, nil
}

type NotificationStats struct {
	TotalStudents      int64 `json:"totalStudents"`
	SubscribedStudents int64 `json:"subscribedStudents"`
	NotificationsToday struct {
		Successful int64 `json:"successful"`
		Failed     int64 `json:"failed"`
		Total      int64 `json:"total"`
	} `json:"notificationsToday"`
	SubscriptionRate float64 `json:"subscriptionRate"`
	Targeting        struct {
		NoOrderToday    int `json:"noOrderToday"`
		NotVerified     int `json:"notVerified"`
		AlreadyVerified int `json:"alreadyVerified"`
		WillNotify      int `json:"willNotify"`
	} `json:"targeting"`
}

func (s *StatsService) Notifications() (*NotificationStats, error) {
	stats := &NotificationStats{}

	if err := s.db.Model(&models.User{}).Where("role = ?", "student").
		Count(&stats.TotalStudents).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.User{}).Where("role = ? AND push_endpoint <> ''", "student").
		Count(&stats.SubscribedStudents).Error; err != nil {
		return nil, err
	}
	if stats.TotalStudents > 0 {
		stats.SubscriptionRate = float64(stats.SubscribedStudents) / float64(stats.TotalStudents) * 100
	}

	now := time.Now().In(serviceLocation)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, serviceLocation)
	if err := s.db.Model(&models.NotificationLog{}).
		Where("sent_at >= ? AND success = ?", dayStart.UTC(), true).
		Count(&stats.NotificationsToday.Successful).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.NotificationLog{}).
		Where("sent_at >= ? AND success = ?", dayStart.UTC(), false).
		Count(&stats.NotificationsToday.Failed).Error; err != nil {
		return nil, err
	}
	stats.NotificationsToday.Total = stats.NotificationsToday.Successful + stats.NotificationsToday.Failed

	buckets, err := s.targeting.TargetedStudents()
	if err != nil {
		return nil, err
	}
	stats.Targeting.NoOrderToday = len(buckets.NoOrder)
	stats.Targeting.NotVerified = len(buckets.NotVerified)
	stats.Targeting.AlreadyVerified = len(buckets.AllGood)
	stats.Targeting.WillNotify = len(buckets.NoOrder) + len(buckets.NotVerified)

	return stats, nil
}

func (s *StatsService) RecentNotifications(limit int) ([]models.NotificationLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var logs []models.NotificationLog
	err := s.db.Order("sent_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
