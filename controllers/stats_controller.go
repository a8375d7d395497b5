package controllers

import (
	"net/http"
	"strconv"

	"messmate/services"

	"github.com/gin-gonic/gin"
)

type StatsController struct {
	Stats     *services.StatsService
	Targeting *services.TargetingService
}

func NewStatsController(stats *services.StatsService, targeting *services.TargetingService) *StatsController {
	return &StatsController{Stats: stats, Targeting: targeting}
}

// GET /producer/stats?period=day|week|month|year|all
func (sc *StatsController) Orders(c *gin.Context) {
	period := c.DefaultQuery("period", "day")
	stats, err := sc.Stats.Orders(period)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "period": period, "stats": stats})
}

// GET /producer/notification-stats
func (sc *StatsController) Notifications(c *gin.Context) {
	stats, err := sc.Stats.Notifications()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

// GET /producer/recent-notifications?limit=20
func (sc *StatsController) RecentNotifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	logs, err := sc.Stats.RecentNotifications(limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "notifications": logs})
}

// GET /producer/targeted-students
func (sc *StatsController) TargetedStudents(c *gin.Context) {
	buckets, err := sc.Targeting.TargetedStudents()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "targets": buckets})
}

type SendRemindersInput struct {
	Message string `json:"message"`
}

// POST /producer/send-reminders
func (sc *StatsController) SendReminders(c *gin.Context) {
	var input SendRemindersInput
	_ = c.ShouldBindJSON(&input)

	results, err := sc.Targeting.SendReminders(input.Message, "manual_reminder")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "results": results})
}
