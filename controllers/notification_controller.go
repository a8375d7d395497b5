package controllers

import (
	"net/http"

	"messmate/services"

	"github.com/gin-gonic/gin"
)

type NotificationController struct {
	Push  *services.PushService
	Users *services.UserService
}

func NewNotificationController(push *services.PushService, users *services.UserService) *NotificationController {
	return &NotificationController{Push: push, Users: users}
}

type SubscribeInput struct {
	Email    string `json:"email" binding:"required,email"`
	Platform string `json:"platform"`
	Token    string `json:"token" binding:"required"`
}

// POST /subscribe
func (nc *NotificationController) Subscribe(c *gin.Context) {
	if nc.Push == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "push notifications unavailable"})
		return
	}

	var input SubscribeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if err := nc.Push.Subscribe(input.Email, input.Platform, input.Token); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Subscribed"})
}

// GET /vapid-public-key
func (nc *NotificationController) PublicKey(c *gin.Context) {
	key := ""
	if nc.Push != nil {
		key = nc.Push.PublicKey()
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": key})
}

type PreferencesInput struct {
	Email string                     `json:"email" binding:"required,email"`
	Prefs services.NotificationPrefs `json:"preferences"`
}

// PUT /notification-preferences
func (nc *NotificationController) UpdatePreferences(c *gin.Context) {
	var input PreferencesInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	user, err := nc.Users.UpdatePreferences(input.Email, input.Prefs)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"preferences": gin.H{
			"dailyReminder":    user.PrefDailyReminder,
			"orderUpdates":     user.PrefOrderUpdates,
			"paymentReminders": user.PrefPaymentReminders,
		},
	})
}
