package routes

import (
	"messmate/controllers"
	"messmate/middlewares"

	"github.com/gin-gonic/gin"
)

// Controllers bundles everything the route table needs.
type Controllers struct {
	Auth          *controllers.AuthController
	Meals         *controllers.MealController
	Checkout      *controllers.CheckoutController
	Tokens        *controllers.TokenController
	Verify        *controllers.VerifyController
	Stats         *controllers.StatsController
	Notifications *controllers.NotificationController
	Realtime      *controllers.RealtimeController
}

func SetupRouter(c *Controllers) *gin.Engine {
	r := gin.Default()

	// Public auth routes
	r.POST("/signup", c.Auth.Signup)
	r.POST("/login", c.Auth.Login)
	r.GET("/user/:email", c.Auth.GetUser)
	r.POST("/complete-profile", c.Auth.CompleteProfile)
	r.GET("/orders/:email", c.Auth.Orders)

	// Catalog and ratings
	r.GET("/meals", c.Meals.List)
	r.GET("/meal/:name", c.Meals.Get)
	r.POST("/rate", c.Meals.Rate)

	// Checkout and token lifecycle
	r.POST("/checkout", c.Checkout.Checkout)
	r.GET("/token/:token", c.Tokens.GetByNumber)
	r.GET("/token/:token/qr", c.Tokens.PaymentQR)
	r.GET("/user-tokens/:email", c.Tokens.ListByUser)
	r.GET("/token-details/:id", c.Tokens.GetByID)
	r.PUT("/update-token/:id", c.Tokens.Update)
	r.POST("/verify-token-payment", c.Verify.ConfirmPayment)

	// Push subscriptions
	r.POST("/subscribe", c.Notifications.Subscribe)
	r.GET("/vapid-public-key", c.Notifications.PublicKey)
	r.PUT("/notification-preferences", c.Notifications.UpdatePreferences)

	// Live updates
	r.GET("/ws/ratings", c.Realtime.RatingsWS)
	r.GET("/ws/producer", c.Realtime.ProducerWS)

	// Producer-only surface: catalog management, counter-side verification
	// and the dashboard reads.
	producer := r.Group("", middlewares.AuthMiddleware(), middlewares.RequireRole("producer"))
	{
		producer.POST("/add-meal", c.Meals.Create)
		producer.PUT("/update-meal/:id", c.Meals.Update)
		producer.DELETE("/delete-meal/:id", c.Meals.Delete)

		producer.POST("/verify-token", c.Verify.VerifyToken)
		producer.POST("/verify-qr", c.Verify.VerifyQR)
		producer.POST("/check-verified", c.Verify.CheckVerified)

		producer.GET("/producer/stats", c.Stats.Orders)
		producer.GET("/producer/notification-stats", c.Stats.Notifications)
		producer.GET("/producer/recent-notifications", c.Stats.RecentNotifications)
		producer.GET("/producer/targeted-students", c.Stats.TargetedStudents)
		producer.POST("/producer/send-reminders", c.Stats.SendReminders)
	}

	return r
}
