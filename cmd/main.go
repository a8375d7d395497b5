package main

import (
	"log"
	"os"
	"time"

	"messmate/config"
	"messmate/controllers"
	"messmate/routes"
	"messmate/services"
	"messmate/utils"
)

func main() {
	config.InitDB()
	utils.InitS3()

	hub := services.NewRealtimeHub()

	push, err := services.NewPushService(config.DB)
	if err != nil {
		log.Printf("Push disabled: %v", err)
	}
	// interface values must stay nil when the service is unavailable
	var pusher services.Pusher
	if push != nil {
		pusher = push
	}

	users := services.NewUserService(config.DB)
	meals := services.NewMealService(config.DB, hub)
	checkout := services.NewCheckoutService(config.DB, pusher, utils.NewMailer())
	tokens := services.NewTokenService(config.DB)
	verify := services.NewVerifyService(config.DB, pusher)
	targeting := services.NewTargetingService(config.DB, pusher, hub)
	stats := services.NewStatsService(config.DB, targeting)

	stop := make(chan struct{})
	go tokens.RunSweeper(time.Hour, stop)
	go targeting.RunScheduled(stop)

	r := routes.SetupRouter(&routes.Controllers{
		Auth:          controllers.NewAuthController(users),
		Meals:         controllers.NewMealController(meals),
		Checkout:      controllers.NewCheckoutController(checkout),
		Tokens:        controllers.NewTokenController(tokens),
		Verify:        controllers.NewVerifyController(verify),
		Stats:         controllers.NewStatsController(stats, targeting),
		Notifications: controllers.NewNotificationController(push, users),
		Realtime:      controllers.NewRealtimeController(hub),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
