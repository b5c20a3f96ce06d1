package main

import (
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Ad-it-ya-pa-til/cityvoice/config"
	"github.com/Ad-it-ya-pa-til/cityvoice/controllers"
	"github.com/Ad-it-ya-pa-til/cityvoice/routes"
	"github.com/Ad-it-ya-pa-til/cityvoice/services"
	"github.com/Ad-it-ya-pa-til/cityvoice/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("GO_ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	db := config.ConnectDB()
	if db == nil {
		log.Fatal().Msg("Failed to connect to MongoDB")
	}
	config.ConnectRedis()

	complaints := store.NewComplaints(db)
	upvotes := store.NewUpvotes(db)
	counters := store.NewCounters(db)
	notifications := store.NewNotifications(db)

	if err := complaints.EnsureIndexes(); err != nil {
		log.Fatal().Err(err).Msg("Failed to create complaint indexes")
	}
	if err := upvotes.EnsureIndexes(); err != nil {
		log.Fatal().Err(err).Msg("Failed to create upvote indexes")
	}

	controllers.SeedDefaultAdmin()

	complaintService := services.NewComplaintService(complaints, counters, upvotes, notifications)
	complaintController := controllers.NewComplaintController(complaintService, complaints)
	notificationController := controllers.NewNotificationController(notifications)

	dailyLimit := 5
	if v, err := strconv.Atoi(os.Getenv("COMPLAINT_DAILY_LIMIT")); err == nil && v > 0 {
		dailyLimit = v
	}

	r := gin.Default()

	routes.AuthRoutes(r)
	routes.ComplaintRoutes(r, complaintController, dailyLimit)
	routes.NotificationRoutes(r, notificationController)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
