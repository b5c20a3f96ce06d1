package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Ad-it-ya-pa-til/cityvoice/controllers"
	"github.com/Ad-it-ya-pa-til/cityvoice/middlewares"
)

// NotificationRoutes sets up the notification feed routes
func NotificationRoutes(r *gin.Engine, ctl *controllers.NotificationController) {
	notifications := r.Group("/api/notifications", middlewares.AuthMiddleware())
	{
		notifications.GET("", ctl.ListNotifications)
		notifications.POST("/:id/read", ctl.MarkNotificationRead)
	}
}
