package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Ad-it-ya-pa-til/cityvoice/middlewares"
	"github.com/Ad-it-ya-pa-til/cityvoice/models"
)

// NotificationReader is the notification feed surface. The Mongo notification
// store satisfies it.
type NotificationReader interface {
	ByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
}

// NotificationController serves the authenticated user's notification feed.
type NotificationController struct {
	Reader NotificationReader
}

func NewNotificationController(reader NotificationReader) *NotificationController {
	return &NotificationController{Reader: reader}
}

// ListNotifications returns the caller's most recent notifications
func (ctl *NotificationController) ListNotifications(c *gin.Context) {
	callerID, _ := middlewares.CallerIdentity(c)
	if callerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	notifications, err := ctl.Reader.ByUser(c.Request.Context(), callerID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, notifications)
}

// MarkNotificationRead flags one of the caller's notifications as read
func (ctl *NotificationController) MarkNotificationRead(c *gin.Context) {
	callerID, _ := middlewares.CallerIdentity(c)
	if callerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if err := ctl.Reader.MarkRead(c.Request.Context(), callerID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
