package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Ad-it-ya-pa-til/cityvoice/models"
	"github.com/Ad-it-ya-pa-til/cityvoice/services"
)

// Notifications stores in-app notification rows and doubles as the
// services.Notifier implementation: delivering an intent means writing a row
// the user's notification feed will pick up.
type Notifications struct {
	col *mongo.Collection
}

func NewNotifications(db *mongo.Database) *Notifications {
	return &Notifications{col: db.Collection("notifications")}
}

// Notify writes the intent as an unread notification row.
func (s *Notifications) Notify(ctx context.Context, intent services.Intent) error {
	notification := models.Notification{
		NotificationID: uuid.NewString(),
		UserID:         intent.TargetID,
		Kind:           intent.Kind,
		Title:          intent.Title,
		Message:        intent.Message,
		ComplaintRef:   intent.ComplaintRef,
		IsRead:         false,
		CreatedAt:      time.Now(),
	}

	if _, err := s.col.InsertOne(ctx, notification); err != nil {
		return fmt.Errorf("%w: %v", services.ErrDependency, err)
	}
	return nil
}

// ByUser returns the user's most recent notifications.
func (s *Notifications) ByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.col.Find(ctx, bson.M{"userId": userID}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrDependency, err)
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrDependency, err)
	}
	return notifications, nil
}

// MarkRead flags one of the user's notifications as read.
func (s *Notifications) MarkRead(ctx context.Context, userID, notificationID string) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"notificationId": notificationID, "userId": userID},
		bson.M{"$set": bson.M{"isRead": true}},
	)
	if err != nil {
		return fmt.Errorf("%w: %v", services.ErrDependency, err)
	}
	if res.MatchedCount == 0 {
		return services.ErrNotFound
	}
	return nil
}
