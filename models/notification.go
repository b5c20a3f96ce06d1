package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationKind enum
type NotificationKind string

const (
	KindComplaintSubmitted NotificationKind = "complaint_submitted"
	KindStatusChanged      NotificationKind = "status_changed"
)

// Notification is an in-app notification row written by the notifier when a
// complaint lifecycle event fires. Delivery is best-effort; the lifecycle
// operation that produced it never waits on it.
type Notification struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	NotificationID string             `bson:"notificationId" json:"notificationId"`
	UserID         string             `bson:"userId" json:"userId"`
	Kind           NotificationKind   `bson:"kind" json:"kind"`
	Title          string             `bson:"title" json:"title"`
	Message        string             `bson:"message" json:"message"`
	ComplaintRef   string             `bson:"complaintRef,omitempty" json:"complaintRef,omitempty"`
	IsRead         bool               `bson:"isRead" json:"isRead"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}
