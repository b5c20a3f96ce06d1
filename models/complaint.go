package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ComplaintCategory enum
type ComplaintCategory string

const (
	Road        ComplaintCategory = "road"
	Water       ComplaintCategory = "water"
	Electricity ComplaintCategory = "electricity"
	Sanitation  ComplaintCategory = "sanitation"
	Streetlight ComplaintCategory = "streetlight"
	Waste       ComplaintCategory = "waste"
	Other       ComplaintCategory = "other"
)

// ComplaintStatus enum
type ComplaintStatus string

const (
	StatusSubmitted   ComplaintStatus = "submitted"
	StatusInProgress  ComplaintStatus = "in-progress"
	StatusUnderReview ComplaintStatus = "under-review"
	StatusResolved    ComplaintStatus = "resolved"
)

// ComplaintPriority enum
type ComplaintPriority string

const (
	PriorityLow    ComplaintPriority = "low"
	PriorityMedium ComplaintPriority = "medium"
	PriorityHigh   ComplaintPriority = "high"
	PriorityUrgent ComplaintPriority = "urgent"
)

// Valid reports whether the category is one of the known values.
func (c ComplaintCategory) Valid() bool {
	switch c {
	case Road, Water, Electricity, Sanitation, Streetlight, Waste, Other:
		return true
	}
	return false
}

// Valid reports whether the status is one of the four lifecycle values.
func (s ComplaintStatus) Valid() bool {
	switch s {
	case StatusSubmitted, StatusInProgress, StatusUnderReview, StatusResolved:
		return true
	}
	return false
}

// Valid reports whether the priority is one of the known values.
func (p ComplaintPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Location is the structured address attached to a complaint. Coordinates are
// optional; the map feed only surfaces complaints that carry both.
type Location struct {
	Address string   `bson:"address" json:"address"`
	City    string   `bson:"city,omitempty" json:"city,omitempty"`
	State   string   `bson:"state,omitempty" json:"state,omitempty"`
	Lat     *float64 `bson:"lat,omitempty" json:"lat,omitempty"`
	Lng     *float64 `bson:"lng,omitempty" json:"lng,omitempty"`
}

// TimelineEntry is one step of a complaint's status history. The timeline is
// append-only: the first entry is always the submission, the last entry
// always matches the complaint's current status.
type TimelineEntry struct {
	Status    ComplaintStatus `bson:"status" json:"status"`
	Message   string          `bson:"message" json:"message"`
	Timestamp time.Time       `bson:"timestamp" json:"timestamp"`
}

// Complaint represents a civic complaint submitted by a citizen
type Complaint struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DisplayID   string             `bson:"displayId" json:"displayId"`
	OwnerID     string             `bson:"ownerId" json:"ownerId"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Category    ComplaintCategory  `bson:"category" json:"category"`
	Location    *Location          `bson:"location,omitempty" json:"location,omitempty"`
	EvidenceRef string             `bson:"evidenceRef,omitempty" json:"evidenceRef,omitempty"`
	Status      ComplaintStatus    `bson:"status" json:"status"`
	Priority    ComplaintPriority  `bson:"priority" json:"priority"`
	AssignedTo  string             `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	Timeline    []TimelineEntry    `bson:"timeline" json:"timeline"`
	Upvotes     int64              `bson:"upvotes" json:"upvotes"`
	Views       int64              `bson:"views" json:"views"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
	ResolvedAt  *time.Time         `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
}

// EnsureComplaintIndexes creates the unique index on displayId
func EnsureComplaintIndexes(collection *mongo.Collection) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "displayId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	_, err := collection.Indexes().CreateOne(ctx, indexModel)
	return err
}
