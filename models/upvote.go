package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Upvote represents a user's upvote on a complaint
type Upvote struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Complaint primitive.ObjectID `bson:"complaint" json:"complaint"`
	User      string             `bson:"user" json:"user"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// EnsureUpvoteIndex creates a unique compound index for (complaint, user) so
// a caller can upvote a given complaint at most once.
func EnsureUpvoteIndex(collection *mongo.Collection) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "complaint", Value: 1}, {Key: "user", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	_, err := collection.Indexes().CreateOne(ctx, indexModel)
	return err
}
