package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Ad-it-ya-pa-til/cityvoice/models"
	"github.com/Ad-it-ya-pa-til/cityvoice/services"
)

// Upvotes is the MongoDB-backed upvote store. The unique (complaint, user)
// index turns a racing double-insert into a duplicate key error, which is
// surfaced as services.ErrConflict.
type Upvotes struct {
	col *mongo.Collection
}

func NewUpvotes(db *mongo.Database) *Upvotes {
	return &Upvotes{col: db.Collection("upvotes")}
}

// EnsureIndexes creates the unique compound index.
func (s *Upvotes) EnsureIndexes() error {
	return models.EnsureUpvoteIndex(s.col)
}

func (s *Upvotes) Insert(ctx context.Context, upvote models.Upvote) error {
	upvote.ID = primitive.NewObjectID()
	if _, err := s.col.InsertOne(ctx, upvote); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return services.ErrConflict
		}
		return fmt.Errorf("%w: %v", services.ErrDependency, err)
	}
	return nil
}

func (s *Upvotes) Delete(ctx context.Context, complaint primitive.ObjectID, user string) (bool, error) {
	res, err := s.col.DeleteOne(ctx, bson.M{"complaint": complaint, "user": user})
	if err != nil {
		return false, fmt.Errorf("%w: %v", services.ErrDependency, err)
	}
	return res.DeletedCount > 0, nil
}

func (s *Upvotes) Exists(ctx context.Context, complaint primitive.ObjectID, user string) (bool, error) {
	count, err := s.col.CountDocuments(ctx, bson.M{"complaint": complaint, "user": user})
	if err != nil {
		return false, fmt.Errorf("%w: %v", services.ErrDependency, err)
	}
	return count > 0, nil
}

func (s *Upvotes) DeleteForComplaint(ctx context.Context, complaint primitive.ObjectID) error {
	if _, err := s.col.DeleteMany(ctx, bson.M{"complaint": complaint}); err != nil {
		return fmt.Errorf("%w: %v", services.ErrDependency, err)
	}
	return nil
}
