package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Ad-it-ya-pa-til/cityvoice/models"
	"github.com/Ad-it-ya-pa-til/cityvoice/services"
)

// Counters allocates sequence numbers from a counters collection. The $inc
// upsert is atomic server-side, so concurrent allocations always see distinct
// values, and the counter never moves backwards when complaints are deleted.
type Counters struct {
	col *mongo.Collection
}

func NewCounters(db *mongo.Database) *Counters {
	return &Counters{col: db.Collection("counters")}
}

func (s *Counters) NextSequence(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter models.Counter
	err := s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", services.ErrDependency, err)
	}
	return counter.Seq, nil
}
