// Package store contains the MongoDB implementations of the document store
// interfaces the lifecycle core depends on. Everything durable lives here;
// no other package touches collections directly.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Ad-it-ya-pa-til/cityvoice/models"
	"github.com/Ad-it-ya-pa-til/cityvoice/services"
)

// Complaints is the MongoDB-backed complaint store.
type Complaints struct {
	col *mongo.Collection
}

func NewComplaints(db *mongo.Database) *Complaints {
	return &Complaints{col: db.Collection("complaints")}
}

// EnsureIndexes creates the unique displayId index.
func (s *Complaints) EnsureIndexes() error {
	return models.EnsureComplaintIndexes(s.col)
}

func (s *Complaints) Insert(ctx context.Context, c *models.Complaint) error {
	c.ID = primitive.NewObjectID()
	if _, err := s.col.InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: display id %s already taken", services.ErrConflict, c.DisplayID)
		}
		return fmt.Errorf("%w: %v", services.ErrDependency, err)
	}
	return nil
}

func (s *Complaints) GetByDisplayID(ctx context.Context, displayID string) (*models.Complaint, error) {
	var c models.Complaint
	err := s.col.FindOne(ctx, bson.M{"displayId": displayID}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, services.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrDependency, err)
	}
	return &c, nil
}

// ApplyTransition writes the status change as a single update guarded by the
// previously read updatedAt, so two concurrent transitions can never clobber
// each other's timeline entries. A false return means the guard missed.
func (s *Complaints) ApplyTransition(ctx context.Context, displayID string, prevUpdatedAt time.Time, update services.TransitionUpdate) (bool, error) {
	set := bson.M{
		"status":    update.Status,
		"updatedAt": update.UpdatedAt,
	}
	if update.ResolvedAt != nil {
		set["resolvedAt"] = update.ResolvedAt
	}

	res, err := s.col.UpdateOne(ctx,
		bson.M{"displayId": displayID, "updatedAt": prevUpdatedAt},
		bson.M{
			"$set":  set,
			"$push": bson.M{"timeline": update.Entry},
		},
	)
	if err != nil {
		return false, fmt.Errorf("%w: %v", services.ErrDependency, err)
	}
	return res.MatchedCount > 0, nil
}

func (s *Complaints) SetPriority(ctx context.Context, displayID string, prevUpdatedAt time.Time, priority models.ComplaintPriority, now time.Time) (bool, error) {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"displayId": displayID, "updatedAt": prevUpdatedAt},
		bson.M{"$set": bson.M{"priority": priority, "updatedAt": now}},
	)
	if err != nil {
		return false, fmt.Errorf("%w: %v", services.ErrDependency, err)
	}
	return res.MatchedCount > 0, nil
}

func (s *Complaints) IncrementViews(ctx context.Context, displayID string) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"displayId": displayID},
		bson.M{"$inc": bson.M{"views": 1}},
	)
	if err != nil {
		return fmt.Errorf("%w: %v", services.ErrDependency, err)
	}
	if res.MatchedCount == 0 {
		return services.ErrNotFound
	}
	return nil
}

func (s *Complaints) AdjustUpvotes(ctx context.Context, id primitive.ObjectID, delta int64) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"upvotes": delta}},
	)
	if err != nil {
		return fmt.Errorf("%w: %v", services.ErrDependency, err)
	}
	return nil
}

func (s *Complaints) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("%w: %v", services.ErrDependency, err)
	}
	if res.DeletedCount == 0 {
		return services.ErrNotFound
	}
	return nil
}

// ListParams are the public listing filters.
type ListParams struct {
	Category string
	Status   string
	Search   string
	Sort     string
	Page     int
	Limit    int
}

// ListResult is one page of complaints plus pagination info.
type ListResult struct {
	Complaints  []models.Complaint `json:"complaints"`
	Total       int64              `json:"totalComplaints"`
	TotalPages  int                `json:"totalPages"`
	CurrentPage int                `json:"currentPage"`
}

// List returns complaints filtered by category/status, optionally matched
// against a case-insensitive title/description search, sorted and paginated.
func (s *Complaints) List(ctx context.Context, params ListParams) (*ListResult, error) {
	page := params.Page
	limit := params.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	filter := bson.M{}
	if params.Category != "" && params.Category != "all" {
		filter["category"] = params.Category
	}
	if params.Status != "" && params.Status != "all" {
		filter["status"] = params.Status
	}
	if params.Search != "" {
		filter["$or"] = []bson.M{
			{"title": bson.M{"$regex": params.Search, "$options": "i"}},
			{"description": bson.M{"$regex": params.Search, "$options": "i"}},
		}
	}

	var sortOptions bson.D
	switch params.Sort {
	case "oldest":
		sortOptions = bson.D{{Key: "createdAt", Value: 1}}
	case "upvotes":
		sortOptions = bson.D{{Key: "upvotes", Value: -1}}
	case "newest":
		fallthrough
	default:
		sortOptions = bson.D{{Key: "createdAt", Value: -1}}
	}

	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrDependency, err)
	}

	skip := (page - 1) * limit
	findOptions := options.Find().
		SetSort(sortOptions).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	cursor, err := s.col.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrDependency, err)
	}
	defer cursor.Close(ctx)

	var complaints []models.Complaint
	if err := cursor.All(ctx, &complaints); err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrDependency, err)
	}

	return &ListResult{
		Complaints:  complaints,
		Total:       total,
		TotalPages:  int((total + int64(limit) - 1) / int64(limit)),
		CurrentPage: page,
	}, nil
}

// ByOwner returns the owner's complaints, newest first.
func (s *Complaints) ByOwner(ctx context.Context, ownerID string) ([]models.Complaint, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := s.col.Find(ctx, bson.M{"ownerId": ownerID}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrDependency, err)
	}
	defer cursor.Close(ctx)

	var complaints []models.Complaint
	if err := cursor.All(ctx, &complaints); err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrDependency, err)
	}
	return complaints, nil
}

// MapPoint is the projected shape the public map consumes.
type MapPoint struct {
	DisplayID string    `bson:"displayId" json:"displayId"`
	Title     string    `bson:"title" json:"title"`
	Category  string    `bson:"category" json:"category"`
	Status    string    `bson:"status" json:"status"`
	Location  *struct {
		Address string   `bson:"address" json:"address"`
		Lat     *float64 `bson:"lat" json:"lat"`
		Lng     *float64 `bson:"lng" json:"lng"`
	} `bson:"location" json:"location"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Recent returns the latest complaints that carry coordinates, projected to
// what the map needs.
func (s *Complaints) Recent(ctx context.Context, limit int) ([]MapPoint, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filter := bson.M{
		"location.lat": bson.M{"$exists": true, "$ne": nil},
		"location.lng": bson.M{"$exists": true, "$ne": nil},
	}

	projection := bson.M{
		"displayId": 1,
		"title":     1,
		"category":  1,
		"status":    1,
		"location":  1,
		"createdAt": 1,
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetProjection(projection)

	cursor, err := s.col.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrDependency, err)
	}
	defer cursor.Close(ctx)

	var points []MapPoint
	if err := cursor.All(ctx, &points); err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrDependency, err)
	}
	return points, nil
}

// Analytics is the dashboard aggregate.
type Analytics struct {
	ByCategory      []bson.M           `json:"complaintsByCategory"`
	Last7Days       []DayCount         `json:"last7Days"`
	TopUpvoted      []models.Complaint `json:"topUpvoted"`
	TotalComplaints int64              `json:"totalComplaints"`
	OpenComplaints  int64              `json:"openComplaints"`
	TotalUpvotes    int64              `json:"totalUpvotes"`
}

type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// GetAnalytics aggregates category distribution, a 7-day submission series,
// the top upvoted complaints, and overall totals.
func (s *Complaints) GetAnalytics(ctx context.Context) (*Analytics, error) {
	categoryPipeline := []bson.M{
		{
			"$group": bson.M{
				"_id":   "$category",
				"count": bson.M{"$sum": 1},
			},
		},
		{
			"$project": bson.M{
				"name":  "$_id",
				"value": "$count",
				"_id":   0,
			},
		},
	}

	categoryCursor, err := s.col.Aggregate(ctx, categoryPipeline)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrDependency, err)
	}
	defer categoryCursor.Close(ctx)

	var byCategory []bson.M
	if err := categoryCursor.All(ctx, &byCategory); err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrDependency, err)
	}

	var last7Days []DayCount
	for i := 6; i >= 0; i-- {
		day := time.Now().AddDate(0, 0, -i)
		day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
		nextDay := day.AddDate(0, 0, 1)

		count, err := s.col.CountDocuments(ctx, bson.M{
			"createdAt": bson.M{"$gte": day, "$lt": nextDay},
		})
		if err != nil {
			count = 0
		}
		last7Days = append(last7Days, DayCount{Date: day.Format("2006-01-02"), Count: count})
	}

	topOptions := options.Find().
		SetSort(bson.D{{Key: "upvotes", Value: -1}}).
		SetLimit(5)
	topCursor, err := s.col.Find(ctx, bson.M{}, topOptions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrDependency, err)
	}
	defer topCursor.Close(ctx)

	var topUpvoted []models.Complaint
	if err := topCursor.All(ctx, &topUpvoted); err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrDependency, err)
	}

	total, err := s.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		total = 0
	}

	open, err := s.col.CountDocuments(ctx, bson.M{
		"status": bson.M{"$in": []models.ComplaintStatus{
			models.StatusSubmitted, models.StatusInProgress, models.StatusUnderReview,
		}},
	})
	if err != nil {
		open = 0
	}

	var totalUpvotes int64
	sumCursor, err := s.col.Aggregate(ctx, []bson.M{
		{"$group": bson.M{"_id": nil, "total": bson.M{"$sum": "$upvotes"}}},
	})
	if err == nil {
		var sums []struct {
			Total int64 `bson:"total"`
		}
		if err := sumCursor.All(ctx, &sums); err == nil && len(sums) > 0 {
			totalUpvotes = sums[0].Total
		}
	}

	return &Analytics{
		ByCategory:      byCategory,
		Last7Days:       last7Days,
		TopUpvoted:      topUpvoted,
		TotalComplaints: total,
		OpenComplaints:  open,
		TotalUpvotes:    totalUpvotes,
	}, nil
}
