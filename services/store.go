package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Ad-it-ya-pa-til/cityvoice/models"
)

// TransitionUpdate carries the fields a status transition writes in one
// transactional update: the new status, the timeline entry to append, the new
// updatedAt, and (first resolution only) resolvedAt.
type TransitionUpdate struct {
	Status     models.ComplaintStatus
	Entry      models.TimelineEntry
	UpdatedAt  time.Time
	ResolvedAt *time.Time
}

// ComplaintStore is the document store surface the lifecycle core needs for
// complaints. Implementations must apply ApplyTransition and SetPriority as
// compare-and-swap writes guarded by the previously read updatedAt, and the
// counter adjustments as atomic increments.
type ComplaintStore interface {
	Insert(ctx context.Context, c *models.Complaint) error
	GetByDisplayID(ctx context.Context, displayID string) (*models.Complaint, error)
	// ApplyTransition returns false when the guard did not match, meaning a
	// concurrent writer got there first.
	ApplyTransition(ctx context.Context, displayID string, prevUpdatedAt time.Time, update TransitionUpdate) (bool, error)
	SetPriority(ctx context.Context, displayID string, prevUpdatedAt time.Time, priority models.ComplaintPriority, now time.Time) (bool, error)
	IncrementViews(ctx context.Context, displayID string) error
	AdjustUpvotes(ctx context.Context, id primitive.ObjectID, delta int64) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// CounterStore allocates monotonically increasing sequence numbers. The
// sequence for a name never goes backwards and never reuses a value, even
// when documents are later deleted.
type CounterStore interface {
	NextSequence(ctx context.Context, name string) (int64, error)
}

// UpvoteStore tracks which caller upvoted which complaint. Insert must return
// ErrConflict when the (complaint, user) pair already exists.
type UpvoteStore interface {
	Insert(ctx context.Context, upvote models.Upvote) error
	// Delete reports whether a row was actually removed.
	Delete(ctx context.Context, complaint primitive.ObjectID, user string) (bool, error)
	Exists(ctx context.Context, complaint primitive.ObjectID, user string) (bool, error)
	// DeleteForComplaint removes every upvote row for a complaint. Used when
	// the complaint itself is deleted.
	DeleteForComplaint(ctx context.Context, complaint primitive.ObjectID) error
}
