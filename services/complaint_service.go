package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Ad-it-ya-pa-til/cityvoice/models"
)

// transitionRetries bounds how often a lost compare-and-swap race is retried
// before ErrConflict surfaces to the caller.
const transitionRetries = 3

// ComplaintService implements the complaint lifecycle: submission, status
// transitions, upvote/view counters, and deletion. All durable state lives in
// the injected stores; the service itself keeps nothing between calls.
type ComplaintService struct {
	complaints ComplaintStore
	counters   CounterStore
	upvotes    UpvoteStore
	notifier   Notifier

	now func() time.Time
}

func NewComplaintService(complaints ComplaintStore, counters CounterStore, upvotes UpvoteStore, notifier Notifier) *ComplaintService {
	return &ComplaintService{
		complaints: complaints,
		counters:   counters,
		upvotes:    upvotes,
		notifier:   notifier,
		now:        time.Now,
	}
}

// SubmitInput carries the caller-supplied fields of a new complaint.
type SubmitInput struct {
	Title       string
	Description string
	Category    string
	Location    *models.Location
	EvidenceRef string
	Priority    string
}

// Submit creates a complaint owned by ownerID. The display ID comes from the
// per-year monotonic counter, the status is always "submitted", and the
// timeline is seeded with the submission entry.
func (s *ComplaintService) Submit(ctx context.Context, ownerID string, input SubmitInput) (*models.Complaint, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrValidation)
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, fmt.Errorf("%w: title and description are required", ErrValidation)
	}

	category := models.Other
	if c := strings.TrimSpace(input.Category); c != "" {
		category = models.ComplaintCategory(c)
		if !category.Valid() {
			return nil, fmt.Errorf("%w: unknown category %q", ErrValidation, c)
		}
	}

	priority := models.PriorityMedium
	if p := strings.TrimSpace(input.Priority); p != "" {
		priority = models.ComplaintPriority(p)
		if !priority.Valid() {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, p)
		}
	}

	now := s.now()

	seq, err := s.counters.NextSequence(ctx, models.ComplaintCounterName(now.Year()))
	if err != nil {
		return nil, fmt.Errorf("%w: allocating display id: %v", ErrDependency, err)
	}

	complaint := &models.Complaint{
		DisplayID:   FormatDisplayID(now.Year(), seq),
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		Category:    category,
		Location:    input.Location,
		EvidenceRef: strings.TrimSpace(input.EvidenceRef),
		Status:      models.StatusSubmitted,
		Priority:    priority,
		Timeline: []models.TimelineEntry{{
			Status:    models.StatusSubmitted,
			Message:   "Complaint submitted",
			Timestamp: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.complaints.Insert(ctx, complaint); err != nil {
		return nil, fmt.Errorf("%w: inserting complaint: %v", ErrDependency, err)
	}

	log.Info().
		Str("complaint", complaint.DisplayID).
		Str("owner", ownerID).
		Msg("complaint submitted")

	emit(s.notifier, Intent{
		TargetID:     ownerID,
		Kind:         models.KindComplaintSubmitted,
		Title:        "Complaint received",
		Message:      fmt.Sprintf("Your complaint %s has been submitted", complaint.DisplayID),
		ComplaintRef: complaint.DisplayID,
	})

	return complaint, nil
}

// CanMutate is the ownership guard: the caller may mutate the complaint when
// it owns it or holds a privileged role.
func (s *ComplaintService) CanMutate(callerID string, callerRole models.UserRole, complaint *models.Complaint) bool {
	if callerRole.Privileged() {
		return true
	}
	return callerID != "" && callerID == complaint.OwnerID
}

// Transition moves a complaint to newStatus, appends the matching timeline
// entry, and pins resolvedAt on the first transition to resolved. The write
// is a compare-and-swap on the previously read updatedAt; a lost race is
// retried up to transitionRetries times before ErrConflict is returned.
func (s *ComplaintService) Transition(ctx context.Context, callerID string, callerRole models.UserRole, displayID string, newStatus models.ComplaintStatus, message string) (*models.Complaint, error) {
	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, newStatus)
	}

	for attempt := 0; attempt < transitionRetries; attempt++ {
		complaint, err := s.complaints.GetByDisplayID(ctx, displayID)
		if err != nil {
			return nil, err
		}
		if !s.CanMutate(callerID, callerRole, complaint) {
			return nil, ErrForbidden
		}

		msg := strings.TrimSpace(message)
		if msg == "" {
			msg = "Status updated to " + string(newStatus)
		}

		now := s.now()
		update := TransitionUpdate{
			Status: newStatus,
			Entry: models.TimelineEntry{
				Status:    newStatus,
				Message:   msg,
				Timestamp: now,
			},
			UpdatedAt: now,
		}
		if newStatus == models.StatusResolved && complaint.ResolvedAt == nil {
			update.ResolvedAt = &now
		}

		matched, err := s.complaints.ApplyTransition(ctx, displayID, complaint.UpdatedAt, update)
		if err != nil {
			return nil, err
		}
		if !matched {
			continue
		}

		complaint.Status = newStatus
		complaint.Timeline = append(complaint.Timeline, update.Entry)
		complaint.UpdatedAt = now
		if update.ResolvedAt != nil {
			complaint.ResolvedAt = update.ResolvedAt
		}

		log.Info().
			Str("complaint", displayID).
			Str("status", string(newStatus)).
			Str("caller", callerID).
			Msg("complaint status updated")

		emit(s.notifier, Intent{
			TargetID:     complaint.OwnerID,
			Kind:         models.KindStatusChanged,
			Title:        "Complaint status updated",
			Message:      fmt.Sprintf("%s is now %s", complaint.Title, newStatus),
			ComplaintRef: displayID,
		})

		return complaint, nil
	}

	return nil, ErrConflict
}

// SetPriority changes a complaint's priority. Only privileged roles may do
// this; owners cannot raise the priority of their own complaints.
func (s *ComplaintService) SetPriority(ctx context.Context, callerID string, callerRole models.UserRole, displayID string, priority models.ComplaintPriority) (*models.Complaint, error) {
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, priority)
	}
	if !callerRole.Privileged() {
		return nil, ErrForbidden
	}

	for attempt := 0; attempt < transitionRetries; attempt++ {
		complaint, err := s.complaints.GetByDisplayID(ctx, displayID)
		if err != nil {
			return nil, err
		}

		now := s.now()
		matched, err := s.complaints.SetPriority(ctx, displayID, complaint.UpdatedAt, priority, now)
		if err != nil {
			return nil, err
		}
		if !matched {
			continue
		}

		complaint.Priority = priority
		complaint.UpdatedAt = now
		return complaint, nil
	}

	return nil, ErrConflict
}

// Get returns a complaint by its display ID.
func (s *ComplaintService) Get(ctx context.Context, displayID string) (*models.Complaint, error) {
	return s.complaints.GetByDisplayID(ctx, displayID)
}

// RecordView bumps the view counter with an atomic increment.
func (s *ComplaintService) RecordView(ctx context.Context, displayID string) error {
	return s.complaints.IncrementViews(ctx, displayID)
}

// Remove permanently deletes a complaint and its upvote rows. Authorization
// follows the same ownership guard as Transition.
func (s *ComplaintService) Remove(ctx context.Context, callerID string, callerRole models.UserRole, displayID string) error {
	complaint, err := s.complaints.GetByDisplayID(ctx, displayID)
	if err != nil {
		return err
	}
	if !s.CanMutate(callerID, callerRole, complaint) {
		return ErrForbidden
	}

	if err := s.complaints.Delete(ctx, complaint.ID); err != nil {
		return err
	}

	if err := s.upvotes.DeleteForComplaint(ctx, complaint.ID); err != nil {
		log.Warn().Err(err).Str("complaint", displayID).Msg("failed to clean up upvotes")
	}

	log.Info().Str("complaint", displayID).Str("caller", callerID).Msg("complaint deleted")
	return nil
}

// ToggleUpvote casts or retracts the caller's upvote. The unique index on
// (complaint, user) keeps it at one per caller; the counter moves with
// atomic increments only.
func (s *ComplaintService) ToggleUpvote(ctx context.Context, callerID string, displayID string) (voted bool, upvotes int64, err error) {
	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		return false, 0, fmt.Errorf("%w: caller is required", ErrValidation)
	}

	complaint, err := s.complaints.GetByDisplayID(ctx, displayID)
	if err != nil {
		return false, 0, err
	}

	removed, err := s.upvotes.Delete(ctx, complaint.ID, callerID)
	if err != nil {
		return false, 0, err
	}
	if removed {
		if err := s.complaints.AdjustUpvotes(ctx, complaint.ID, -1); err != nil {
			return false, 0, err
		}
		return false, complaint.Upvotes - 1, nil
	}

	err = s.upvotes.Insert(ctx, models.Upvote{
		Complaint: complaint.ID,
		User:      callerID,
		CreatedAt: s.now(),
	})
	if errors.Is(err, ErrConflict) {
		// Lost a race against a concurrent upvote by the same caller.
		return true, complaint.Upvotes, nil
	}
	if err != nil {
		return false, 0, err
	}

	if err := s.complaints.AdjustUpvotes(ctx, complaint.ID, 1); err != nil {
		return false, 0, err
	}
	return true, complaint.Upvotes + 1, nil
}

// HasUpvoted reports whether the caller currently has an upvote on the
// complaint.
func (s *ComplaintService) HasUpvoted(ctx context.Context, callerID string, complaint *models.Complaint) bool {
	if callerID == "" {
		return false
	}
	ok, err := s.upvotes.Exists(ctx, complaint.ID, callerID)
	if err != nil {
		return false
	}
	return ok
}
