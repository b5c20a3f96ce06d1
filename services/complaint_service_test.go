package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Ad-it-ya-pa-til/cityvoice/models"
)

// ---- in-memory fakes ----

type fakeComplaintStore struct {
	mu        sync.Mutex
	byDisplay map[string]*models.Complaint
}

func newFakeComplaintStore() *fakeComplaintStore {
	return &fakeComplaintStore{byDisplay: make(map[string]*models.Complaint)}
}

func cloneComplaint(c *models.Complaint) *models.Complaint {
	cp := *c
	cp.Timeline = append([]models.TimelineEntry(nil), c.Timeline...)
	if c.ResolvedAt != nil {
		t := *c.ResolvedAt
		cp.ResolvedAt = &t
	}
	return &cp
}

func (f *fakeComplaintStore) Insert(ctx context.Context, c *models.Complaint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byDisplay[c.DisplayID]; ok {
		return fmt.Errorf("%w: duplicate display id", ErrConflict)
	}
	c.ID = primitive.NewObjectID()
	f.byDisplay[c.DisplayID] = cloneComplaint(c)
	return nil
}

func (f *fakeComplaintStore) GetByDisplayID(ctx context.Context, displayID string) (*models.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byDisplay[displayID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneComplaint(c), nil
}

func (f *fakeComplaintStore) ApplyTransition(ctx context.Context, displayID string, prevUpdatedAt time.Time, update TransitionUpdate) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byDisplay[displayID]
	if !ok || !c.UpdatedAt.Equal(prevUpdatedAt) {
		return false, nil
	}
	c.Status = update.Status
	c.Timeline = append(c.Timeline, update.Entry)
	c.UpdatedAt = update.UpdatedAt
	if update.ResolvedAt != nil {
		t := *update.ResolvedAt
		c.ResolvedAt = &t
	}
	return true, nil
}

func (f *fakeComplaintStore) SetPriority(ctx context.Context, displayID string, prevUpdatedAt time.Time, priority models.ComplaintPriority, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byDisplay[displayID]
	if !ok || !c.UpdatedAt.Equal(prevUpdatedAt) {
		return false, nil
	}
	c.Priority = priority
	c.UpdatedAt = now
	return true, nil
}

func (f *fakeComplaintStore) IncrementViews(ctx context.Context, displayID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byDisplay[displayID]
	if !ok {
		return ErrNotFound
	}
	c.Views++
	return nil
}

func (f *fakeComplaintStore) AdjustUpvotes(ctx context.Context, id primitive.ObjectID, delta int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.byDisplay {
		if c.ID == id {
			c.Upvotes += delta
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeComplaintStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for display, c := range f.byDisplay {
		if c.ID == id {
			delete(f.byDisplay, display)
			return nil
		}
	}
	return ErrNotFound
}

type fakeCounterStore struct {
	mu   sync.Mutex
	seqs map[string]int64
}

func newFakeCounterStore() *fakeCounterStore {
	return &fakeCounterStore{seqs: make(map[string]int64)}
}

func (f *fakeCounterStore) NextSequence(ctx context.Context, name string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seqs[name]++
	return f.seqs[name], nil
}

type fakeUpvoteStore struct {
	mu    sync.Mutex
	votes map[string]map[string]bool // complaint hex -> user -> voted
}

func newFakeUpvoteStore() *fakeUpvoteStore {
	return &fakeUpvoteStore{votes: make(map[string]map[string]bool)}
}

func (f *fakeUpvoteStore) Insert(ctx context.Context, upvote models.Upvote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := upvote.Complaint.Hex()
	if f.votes[key] == nil {
		f.votes[key] = make(map[string]bool)
	}
	if f.votes[key][upvote.User] {
		return ErrConflict
	}
	f.votes[key][upvote.User] = true
	return nil
}

func (f *fakeUpvoteStore) Delete(ctx context.Context, complaint primitive.ObjectID, user string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := complaint.Hex()
	if f.votes[key] == nil || !f.votes[key][user] {
		return false, nil
	}
	delete(f.votes[key], user)
	return true, nil
}

func (f *fakeUpvoteStore) Exists(ctx context.Context, complaint primitive.ObjectID, user string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.votes[complaint.Hex()][user], nil
}

func (f *fakeUpvoteStore) DeleteForComplaint(ctx context.Context, complaint primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.votes, complaint.Hex())
	return nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	intents []Intent
}

func (f *fakeNotifier) Notify(ctx context.Context, intent Intent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intents = append(f.intents, intent)
	return nil
}

func (f *fakeNotifier) all() []Intent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Intent(nil), f.intents...)
}

func newTestService() (*ComplaintService, *fakeComplaintStore, *fakeNotifier) {
	complaints := newFakeComplaintStore()
	notifier := &fakeNotifier{}
	svc := NewComplaintService(complaints, newFakeCounterStore(), newFakeUpvoteStore(), notifier)
	return svc, complaints, notifier
}

// tickingClock returns strictly increasing timestamps, one second apart.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	tick := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return start.Add(time.Duration(tick) * time.Second)
	}
}

// ---- tests ----

func TestSubmitSeedsLifecycle(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	complaint, err := svc.Submit(ctx, "u1", SubmitInput{
		Title:       "Pothole",
		Description: "Deep hole on 5th ave",
	})
	require.NoError(t, err)

	year := time.Now().Year()
	assert.Equal(t, FormatDisplayID(year, 1), complaint.DisplayID)
	assert.Equal(t, models.StatusSubmitted, complaint.Status)
	assert.Equal(t, models.PriorityMedium, complaint.Priority)
	assert.Equal(t, models.Other, complaint.Category)
	require.Len(t, complaint.Timeline, 1)
	assert.Equal(t, models.StatusSubmitted, complaint.Timeline[0].Status)
	assert.Equal(t, "Complaint submitted", complaint.Timeline[0].Message)
	assert.Zero(t, complaint.Upvotes)
	assert.Zero(t, complaint.Views)
	assert.Nil(t, complaint.ResolvedAt)
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name  string
		owner string
		input SubmitInput
	}{
		{"missing owner", "", SubmitInput{Title: "a", Description: "b"}},
		{"missing title", "u1", SubmitInput{Description: "b"}},
		{"whitespace title", "u1", SubmitInput{Title: "   ", Description: "b"}},
		{"missing description", "u1", SubmitInput{Title: "a"}},
		{"unknown category", "u1", SubmitInput{Title: "a", Description: "b", Category: "volcano"}},
		{"unknown priority", "u1", SubmitInput{Title: "a", Description: "b", Priority: "asap"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, tc.owner, tc.input)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestSubmitEmitsNotification(t *testing.T) {
	svc, _, notifier := newTestService()

	complaint, err := svc.Submit(context.Background(), "u1", SubmitInput{Title: "Pothole", Description: "Deep"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(notifier.all()) == 1
	}, time.Second, 10*time.Millisecond)

	intent := notifier.all()[0]
	assert.Equal(t, "u1", intent.TargetID)
	assert.Equal(t, models.KindComplaintSubmitted, intent.Kind)
	assert.Equal(t, complaint.DisplayID, intent.ComplaintRef)
}

func TestDisplayIDsSurviveDeletion(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	first, err := svc.Submit(ctx, "u1", SubmitInput{Title: "a", Description: "b"})
	require.NoError(t, err)
	require.NoError(t, svc.Remove(ctx, "u1", models.RoleUser, first.DisplayID))

	second, err := svc.Submit(ctx, "u1", SubmitInput{Title: "c", Description: "d"})
	require.NoError(t, err)

	// The counter keeps moving forward; the freed ordinal is never reused.
	assert.NotEqual(t, first.DisplayID, second.DisplayID)
	assert.Equal(t, FormatDisplayID(time.Now().Year(), 2), second.DisplayID)
}

func TestConcurrentSubmitsYieldDistinctIDs(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	const n = 25
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := svc.Submit(ctx, fmt.Sprintf("u%d", i), SubmitInput{Title: "a", Description: "b"})
			if err == nil {
				ids <- c.DisplayID
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate display id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func TestTransitionByOwnerResolves(t *testing.T) {
	svc, _, _ := newTestService()
	svc.now = tickingClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	complaint, err := svc.Submit(ctx, "u1", SubmitInput{Title: "a", Description: "b"})
	require.NoError(t, err)

	updated, err := svc.Transition(ctx, "u1", models.RoleUser, complaint.DisplayID, models.StatusResolved, "")
	require.NoError(t, err)

	assert.Equal(t, models.StatusResolved, updated.Status)
	require.Len(t, updated.Timeline, 2)
	assert.Equal(t, models.StatusResolved, updated.Timeline[1].Status)
	assert.Equal(t, "Status updated to resolved", updated.Timeline[1].Message)
	require.NotNil(t, updated.ResolvedAt)
	assert.True(t, updated.Timeline[1].Timestamp.Equal(*updated.ResolvedAt))
}

func TestTransitionForbiddenLeavesRecordUnmodified(t *testing.T) {
	svc, complaints, _ := newTestService()
	ctx := context.Background()

	complaint, err := svc.Submit(ctx, "u1", SubmitInput{Title: "a", Description: "b"})
	require.NoError(t, err)

	_, err = svc.Transition(ctx, "u2", models.RoleUser, complaint.DisplayID, models.StatusResolved, "")
	assert.ErrorIs(t, err, ErrForbidden)

	stored, err := complaints.GetByDisplayID(ctx, complaint.DisplayID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, stored.Status)
	assert.Len(t, stored.Timeline, 1)
	assert.Nil(t, stored.ResolvedAt)
}

func TestTransitionPrivilegedRoles(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	complaint, err := svc.Submit(ctx, "u1", SubmitInput{Title: "a", Description: "b"})
	require.NoError(t, err)

	updated, err := svc.Transition(ctx, "staff-1", models.RoleModerator, complaint.DisplayID, models.StatusInProgress, "Crew dispatched")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.Equal(t, "Crew dispatched", updated.Timeline[1].Message)

	updated, err = svc.Transition(ctx, "admin-1", models.RoleAdmin, complaint.DisplayID, models.StatusUnderReview, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, updated.Status)
}

func TestTransitionInvalidStatus(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Transition(context.Background(), "u1", models.RoleUser, "CV-2025-001", "escalated", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTransitionNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Transition(context.Background(), "u1", models.RoleUser, "CV-2025-999", models.StatusResolved, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolvedAtPinsFirstResolution(t *testing.T) {
	svc, _, _ := newTestService()
	svc.now = tickingClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	complaint, err := svc.Submit(ctx, "u1", SubmitInput{Title: "a", Description: "b"})
	require.NoError(t, err)

	first, err := svc.Transition(ctx, "u1", models.RoleUser, complaint.DisplayID, models.StatusResolved, "")
	require.NoError(t, err)
	require.NotNil(t, first.ResolvedAt)
	firstResolved := *first.ResolvedAt

	_, err = svc.Transition(ctx, "u1", models.RoleUser, complaint.DisplayID, models.StatusInProgress, "Reopened")
	require.NoError(t, err)

	second, err := svc.Transition(ctx, "u1", models.RoleUser, complaint.DisplayID, models.StatusResolved, "")
	require.NoError(t, err)

	require.NotNil(t, second.ResolvedAt)
	assert.True(t, second.ResolvedAt.Equal(firstResolved), "resolvedAt must keep the first resolution time")
	assert.True(t, second.Timeline[len(second.Timeline)-1].Timestamp.After(firstResolved))
}

func TestRemoveThenTransitionNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	complaint, err := svc.Submit(ctx, "u1", SubmitInput{Title: "a", Description: "b"})
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, "u1", models.RoleUser, complaint.DisplayID))

	_, err = svc.Transition(ctx, "u1", models.RoleUser, complaint.DisplayID, models.StatusResolved, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveForbidden(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	complaint, err := svc.Submit(ctx, "u1", SubmitInput{Title: "a", Description: "b"})
	require.NoError(t, err)

	err = svc.Remove(ctx, "u2", models.RoleUser, complaint.DisplayID)
	assert.ErrorIs(t, err, ErrForbidden)
}

// stubbornStore never matches the compare-and-swap guard, as if another
// writer always wins the race.
type stubbornStore struct {
	*fakeComplaintStore
	attempts int
}

func (s *stubbornStore) ApplyTransition(ctx context.Context, displayID string, prevUpdatedAt time.Time, update TransitionUpdate) (bool, error) {
	s.attempts++
	return false, nil
}

func TestTransitionConflictAfterBoundedRetries(t *testing.T) {
	inner := newFakeComplaintStore()
	stubborn := &stubbornStore{fakeComplaintStore: inner}
	svc := NewComplaintService(stubborn, newFakeCounterStore(), newFakeUpvoteStore(), nil)
	ctx := context.Background()

	complaint, err := svc.Submit(ctx, "u1", SubmitInput{Title: "a", Description: "b"})
	require.NoError(t, err)

	_, err = svc.Transition(ctx, "u1", models.RoleUser, complaint.DisplayID, models.StatusResolved, "")
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, transitionRetries, stubborn.attempts)
}

func TestToggleUpvote(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	complaint, err := svc.Submit(ctx, "u1", SubmitInput{Title: "a", Description: "b"})
	require.NoError(t, err)

	voted, upvotes, err := svc.ToggleUpvote(ctx, "u2", complaint.DisplayID)
	require.NoError(t, err)
	assert.True(t, voted)
	assert.EqualValues(t, 1, upvotes)

	voted, upvotes, err = svc.ToggleUpvote(ctx, "u2", complaint.DisplayID)
	require.NoError(t, err)
	assert.False(t, voted)
	assert.EqualValues(t, 0, upvotes)
}

func TestSetPriorityPrivilegedOnly(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	complaint, err := svc.Submit(ctx, "u1", SubmitInput{Title: "a", Description: "b"})
	require.NoError(t, err)

	_, err = svc.SetPriority(ctx, "u1", models.RoleUser, complaint.DisplayID, models.PriorityUrgent)
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.SetPriority(ctx, "admin-1", models.RoleAdmin, complaint.DisplayID, models.PriorityUrgent)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityUrgent, updated.Priority)
}

func TestCanMutate(t *testing.T) {
	svc, _, _ := newTestService()
	complaint := &models.Complaint{OwnerID: "u1"}

	assert.True(t, svc.CanMutate("u1", models.RoleUser, complaint))
	assert.True(t, svc.CanMutate("u2", models.RoleAdmin, complaint))
	assert.True(t, svc.CanMutate("u2", models.RoleModerator, complaint))
	assert.False(t, svc.CanMutate("u2", models.RoleUser, complaint))
	assert.False(t, svc.CanMutate("", models.RoleUser, complaint))
}

func TestTransitionEmitsStatusChangedNotification(t *testing.T) {
	svc, _, notifier := newTestService()
	ctx := context.Background()

	complaint, err := svc.Submit(ctx, "u1", SubmitInput{Title: "Pothole", Description: "Deep"})
	require.NoError(t, err)

	_, err = svc.Transition(ctx, "admin-1", models.RoleAdmin, complaint.DisplayID, models.StatusResolved, "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(notifier.all()) == 2
	}, time.Second, 10*time.Millisecond)

	var statusIntent *Intent
	for _, intent := range notifier.all() {
		if intent.Kind == models.KindStatusChanged {
			i := intent
			statusIntent = &i
		}
	}
	require.NotNil(t, statusIntent)
	assert.Equal(t, "u1", statusIntent.TargetID, "status notifications go to the owner, not the admin")
	assert.Equal(t, complaint.DisplayID, statusIntent.ComplaintRef)
}
