package booking

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	"github.com/jwalitptl/booking-engine/internal/service/availability"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
	"github.com/jwalitptl/booking-engine/pkg/logger"
	"github.com/jwalitptl/booking-engine/pkg/metrics"
)

// Shared across the package: prometheus collectors register globally.
var testMetrics = metrics.NewMetrics("booking_engine", "booking_service_test")

// memBookingRepo mirrors the store's conflict arbitration: a mutex plays
// the role of the partial unique index over active bookings.
type memBookingRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*model.Booking
	events   []*model.OutboxEvent
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: make(map[uuid.UUID]*model.Booking)}
}

func (r *memBookingRepo) slotHeld(providerID, locationID uuid.UUID, startsAt time.Time, except uuid.UUID) bool {
	for _, b := range r.bookings {
		if b.ID != except && b.Status.IsActive() &&
			b.ProviderID == providerID && b.LocationID == locationID && b.StartsAt.Equal(startsAt) {
			return true
		}
	}
	return false
}

func (r *memBookingRepo) Get(_ context.Context, id uuid.UUID) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, apperrors.NotFound("booking", nil)
	}
	copied := *b
	return &copied, nil
}

func (r *memBookingRepo) FindActive(_ context.Context, providerID, locationID uuid.UUID, day time.Time) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Booking
	for _, b := range r.bookings {
		if b.Status.IsActive() && b.ProviderID == providerID && b.LocationID == locationID &&
			b.StartsAt.Year() == day.Year() && b.StartsAt.YearDay() == day.YearDay() {
			copied := *b
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memBookingRepo) List(_ context.Context, _ *model.BookingFilters) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Booking
	for _, b := range r.bookings {
		copied := *b
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memBookingRepo) InsertIfFree(_ context.Context, booking *model.Booking, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slotHeld(booking.ProviderID, booking.LocationID, booking.StartsAt, uuid.Nil) {
		return apperrors.SlotConflict(fmt.Errorf("duplicate active booking"))
	}
	copied := *booking
	r.bookings[booking.ID] = &copied
	r.events = append(r.events, event)
	return nil
}

func (r *memBookingRepo) Move(_ context.Context, id uuid.UUID, newStart time.Time, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || !b.Status.IsActive() {
		return apperrors.NotFound("active booking", nil)
	}
	if r.slotHeld(b.ProviderID, b.LocationID, newStart, id) {
		return apperrors.SlotConflict(fmt.Errorf("duplicate active booking"))
	}
	b.StartsAt = newStart
	r.events = append(r.events, event)
	return nil
}

func (r *memBookingRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.BookingStatus, meta *repository.StatusMeta, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return apperrors.NotFound("booking", nil)
	}
	if b.Status != from {
		return apperrors.InvalidTransition(string(b.Status), string(to))
	}
	b.Status = to
	if meta != nil {
		b.CancelReason = meta.CancelReason
		b.CancelledAt = meta.CancelledAt
	}
	r.events = append(r.events, event)
	return nil
}

// stubResolver generates a fixed 09:00-17:00 UTC grid of 30-minute slots
// for any requested day, independent of existing bookings. The repo is the
// arbiter, exactly as in production.
type stubResolver struct{}

func (stubResolver) AvailableSlots(_ context.Context, _, _ uuid.UUID, date time.Time) ([]model.Slot, error) {
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	var slots []model.Slot
	for mins := 9 * 60; mins+30 <= 17*60; mins += 30 {
		slots = append(slots, model.Slot{
			Start:        midnight.Add(time.Duration(mins) * time.Minute),
			DurationMins: 30,
		})
	}
	return slots, nil
}

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func newTestService() (*Service, *memBookingRepo) {
	repo := newMemBookingRepo()
	svc := NewService(repo, stubResolver{}, logger.NewLogger(nil), testMetrics).
		WithClock(func() time.Time { return testNow })
	return svc, repo
}

func createReq(startsAt time.Time) *model.CreateBookingRequest {
	return &model.CreateBookingRequest{
		ProviderID: uuid.New(),
		LocationID: uuid.New(),
		StartsAt:   startsAt,
		FeeCents:   5000,
	}
}

func TestCreate(t *testing.T) {
	svc, repo := newTestService()
	startsAt := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)

	booking, err := svc.Create(context.Background(), uuid.New(), createReq(startsAt))
	require.NoError(t, err)

	assert.Equal(t, model.BookingStatusScheduled, booking.Status)
	assert.Equal(t, 30, booking.DurationMins)
	assert.True(t, booking.StartsAt.Equal(startsAt))

	require.Len(t, repo.events, 1)
	assert.Equal(t, model.EventBookingCreated, repo.events[0].EventType)
}

func TestCreate_PastStart(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), uuid.New(), createReq(testNow.Add(-time.Hour)))
	assert.Equal(t, apperrors.CodeBadRequest, apperrors.CodeOf(err))

	_, err = svc.Create(context.Background(), uuid.New(), createReq(testNow))
	assert.Equal(t, apperrors.CodeBadRequest, apperrors.CodeOf(err))
}

func TestCreate_OffGridStart(t *testing.T) {
	svc, _ := newTestService()

	// 10:10 does not match any generated slot start.
	_, err := svc.Create(context.Background(), uuid.New(),
		createReq(time.Date(2026, 9, 7, 10, 10, 0, 0, time.UTC)))
	assert.Equal(t, apperrors.CodeSlotUnavailable, apperrors.CodeOf(err))
}

func TestCreate_ConcurrentAttemptsSingleWinner(t *testing.T) {
	svc, _ := newTestService()
	req := createReq(time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC))

	const attempts = 25
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := *req
			_, err := svc.Create(context.Background(), uuid.New(), &r)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case apperrors.Is(err, apperrors.CodeSlotConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, attempts-1, conflicts)
}

// fixedRules feeds one weekly rule to the real availability resolver.
type fixedRules struct {
	rule *model.ScheduleRule
}

func (f fixedRules) GetRule(_ context.Context, _, _ uuid.UUID, _ int) (*model.ScheduleRule, error) {
	return f.rule, nil
}

func TestCreate_CallerOffsetCannotMintOffScheduleSlot(t *testing.T) {
	// The full resolver path: a caller-supplied zone offset on starts_at
	// must not re-anchor the 09:00-17:00 grid onto instants the UTC
	// availability view never advertises.
	repo := newMemBookingRepo()
	resolver := availability.NewService(fixedRules{rule: &model.ScheduleRule{
		Weekday:          1,
		IsAvailable:      true,
		StartTime:        "09:00",
		EndTime:          "17:00",
		SlotDurationMins: 30,
	}}, repo)
	svc := NewService(repo, resolver, logger.NewLogger(nil), testMetrics).
		WithClock(func() time.Time { return testNow })

	ctx := context.Background()
	zone := time.FixedZone("UTC+5", 5*60*60)

	// 09:00+05:00 names 04:00 UTC, which is off the grid.
	_, err := svc.Create(ctx, uuid.New(), createReq(time.Date(2026, 9, 7, 9, 0, 0, 0, zone)))
	assert.Equal(t, apperrors.CodeSlotUnavailable, apperrors.CodeOf(err))

	// 14:00+05:00 is 09:00 UTC, a real slot; the booking lands there.
	req := createReq(time.Date(2026, 9, 7, 14, 0, 0, 0, zone))
	booking, err := svc.Create(ctx, uuid.New(), req)
	require.NoError(t, err)
	assert.True(t, booking.StartsAt.Equal(time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)))

	// The UTC view sees the hold.
	slots, err := resolver.AvailableSlots(ctx, req.ProviderID, req.LocationID,
		time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, slots, 15)
	for _, s := range slots {
		assert.False(t, s.Start.Equal(booking.StartsAt))
	}
}

func mustCreate(t *testing.T, svc *Service, startsAt time.Time) *model.Booking {
	t.Helper()
	booking, err := svc.Create(context.Background(), uuid.New(), createReq(startsAt))
	require.NoError(t, err)
	return booking
}

func TestReschedule(t *testing.T) {
	svc, repo := newTestService()
	booking := mustCreate(t, svc, time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC))

	newStart := time.Date(2026, 9, 8, 14, 0, 0, 0, time.UTC)
	moved, err := svc.Reschedule(context.Background(), booking.ID, newStart)
	require.NoError(t, err)

	assert.Equal(t, booking.ID, moved.ID)
	assert.True(t, moved.StartsAt.Equal(newStart))
	assert.Equal(t, booking.DurationMins, moved.DurationMins)

	stored, err := repo.Get(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.True(t, stored.StartsAt.Equal(newStart))
}

func TestReschedule_TargetTakenLeavesOriginalUntouched(t *testing.T) {
	svc, repo := newTestService()
	origStart := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	takenStart := time.Date(2026, 9, 7, 11, 0, 0, 0, time.UTC)

	booking, err := svc.Create(context.Background(), uuid.New(), createReq(origStart))
	require.NoError(t, err)
	holder := *createReq(takenStart)
	holder.ProviderID = booking.ProviderID
	holder.LocationID = booking.LocationID
	_, err = svc.Create(context.Background(), uuid.New(), &holder)
	require.NoError(t, err)

	_, err = svc.Reschedule(context.Background(), booking.ID, takenStart)
	assert.Equal(t, apperrors.CodeSlotConflict, apperrors.CodeOf(err))

	stored, err := repo.Get(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.True(t, stored.StartsAt.Equal(origStart))
	assert.Equal(t, model.BookingStatusScheduled, stored.Status)
}

func TestReschedule_CutoffBoundary(t *testing.T) {
	svc, _ := newTestService()

	// Exactly 24h out: already too late. The window is strict.
	atBoundary := mustCreate(t, svc, testNow.Add(24*time.Hour))
	_, err := svc.Reschedule(context.Background(), atBoundary.ID, testNow.Add(48*time.Hour))
	assert.Equal(t, apperrors.CodeRescheduleWindowClosed, apperrors.CodeOf(err))

	outside := mustCreate(t, svc, testNow.Add(24*time.Hour+30*time.Minute))
	_, err = svc.Reschedule(context.Background(), outside.ID, testNow.Add(48*time.Hour))
	assert.NoError(t, err)
}

func TestReschedule_CancelledBooking(t *testing.T) {
	svc, _ := newTestService()
	booking := mustCreate(t, svc, time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC))

	_, err := svc.Cancel(context.Background(), booking.ID, "patient request")
	require.NoError(t, err)

	_, err = svc.Reschedule(context.Background(), booking.ID, time.Date(2026, 9, 8, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.CodeOf(err))
}

func TestCancel(t *testing.T) {
	svc, repo := newTestService()
	startsAt := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	booking := mustCreate(t, svc, startsAt)

	cancelled, err := svc.Cancel(context.Background(), booking.ID, "patient request")
	require.NoError(t, err)

	assert.Equal(t, model.BookingStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelReason)
	assert.Equal(t, "patient request", *cancelled.CancelReason)
	assert.NotNil(t, cancelled.CancelledAt)

	// The freed slot is bookable again.
	rebook := *createReq(startsAt)
	rebook.ProviderID = booking.ProviderID
	rebook.LocationID = booking.LocationID
	_, err = svc.Create(context.Background(), uuid.New(), &rebook)
	require.NoError(t, err)

	assert.Equal(t, model.EventBookingCancelled, repo.events[1].EventType)
}

func TestCancel_CutoffBoundary(t *testing.T) {
	svc, _ := newTestService()

	atBoundary := mustCreate(t, svc, testNow.Add(24*time.Hour))
	_, err := svc.Cancel(context.Background(), atBoundary.ID, "too late")
	assert.Equal(t, apperrors.CodeCancellationWindowClosed, apperrors.CodeOf(err))

	outside := mustCreate(t, svc, testNow.Add(24*time.Hour+30*time.Minute))
	_, err = svc.Cancel(context.Background(), outside.ID, "in time")
	assert.NoError(t, err)
}

func TestLifecycle(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	booking := mustCreate(t, svc, time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC))

	confirmed, err := svc.Confirm(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, confirmed.Status)

	// Confirming twice is an invalid transition.
	_, err = svc.Confirm(ctx, booking.ID)
	assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.CodeOf(err))

	completed, err := svc.Complete(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCompleted, completed.Status)

	// Terminal states accept nothing further.
	_, err = svc.Cancel(ctx, booking.ID, "too late")
	assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.CodeOf(err))
}

func TestComplete_DirectlyFromScheduled(t *testing.T) {
	svc, _ := newTestService()
	booking := mustCreate(t, svc, time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC))

	completed, err := svc.Complete(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCompleted, completed.Status)
}
