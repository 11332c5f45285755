package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
)

type stubRuleSource struct {
	rules map[int]*model.ScheduleRule
}

func (s *stubRuleSource) GetRule(_ context.Context, _, _ uuid.UUID, weekday int) (*model.ScheduleRule, error) {
	rule, ok := s.rules[weekday]
	if !ok {
		return nil, apperrors.NotFound("schedule rule", nil)
	}
	return rule, nil
}

type stubBookingRepo struct {
	active []*model.Booking
}

func (r *stubBookingRepo) Get(context.Context, uuid.UUID) (*model.Booking, error) {
	return nil, apperrors.NotFound("booking", nil)
}

func (r *stubBookingRepo) FindActive(_ context.Context, _, _ uuid.UUID, day time.Time) ([]*model.Booking, error) {
	var out []*model.Booking
	for _, b := range r.active {
		if b.StartsAt.Year() == day.Year() && b.StartsAt.YearDay() == day.YearDay() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *stubBookingRepo) List(context.Context, *model.BookingFilters) ([]*model.Booking, error) {
	return r.active, nil
}

func (r *stubBookingRepo) InsertIfFree(context.Context, *model.Booking, *model.OutboxEvent) error {
	return nil
}

func (r *stubBookingRepo) Move(context.Context, uuid.UUID, time.Time, *model.OutboxEvent) error {
	return nil
}

func (r *stubBookingRepo) UpdateStatus(context.Context, uuid.UUID, model.BookingStatus, model.BookingStatus, *repository.StatusMeta, *model.OutboxEvent) error {
	return nil
}

func monday() time.Time {
	return time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
}

func newResolver(rules map[int]*model.ScheduleRule, active []*model.Booking) *Service {
	return NewService(&stubRuleSource{rules: rules}, &stubBookingRepo{active: active})
}

func TestAvailableSlots_NoRuleMeansNoSlots(t *testing.T) {
	svc := newResolver(map[int]*model.ScheduleRule{}, nil)

	slots, err := svc.AvailableSlots(context.Background(), uuid.New(), uuid.New(), monday())
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestAvailableSlots_ExcludesActiveBookings(t *testing.T) {
	providerID, locationID := uuid.New(), uuid.New()
	booked := monday().Add(10 * time.Hour)
	svc := newResolver(
		map[int]*model.ScheduleRule{1: mondayClinicDay()},
		[]*model.Booking{{
			ProviderID: providerID,
			LocationID: locationID,
			StartsAt:   booked,
			Status:     model.BookingStatusScheduled,
		}},
	)

	slots, err := svc.AvailableSlots(context.Background(), providerID, locationID, monday())
	require.NoError(t, err)
	assert.Len(t, slots, 13)
	for _, s := range slots {
		assert.False(t, s.Start.Equal(booked))
	}
}

func TestAvailableSlots_StaleDurationStillBlocksStart(t *testing.T) {
	// A booking created before a schedule edit keeps its frozen duration;
	// it must still block the slot sharing its start time.
	providerID, locationID := uuid.New(), uuid.New()
	booked := monday().Add(9 * time.Hour)
	svc := newResolver(
		map[int]*model.ScheduleRule{1: mondayClinicDay()},
		[]*model.Booking{{
			ProviderID:   providerID,
			LocationID:   locationID,
			StartsAt:     booked,
			DurationMins: 45,
			Status:       model.BookingStatusConfirmed,
		}},
	)

	slots, err := svc.AvailableSlots(context.Background(), providerID, locationID, monday())
	require.NoError(t, err)
	assert.Len(t, slots, 13)
	for _, s := range slots {
		assert.False(t, s.Start.Equal(booked))
	}
}

func TestAvailableSlots_OffsetDateAnchorsToUTC(t *testing.T) {
	// A caller-supplied offset names an instant, nothing more: the clock
	// rule must stay anchored to UTC instead of re-anchoring onto the
	// caller's zone.
	svc := newResolver(map[int]*model.ScheduleRule{1: mondayClinicDay()}, nil)

	zone := time.FixedZone("UTC+5", 5*60*60)
	offsetDate := time.Date(2026, 9, 7, 9, 0, 0, 0, zone) // 04:00 UTC, same Monday

	slots, err := svc.AvailableSlots(context.Background(), uuid.New(), uuid.New(), offsetDate)
	require.NoError(t, err)
	require.Len(t, slots, 14)
	assert.True(t, slots[0].Start.Equal(time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)))
	assert.True(t, slots[13].Start.Equal(time.Date(2026, 9, 7, 16, 30, 0, 0, time.UTC)))
}

func TestAvailableSlotsRange(t *testing.T) {
	providerID, locationID := uuid.New(), uuid.New()
	svc := newResolver(map[int]*model.ScheduleRule{1: mondayClinicDay()}, nil)

	from := monday()
	to := from.AddDate(0, 0, 6)
	byDay, err := svc.AvailableSlotsRange(context.Background(), providerID, locationID, from, to)
	require.NoError(t, err)

	// Only the Monday has a rule; empty days are omitted.
	require.Len(t, byDay, 1)
	assert.Len(t, byDay["2026-09-07"], 14)
}

func TestAvailableSlotsRange_InvertedRange(t *testing.T) {
	svc := newResolver(map[int]*model.ScheduleRule{}, nil)

	_, err := svc.AvailableSlotsRange(context.Background(), uuid.New(), uuid.New(), monday(), monday().AddDate(0, 0, -1))
	assert.Equal(t, apperrors.CodeBadRequest, apperrors.CodeOf(err))
}

func TestAvailableSlotsRange_TooLong(t *testing.T) {
	svc := newResolver(map[int]*model.ScheduleRule{}, nil)

	_, err := svc.AvailableSlotsRange(context.Background(), uuid.New(), uuid.New(), monday(), monday().AddDate(0, 0, 60))
	assert.Equal(t, apperrors.CodeBadRequest, apperrors.CodeOf(err))
}
