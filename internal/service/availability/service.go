package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
)

// RuleSource yields the applicable schedule rule for a weekday. Satisfied
// by the schedule service, which layers a cache over the schedule store.
type RuleSource interface {
	GetRule(ctx context.Context, providerID, locationID uuid.UUID, weekday int) (*model.ScheduleRule, error)
}

// Service is the availability resolver. Its view is advisory: a slot shown
// as free is not a reservation, and the booking store re-arbitrates at
// commit time.
type Service struct {
	rules    RuleSource
	bookings repository.BookingRepository
}

func NewService(rules RuleSource, bookings repository.BookingRepository) *Service {
	return &Service{rules: rules, bookings: bookings}
}

// AvailableSlots returns the free slots for one provider, location and day,
// in chronological order: the generated slots minus any whose start time is
// held by an active booking. Slot identity is by start time, so a booking
// whose duration predates a schedule edit still blocks its own start.
//
// Days are UTC days and clock rules anchor to UTC; the caller's zone only
// matters for the instant it denotes.
func (s *Service) AvailableSlots(ctx context.Context, providerID, locationID uuid.UUID, date time.Time) ([]model.Slot, error) {
	date = date.UTC()
	rule, err := s.rules.GetRule(ctx, providerID, locationID, int(date.Weekday()))
	if err != nil {
		if apperrors.Is(err, apperrors.CodeNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get schedule rule: %w", err)
	}

	slots, err := GenerateSlots(rule, date)
	if err != nil {
		return nil, fmt.Errorf("failed to generate slots: %w", err)
	}
	if len(slots) == 0 {
		return nil, nil
	}

	booked, err := s.bookings.FindActive(ctx, providerID, locationID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings: %w", err)
	}

	taken := make(map[time.Time]bool, len(booked))
	for _, b := range booked {
		taken[b.StartsAt.UTC()] = true
	}

	free := slots[:0]
	for _, slot := range slots {
		if !taken[slot.Start.UTC()] {
			free = append(free, slot)
		}
	}
	return free, nil
}

// AvailableSlotsRange resolves availability over an inclusive span of days,
// keyed by "YYYY-MM-DD". Spans are capped to keep the request bounded.
func (s *Service) AvailableSlotsRange(ctx context.Context, providerID, locationID uuid.UUID, from, to time.Time) (map[string][]model.Slot, error) {
	const maxRangeDays = 31

	from, to = from.UTC(), to.UTC()
	if to.Before(from) {
		return nil, apperrors.BadRequest("date range is inverted", nil)
	}
	if to.Sub(from) > maxRangeDays*24*time.Hour {
		return nil, apperrors.BadRequest(fmt.Sprintf("date range exceeds %d days", maxRangeDays), nil)
	}

	result := make(map[string][]model.Slot)
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		slots, err := s.AvailableSlots(ctx, providerID, locationID, day)
		if err != nil {
			return nil, err
		}
		if len(slots) > 0 {
			result[day.Format("2006-01-02")] = slots
		}
	}
	return result, nil
}
