package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	"github.com/jwalitptl/booking-engine/internal/service/event"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
	"github.com/jwalitptl/booking-engine/pkg/logger"
	"github.com/jwalitptl/booking-engine/pkg/metrics"
)

// ModificationCutoff is the business rule for reschedule and cancel: the
// operation is allowed only while strictly more than this much time remains
// before the booking's own start. Exactly 24h00m is already too late.
const ModificationCutoff = 24 * time.Hour

// SlotResolver is the advisory availability view consulted before every
// commit. The booking store remains the sole arbiter of conflicts.
type SlotResolver interface {
	AvailableSlots(ctx context.Context, providerID, locationID uuid.UUID, date time.Time) ([]model.Slot, error)
}

// Service is the booking lifecycle manager: it owns the state machine
// scheduled -> {confirmed, cancelled}, confirmed -> {completed, cancelled},
// and arbitrates concurrent attempts on the same slot through the store's
// uniqueness guarantee. The service itself is stateless and safe for
// concurrent use.
type Service struct {
	repo     repository.BookingRepository
	resolver SlotResolver
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewService(repo repository.BookingRepository, resolver SlotResolver, logger *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// WithClock overrides the service clock. Tests use it to pin the 24-hour
// boundary.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create books a slot for a patient. Availability is re-resolved here, at
// commit time, not trusted from whatever the caller previously saw; the
// final arbiter is the store's atomic insert. Losing the race is a normal
// outcome under load and surfaces as SLOT_CONFLICT.
func (s *Service) Create(ctx context.Context, patientID uuid.UUID, req *model.CreateBookingRequest) (*model.Booking, error) {
	if !req.StartsAt.After(s.now()) {
		return nil, apperrors.BadRequest("booking must be in the future", nil)
	}

	slot, err := s.matchSlot(ctx, req.ProviderID, req.LocationID, req.StartsAt)
	if err != nil {
		return nil, err
	}

	booking := &model.Booking{
		Base:         model.Base{ID: uuid.New()},
		ProviderID:   req.ProviderID,
		LocationID:   req.LocationID,
		PatientID:    patientID,
		StartsAt:     slot.Start,
		DurationMins: slot.DurationMins,
		Status:       model.BookingStatusScheduled,
		FeeCents:     req.FeeCents,
		Notes:        req.Notes,
	}

	evt, err := event.NewBookingEvent(model.EventBookingCreated, booking)
	if err != nil {
		return nil, err
	}

	if err := s.repo.InsertIfFree(ctx, booking, evt); err != nil {
		if apperrors.Is(err, apperrors.CodeSlotConflict) {
			s.metrics.SlotConflicts.Inc()
			s.logger.Info("booking lost slot race",
				"provider_id", req.ProviderID.String(),
				"starts_at", req.StartsAt.Format(time.RFC3339))
		}
		return nil, err
	}

	s.metrics.BookingsCreated.Inc()
	s.logger.Info("booking created",
		"booking_id", booking.ID.String(),
		"starts_at", booking.StartsAt.Format(time.RFC3339))
	return booking, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.BookingFilters) ([]*model.Booking, error) {
	return s.repo.List(ctx, filters)
}

// Reschedule moves an active booking to a new slot. Logically a
// cancel-of-old plus create-of-new executed as one atomic unit: if the new
// slot cannot be taken, the original booking is left completely unchanged.
// The booking keeps the duration frozen at creation.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newStart time.Time) (*model.Booking, error) {
	booking, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !booking.Status.IsActive() {
		return nil, apperrors.InvalidTransition(string(booking.Status), "rescheduled")
	}
	if !s.outsideCutoff(booking) {
		s.metrics.WindowRejections.WithLabelValues("reschedule").Inc()
		return nil, apperrors.RescheduleWindowClosed()
	}
	if !newStart.After(s.now()) {
		return nil, apperrors.BadRequest("new booking time must be in the future", nil)
	}

	slot, err := s.matchSlot(ctx, booking.ProviderID, booking.LocationID, newStart)
	if err != nil {
		return nil, err
	}

	moved := *booking
	moved.StartsAt = slot.Start
	evt, err := event.NewBookingEvent(model.EventBookingRescheduled, &moved)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Move(ctx, id, slot.Start, evt); err != nil {
		if apperrors.Is(err, apperrors.CodeSlotConflict) {
			s.metrics.SlotConflicts.Inc()
		}
		return nil, err
	}

	s.metrics.BookingsRescheduled.Inc()
	s.logger.Info("booking rescheduled",
		"booking_id", id.String(),
		"starts_at", slot.Start.Format(time.RFC3339))
	return &moved, nil
}

// Cancel transitions an active booking to cancelled, subject to the same
// strict 24-hour rule evaluated against the booking's own start time. The
// freed slot becomes visible to the resolver immediately. Bookings inside
// the window stay active; no-shows are a downstream concern.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*model.Booking, error) {
	booking, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !booking.Status.CanTransitionTo(model.BookingStatusCancelled) {
		return nil, apperrors.InvalidTransition(string(booking.Status), string(model.BookingStatusCancelled))
	}
	if !s.outsideCutoff(booking) {
		s.metrics.WindowRejections.WithLabelValues("cancel").Inc()
		return nil, apperrors.CancellationWindowClosed()
	}

	now := s.now()
	from := booking.Status
	booking.Status = model.BookingStatusCancelled
	booking.CancelReason = &reason
	booking.CancelledAt = &now

	evt, err := event.NewBookingEvent(model.EventBookingCancelled, booking)
	if err != nil {
		return nil, err
	}

	meta := &repository.StatusMeta{CancelReason: &reason, CancelledAt: &now}
	if err := s.repo.UpdateStatus(ctx, id, from, model.BookingStatusCancelled, meta, evt); err != nil {
		return nil, err
	}

	s.metrics.BookingsCancelled.Inc()
	s.logger.Info("booking cancelled", "booking_id", id.String(), "reason", reason)
	return booking, nil
}

// Confirm moves a scheduled booking to confirmed (provider action).
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	return s.transition(ctx, id, model.BookingStatusConfirmed, model.EventBookingConfirmed)
}

// Complete marks the visit as done. Allowed from confirmed, or directly
// from scheduled for deployments without an explicit confirmation step.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	booking, err := s.transition(ctx, id, model.BookingStatusCompleted, model.EventBookingCompleted)
	if err != nil {
		return nil, err
	}
	s.metrics.BookingsCompleted.Inc()
	return booking, nil
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to model.BookingStatus, eventType string) (*model.Booking, error) {
	booking, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !booking.Status.CanTransitionTo(to) {
		return nil, apperrors.InvalidTransition(string(booking.Status), string(to))
	}

	from := booking.Status
	booking.Status = to
	evt, err := event.NewBookingEvent(eventType, booking)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, id, from, to, nil, evt); err != nil {
		return nil, err
	}
	return booking, nil
}

// outsideCutoff reports whether strictly more than the cutoff remains
// before the booking's start.
func (s *Service) outsideCutoff(b *model.Booking) bool {
	return b.StartsAt.Sub(s.now()) > ModificationCutoff
}

// matchSlot re-resolves availability for the requested day and picks the
// slot whose start matches exactly. The booking inherits the slot's
// duration, freezing it against later schedule edits.
//
// The requested time is reduced to the instant it names: clock rules are
// anchored to UTC, so a caller-supplied offset must not re-anchor the
// grid onto instants the resolver never advertises.
func (s *Service) matchSlot(ctx context.Context, providerID, locationID uuid.UUID, startsAt time.Time) (model.Slot, error) {
	startsAt = startsAt.UTC()
	slots, err := s.resolver.AvailableSlots(ctx, providerID, locationID, startsAt)
	if err != nil {
		return model.Slot{}, fmt.Errorf("failed to resolve availability: %w", err)
	}
	for _, slot := range slots {
		if slot.Start.Equal(startsAt) {
			return slot, nil
		}
	}
	return model.Slot{}, apperrors.SlotUnavailable(
		fmt.Sprintf("no free slot at %s", startsAt.Format(time.RFC3339)))
}
