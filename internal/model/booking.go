package model

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusScheduled BookingStatus = "scheduled"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are legal.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// IsActive reports whether the booking still occupies its slot.
func (s BookingStatus) IsActive() bool {
	return s == BookingStatusScheduled || s == BookingStatusConfirmed
}

// CanTransitionTo encodes the lifecycle state machine:
// scheduled -> {confirmed, completed, cancelled},
// confirmed -> {completed, cancelled}; terminal states allow nothing.
// Completing directly from scheduled supports deployments without an
// explicit confirmation step.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingStatusScheduled:
		return next == BookingStatusConfirmed || next == BookingStatusCompleted || next == BookingStatusCancelled
	case BookingStatusConfirmed:
		return next == BookingStatusCompleted || next == BookingStatusCancelled
	default:
		return false
	}
}

// Booking represents a clinical appointment or a lab/imaging booking.
// ProviderID is uuid.Nil for center-only lab bookings. DurationMins is
// frozen at creation time and never re-derived from the rule.
type Booking struct {
	Base
	ProviderID   uuid.UUID     `db:"provider_id" json:"provider_id"`
	LocationID   uuid.UUID     `db:"location_id" json:"location_id"`
	PatientID    uuid.UUID     `db:"patient_id" json:"patient_id"`
	StartsAt     time.Time     `db:"starts_at" json:"starts_at"`
	DurationMins int           `db:"duration_mins" json:"duration_mins"`
	Status       BookingStatus `db:"status" json:"status"`
	FeeCents     int64         `db:"fee_cents" json:"fee_cents"`
	Notes        string        `db:"notes" json:"notes,omitempty"`
	CancelReason *string       `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CancelledAt  *time.Time    `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// EndsAt returns the exclusive upper bound of the booked interval.
func (b *Booking) EndsAt() time.Time {
	return b.StartsAt.Add(time.Duration(b.DurationMins) * time.Minute)
}

// CreateBookingRequest is the booking submission. PatientID is honored only
// for center/admin callers; patients always book for themselves.
type CreateBookingRequest struct {
	ProviderID uuid.UUID `json:"provider_id"`
	PatientID  uuid.UUID `json:"patient_id"`
	LocationID uuid.UUID `json:"location_id" binding:"required"`
	StartsAt   time.Time `json:"starts_at" binding:"required"`
	FeeCents   int64     `json:"fee_cents" binding:"min=0"`
	Notes      string    `json:"notes" binding:"max=1000"`
}

type RescheduleBookingRequest struct {
	StartsAt time.Time `json:"starts_at" binding:"required"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

type BookingFilters struct {
	ProviderID uuid.UUID
	LocationID uuid.UUID
	PatientID  uuid.UUID
	Status     BookingStatus
	From       time.Time
	To         time.Time
}
