package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/model"
)

// ScheduleRepository persists recurring weekly availability per
// (provider, location). Weekdays are already normalized to 0..6 by the
// schedule service before they reach this layer.
type ScheduleRepository interface {
	// GetRule returns the rule for one weekday, or a NOT_FOUND error if no
	// row exists. Absence of a rule means "not bookable that day".
	GetRule(ctx context.Context, providerID, locationID uuid.UUID, weekday int) (*model.ScheduleRule, error)
	ListRules(ctx context.Context, providerID, locationID uuid.UUID) ([]*model.ScheduleRule, error)
	// PutRules upserts the given rules wholesale, one row per weekday.
	PutRules(ctx context.Context, rules []*model.ScheduleRule) error
	// DeleteRules removes every rule for the (provider, location) pair.
	DeleteRules(ctx context.Context, providerID, locationID uuid.UUID) error
}

// StatusMeta carries the mutable annotations written alongside a status
// transition.
type StatusMeta struct {
	CancelReason *string
	CancelledAt  *time.Time
}

// BookingRepository is the single source of truth for slot conflicts. The
// mutating methods accept an optional outbox event so the lifecycle event
// is persisted in the same transaction as the booking change.
type BookingRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	// FindActive returns bookings with status in {scheduled, confirmed}
	// for the given provider, location and calendar day, ordered by start.
	FindActive(ctx context.Context, providerID, locationID uuid.UUID, day time.Time) ([]*model.Booking, error)
	List(ctx context.Context, filters *model.BookingFilters) ([]*model.Booking, error)
	// InsertIfFree atomically inserts the booking, relying on the store's
	// uniqueness guarantee over (provider, location, starts_at) restricted
	// to non-terminal statuses. A losing race returns a SLOT_CONFLICT error.
	InsertIfFree(ctx context.Context, booking *model.Booking, event *model.OutboxEvent) error
	// Move atomically shifts an active booking to a new start time under
	// the same uniqueness guarantee. On conflict nothing changes and a
	// SLOT_CONFLICT error is returned.
	Move(ctx context.Context, id uuid.UUID, newStart time.Time, event *model.OutboxEvent) error
	// UpdateStatus transitions the booking from one status to another as a
	// compare-and-swap: the update applies only while the booking still has
	// the expected current status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.BookingStatus, meta *StatusMeta, event *model.OutboxEvent) error
}

// AssignmentRepository persists provider-to-center assignments, including
// the synthetic home-visit assignment.
type AssignmentRepository interface {
	Assign(ctx context.Context, a *model.ProviderCenterAssignment) error
	Unassign(ctx context.Context, providerID, locationID uuid.UUID) error
	ListForProvider(ctx context.Context, providerID uuid.UUID) ([]*model.ProviderCenterAssignment, error)
	IsAssigned(ctx context.Context, providerID, locationID uuid.UUID) (bool, error)
}

// OutboxRepository persists lifecycle events pending relay to the broker.
type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error
}
