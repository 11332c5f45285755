package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
)

const bookingColumns = `
	id, provider_id, location_id, patient_id, starts_at, duration_mins,
	status, fee_cents, notes, cancel_reason, cancelled_at,
	created_at, updated_at
`

func (r *bookingRepository) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	var booking model.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, storeErr(err, "booking")
	}
	return &booking, nil
}

func (r *bookingRepository) FindActive(ctx context.Context, providerID, locationID uuid.UUID, day time.Time) ([]*model.Booking, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE provider_id = $1
		AND location_id = $2
		AND starts_at >= $3 AND starts_at < $4
		AND status IN ('scheduled', 'confirmed')
		ORDER BY starts_at ASC
	`
	var bookings []*model.Booking
	err := r.db.SelectContext(ctx, &bookings, query, providerID, locationID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, storeErr(err, "bookings")
	}
	return bookings, nil
}

func (r *bookingRepository) List(ctx context.Context, filters *model.BookingFilters) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters.ProviderID != uuid.Nil {
		query += fmt.Sprintf(" AND provider_id = $%d", argCount)
		args = append(args, filters.ProviderID)
		argCount++
	}
	if filters.LocationID != uuid.Nil {
		query += fmt.Sprintf(" AND location_id = $%d", argCount)
		args = append(args, filters.LocationID)
		argCount++
	}
	if filters.PatientID != uuid.Nil {
		query += fmt.Sprintf(" AND patient_id = $%d", argCount)
		args = append(args, filters.PatientID)
		argCount++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}
	if !filters.From.IsZero() {
		query += fmt.Sprintf(" AND starts_at >= $%d", argCount)
		args = append(args, filters.From)
		argCount++
	}
	if !filters.To.IsZero() {
		query += fmt.Sprintf(" AND starts_at < $%d", argCount)
		args = append(args, filters.To)
		argCount++
	}

	query += " ORDER BY starts_at ASC"

	var bookings []*model.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, storeErr(err, "bookings")
	}
	return bookings, nil
}

// InsertIfFree relies on the partial unique index over
// (provider_id, location_id, starts_at) WHERE status IN ('scheduled',
// 'confirmed'): under two concurrent inserts for the same slot exactly one
// commit wins and the loser surfaces as SLOT_CONFLICT.
func (r *bookingRepository) InsertIfFree(ctx context.Context, booking *model.Booking, event *model.OutboxEvent) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			booking.ID,
			booking.ProviderID,
			booking.LocationID,
			booking.PatientID,
			booking.StartsAt,
			booking.DurationMins,
			booking.Status,
			booking.FeeCents,
			booking.Notes,
			booking.CancelReason,
			booking.CancelledAt,
			booking.CreatedAt,
			booking.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperrors.SlotConflict(err)
			}
			return storeErr(err, "booking")
		}
		return insertOutboxTx(ctx, tx, event)
	})
}

// Move shifts an active booking to a new start time. The same unique index
// guards the target slot, so a conflicting move rolls back with the
// original row untouched.
func (r *bookingRepository) Move(ctx context.Context, id uuid.UUID, newStart time.Time, event *model.OutboxEvent) error {
	query := `
		UPDATE bookings
		SET starts_at = $1, updated_at = $2
		WHERE id = $3
		AND status IN ('scheduled', 'confirmed')
	`
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, query, newStart, time.Now(), id)
		if err != nil {
			if isUniqueViolation(err) {
				return apperrors.SlotConflict(err)
			}
			return storeErr(err, "booking")
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return apperrors.StoreUnavailable(err)
		}
		if rows == 0 {
			return apperrors.NotFound("active booking", nil)
		}
		return insertOutboxTx(ctx, tx, event)
	})
}

// UpdateStatus is a compare-and-swap on the status column: the row moves
// from exactly `from` to `to` or not at all.
func (r *bookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.BookingStatus, meta *repository.StatusMeta, event *model.OutboxEvent) error {
	query := `
		UPDATE bookings
		SET status = $1, cancel_reason = $2, cancelled_at = $3, updated_at = $4
		WHERE id = $5 AND status = $6
	`
	var reason *string
	var cancelledAt *time.Time
	if meta != nil {
		reason = meta.CancelReason
		cancelledAt = meta.CancelledAt
	}

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, query, to, reason, cancelledAt, time.Now(), id, from)
		if err != nil {
			return storeErr(err, "booking")
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return apperrors.StoreUnavailable(err)
		}
		if rows == 0 {
			// The booking changed status underneath us.
			return apperrors.InvalidTransition(string(from), string(to))
		}
		return insertOutboxTx(ctx, tx, event)
	})
}

func insertOutboxTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error {
	if event == nil {
		return nil
	}
	query := `
		INSERT INTO outbox_events (
			id, event_type, payload, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	now := time.Now()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.Status = model.OutboxStatusPending
	event.CreatedAt = now
	event.UpdatedAt = now

	if _, err := tx.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.Payload,
		event.Status,
		event.CreatedAt,
		event.UpdatedAt,
	); err != nil {
		return storeErr(err, "outbox event")
	}
	return nil
}
