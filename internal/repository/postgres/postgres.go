package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/booking-engine/internal/repository"
)

type scheduleRepository struct {
	BaseRepository
}

type bookingRepository struct {
	BaseRepository
}

type assignmentRepository struct {
	BaseRepository
}

type outboxRepository struct {
	BaseRepository
}

func NewScheduleRepository(db *sqlx.DB) repository.ScheduleRepository {
	return &scheduleRepository{NewBaseRepository(db)}
}

func NewBookingRepository(db *sqlx.DB) repository.BookingRepository {
	return &bookingRepository{NewBaseRepository(db)}
}

func NewAssignmentRepository(db *sqlx.DB) repository.AssignmentRepository {
	return &assignmentRepository{NewBaseRepository(db)}
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{NewBaseRepository(db)}
}
