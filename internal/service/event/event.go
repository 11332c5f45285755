package event

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/model"
)

// NewBookingEvent builds the outbox row for a booking lifecycle event. The
// caller persists it in the same transaction as the booking mutation; the
// worker relays it to the broker fire-and-forget.
func NewBookingEvent(eventType string, booking *model.Booking) (*model.OutboxEvent, error) {
	payload, err := json.Marshal(booking)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal booking payload: %w", err)
	}
	return &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   payload,
	}, nil
}
