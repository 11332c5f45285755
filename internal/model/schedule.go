package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// HomeVisitLocationID is the reserved location key for a provider's home
// visit schedule. It behaves like any other center: it carries its own
// ScheduleRule set and its own bookings.
var HomeVisitLocationID = uuid.MustParse("00000000-0000-0000-0000-00000000f00d")

// ScheduleRule is one row of a provider's recurring weekly availability,
// scoped to a single location. At most one rule exists per
// (provider, location, weekday).
type ScheduleRule struct {
	Base
	ProviderID       uuid.UUID `db:"provider_id" json:"provider_id"`
	LocationID       uuid.UUID `db:"location_id" json:"location_id"`
	Weekday          int       `db:"weekday" json:"weekday"` // 0=Sunday .. 6=Saturday
	IsAvailable      bool      `db:"is_available" json:"is_available"`
	StartTime        string    `db:"start_time" json:"start_time"` // "HH:MM" local clock
	EndTime          string    `db:"end_time" json:"end_time"`
	SlotDurationMins int       `db:"slot_duration_mins" json:"slot_duration_mins"`
	BreakStart       *string   `db:"break_start" json:"break_start,omitempty"`
	BreakEnd         *string   `db:"break_end" json:"break_end,omitempty"`
	Notes            string    `db:"notes" json:"notes,omitempty"`
}

// HasBreak reports whether the rule carries a non-empty break window.
// An equal start and end means "no break".
func (r *ScheduleRule) HasBreak() bool {
	return r.BreakStart != nil && r.BreakEnd != nil && *r.BreakStart != *r.BreakEnd
}

// ScheduleRuleInput is the wholesale per-day write format accepted by the
// schedule endpoints. IsAvailable is required to be explicit: the store
// never infers availability from slot presence.
type ScheduleRuleInput struct {
	Weekday          int     `json:"weekday" binding:"min=0,max=7"`
	IsAvailable      *bool   `json:"is_available" binding:"required"`
	StartTime        string  `json:"start_time" binding:"omitempty,clock"`
	EndTime          string  `json:"end_time" binding:"omitempty,clock"`
	SlotDurationMins int     `json:"slot_duration_mins"`
	BreakStart       *string `json:"break_start" binding:"omitempty,clock"`
	BreakEnd         *string `json:"break_end" binding:"omitempty,clock"`
	Notes            string  `json:"notes"`
}

// PutScheduleRequest replaces the rules for the listed weekdays wholesale.
type PutScheduleRequest struct {
	Rules []ScheduleRuleInput `json:"rules" binding:"required,min=1,dive"`
}

// NormalizeWeekday canonicalizes day-of-week indices to 0=Sunday..6=Saturday.
// A legacy 1..7 encoding maps 7 to Sunday; anything else is out of range.
// Normalization happens once, at the schedule store boundary.
func NormalizeWeekday(d int) (int, error) {
	switch {
	case d >= 0 && d <= 6:
		return d, nil
	case d == 7:
		return 0, nil
	default:
		return 0, fmt.Errorf("weekday %d out of range", d)
	}
}

// ParseClockTime parses an "HH:MM" local clock time into minutes since
// midnight.
func ParseClockTime(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
