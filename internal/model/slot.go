package model

import "time"

// Slot is a concrete bookable interval derived from a ScheduleRule. Slots
// are never persisted: they are recomputed from the rule on every read, so
// a later schedule edit cannot corrupt historical bookings.
type Slot struct {
	Start        time.Time `json:"time"`
	DurationMins int       `json:"duration_minutes"`
}

// End returns the exclusive upper bound of the slot interval.
func (s Slot) End() time.Time {
	return s.Start.Add(time.Duration(s.DurationMins) * time.Minute)
}
