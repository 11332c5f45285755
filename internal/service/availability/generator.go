package availability

import (
	"fmt"
	"time"

	"github.com/jwalitptl/booking-engine/internal/model"
)

// GenerateSlots expands a recurring rule into the concrete bookable slots
// for one calendar day. It is a pure function: no I/O, deterministic output,
// chronologically sorted. A nil or unavailable rule yields no slots, which
// is not an error.
//
// Slots step from start_time by slot_duration; a slot is emitted only when
// it fits entirely before end_time, and any slot overlapping the break
// window is skipped whole, never shortened.
func GenerateSlots(rule *model.ScheduleRule, date time.Time) ([]model.Slot, error) {
	if rule == nil || !rule.IsAvailable {
		return nil, nil
	}
	if rule.SlotDurationMins <= 0 {
		return nil, fmt.Errorf("slot duration %d must be positive", rule.SlotDurationMins)
	}

	startMins, err := model.ParseClockTime(rule.StartTime)
	if err != nil {
		return nil, fmt.Errorf("rule start: %w", err)
	}
	endMins, err := model.ParseClockTime(rule.EndTime)
	if err != nil {
		return nil, fmt.Errorf("rule end: %w", err)
	}

	breakStart, breakEnd := -1, -1
	if rule.HasBreak() {
		if breakStart, err = model.ParseClockTime(*rule.BreakStart); err != nil {
			return nil, fmt.Errorf("rule break start: %w", err)
		}
		if breakEnd, err = model.ParseClockTime(*rule.BreakEnd); err != nil {
			return nil, fmt.Errorf("rule break end: %w", err)
		}
	}

	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	duration := rule.SlotDurationMins

	var slots []model.Slot
	for cur := startMins; cur+duration <= endMins; cur += duration {
		if breakStart >= 0 && cur < breakEnd && cur+duration > breakStart {
			continue
		}
		slots = append(slots, model.Slot{
			Start:        midnight.Add(time.Duration(cur) * time.Minute),
			DurationMins: duration,
		})
	}
	return slots, nil
}
