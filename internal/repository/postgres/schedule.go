package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/booking-engine/internal/model"
)

func (r *scheduleRepository) GetRule(ctx context.Context, providerID, locationID uuid.UUID, weekday int) (*model.ScheduleRule, error) {
	query := `
		SELECT id, provider_id, location_id, weekday, is_available,
			   start_time, end_time, slot_duration_mins,
			   break_start, break_end, notes, created_at, updated_at
		FROM schedule_rules
		WHERE provider_id = $1 AND location_id = $2 AND weekday = $3
	`
	var rule model.ScheduleRule
	if err := r.db.GetContext(ctx, &rule, query, providerID, locationID, weekday); err != nil {
		return nil, storeErr(err, "schedule rule")
	}
	return &rule, nil
}

func (r *scheduleRepository) ListRules(ctx context.Context, providerID, locationID uuid.UUID) ([]*model.ScheduleRule, error) {
	query := `
		SELECT id, provider_id, location_id, weekday, is_available,
			   start_time, end_time, slot_duration_mins,
			   break_start, break_end, notes, created_at, updated_at
		FROM schedule_rules
		WHERE provider_id = $1 AND location_id = $2
		ORDER BY weekday ASC
	`
	var rules []*model.ScheduleRule
	if err := r.db.SelectContext(ctx, &rules, query, providerID, locationID); err != nil {
		return nil, storeErr(err, "schedule rules")
	}
	return rules, nil
}

func (r *scheduleRepository) PutRules(ctx context.Context, rules []*model.ScheduleRule) error {
	query := `
		INSERT INTO schedule_rules (
			id, provider_id, location_id, weekday, is_available,
			start_time, end_time, slot_duration_mins,
			break_start, break_end, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (provider_id, location_id, weekday) DO UPDATE SET
			is_available = EXCLUDED.is_available,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			slot_duration_mins = EXCLUDED.slot_duration_mins,
			break_start = EXCLUDED.break_start,
			break_end = EXCLUDED.break_end,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
	`
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		now := time.Now()
		for _, rule := range rules {
			if rule.ID == uuid.Nil {
				rule.ID = uuid.New()
			}
			rule.CreatedAt = now
			rule.UpdatedAt = now
			if _, err := tx.ExecContext(ctx, query,
				rule.ID,
				rule.ProviderID,
				rule.LocationID,
				rule.Weekday,
				rule.IsAvailable,
				rule.StartTime,
				rule.EndTime,
				rule.SlotDurationMins,
				rule.BreakStart,
				rule.BreakEnd,
				rule.Notes,
				rule.CreatedAt,
				rule.UpdatedAt,
			); err != nil {
				return storeErr(err, "schedule rule")
			}
		}
		return nil
	})
}

func (r *scheduleRepository) DeleteRules(ctx context.Context, providerID, locationID uuid.UUID) error {
	query := `
		DELETE FROM schedule_rules
		WHERE provider_id = $1 AND location_id = $2
	`
	if _, err := r.db.ExecContext(ctx, query, providerID, locationID); err != nil {
		return storeErr(err, "schedule rules")
	}
	return nil
}
