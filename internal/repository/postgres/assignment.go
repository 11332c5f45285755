package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/model"
)

func (r *assignmentRepository) Assign(ctx context.Context, a *model.ProviderCenterAssignment) error {
	query := `
		INSERT INTO provider_center_assignments (
			id, provider_id, location_id, is_primary, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider_id, location_id) DO UPDATE SET
			is_primary = EXCLUDED.is_primary,
			updated_at = EXCLUDED.updated_at
	`
	now := time.Now()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = now
	a.UpdatedAt = now

	if _, err := r.db.ExecContext(ctx, query,
		a.ID, a.ProviderID, a.LocationID, a.IsPrimary, a.CreatedAt, a.UpdatedAt,
	); err != nil {
		return storeErr(err, "assignment")
	}
	return nil
}

func (r *assignmentRepository) Unassign(ctx context.Context, providerID, locationID uuid.UUID) error {
	query := `
		DELETE FROM provider_center_assignments
		WHERE provider_id = $1 AND location_id = $2
	`
	if _, err := r.db.ExecContext(ctx, query, providerID, locationID); err != nil {
		return storeErr(err, "assignment")
	}
	return nil
}

func (r *assignmentRepository) ListForProvider(ctx context.Context, providerID uuid.UUID) ([]*model.ProviderCenterAssignment, error) {
	query := `
		SELECT id, provider_id, location_id, is_primary, created_at, updated_at
		FROM provider_center_assignments
		WHERE provider_id = $1
		ORDER BY is_primary DESC, created_at ASC
	`
	var assignments []*model.ProviderCenterAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, providerID); err != nil {
		return nil, storeErr(err, "assignments")
	}
	return assignments, nil
}

func (r *assignmentRepository) IsAssigned(ctx context.Context, providerID, locationID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM provider_center_assignments
			WHERE provider_id = $1 AND location_id = $2
		)
	`
	var assigned bool
	if err := r.db.GetContext(ctx, &assigned, query, providerID, locationID); err != nil {
		return false, storeErr(err, "assignment")
	}
	return assigned, nil
}
