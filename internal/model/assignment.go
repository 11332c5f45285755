package model

import "github.com/google/uuid"

// ProviderCenterAssignment links a provider to a center. The home visit
// capability is stored as an assignment against HomeVisitLocationID so
// that slot generation treats it like any other location.
type ProviderCenterAssignment struct {
	Base
	ProviderID uuid.UUID `db:"provider_id" json:"provider_id"`
	LocationID uuid.UUID `db:"location_id" json:"location_id"`
	IsPrimary  bool      `db:"is_primary" json:"is_primary"`
}

type AssignProviderRequest struct {
	LocationID uuid.UUID `json:"location_id" binding:"required"`
	IsPrimary  bool      `json:"is_primary"`
}

type SetHomeVisitRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}
