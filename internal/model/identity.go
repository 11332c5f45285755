package model

import "github.com/google/uuid"

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleCenter  Role = "center"
	RoleAdmin   Role = "admin"
)

// Actor is the identity attached to every request by the identity
// middleware. The engine trusts it as issued; credential validation is the
// identity provider's concern.
type Actor struct {
	UserID uuid.UUID `json:"user_id"`
	Role   Role      `json:"role"`
}

// CanManageSchedules reports whether the actor may edit provider schedules.
func (a Actor) CanManageSchedules() bool {
	return a.Role == RoleDoctor || a.Role == RoleCenter || a.Role == RoleAdmin
}
