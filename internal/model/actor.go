package model

import "github.com/google/uuid"

// Role of the acting principal, supplied by the identity provider.
type Role string

const (
	RoleClient Role = "CLIENT"
	RoleMaster Role = "MASTER"
	RoleAdmin  Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleMaster, RoleAdmin:
		return true
	}
	return false
}

// Actor identifies who is performing a request. Every call into the
// workflow engine carries one; the engine trusts it as authenticated.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

func (a Actor) IsAdmin() bool  { return a.Role == RoleAdmin }
func (a Actor) IsMaster() bool { return a.Role == RoleMaster }
func (a Actor) IsClient() bool { return a.Role == RoleClient }
