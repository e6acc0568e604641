package auth

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
)

// Actor is the authenticated caller threaded explicitly into mutations.
type Actor struct {
	ID    uuid.UUID
	Email string
	Roles []enums.ActorRole
}

// systemActorNamespace derives stable ids for background actors.
var systemActorNamespace = uuid.MustParse("6f2b3c1e-8d4a-4f0e-9b7c-1a2d3e4f5a6b")

// SystemActor returns the identity used by sweeps and consumers.
func SystemActor(name string) Actor {
	return Actor{
		ID:    uuid.NewSHA1(systemActorNamespace, []byte(name)),
		Email: name + "@system",
		Roles: []enums.ActorRole{enums.ActorRoleSystem},
	}
}

// HasRole reports whether the actor carries role.
func (a Actor) HasRole(role enums.ActorRole) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the actor may bypass ownership checks.
func (a Actor) IsAdmin() bool {
	return a.HasRole(enums.ActorRoleAdmin)
}

// IsSystem reports whether the actor is a background process.
func (a Actor) IsSystem() bool {
	return a.HasRole(enums.ActorRoleSystem)
}

// IsZero reports whether no identity is present.
func (a Actor) IsZero() bool {
	return a.ID == uuid.Nil
}

// PrimaryRole returns the first role for logging and event attribution.
func (a Actor) PrimaryRole() string {
	if len(a.Roles) == 0 {
		return ""
	}
	return string(a.Roles[0])
}

// CanActFor reports whether the actor owns ownerID's resources or is an admin.
func (a Actor) CanActFor(ownerID uuid.UUID) bool {
	if a.IsZero() {
		return false
	}
	return a.IsAdmin() || a.ID == ownerID
}
