package enums

import "fmt"

// ActorRole is the role claim carried by access tokens.
type ActorRole string

const (
	ActorRoleInvestor ActorRole = "investor"
	ActorRoleBrand    ActorRole = "brand"
	ActorRoleAdmin    ActorRole = "admin"
	// ActorRoleSystem is used by sweeps and the settlement consumer.
	ActorRoleSystem ActorRole = "system"
)

var validActorRoles = []ActorRole{
	ActorRoleInvestor,
	ActorRoleBrand,
	ActorRoleAdmin,
	ActorRoleSystem,
}

func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
