package auth

import (
	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Email  string
	Roles  []enums.ActorRole
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID uuid.UUID         `json:"user_id"`
	Email  string            `json:"email,omitempty"`
	Roles  []enums.ActorRole `json:"roles"`
	jwt.RegisteredClaims
}

// Actor converts verified claims into the caller identity used by services.
func (c AccessTokenClaims) Actor() Actor {
	return Actor{ID: c.UserID, Email: c.Email, Roles: append([]enums.ActorRole(nil), c.Roles...)}
}
