package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents the JWT claims carried by every authenticated call.
// The lifecycle engine only needs UserID and Role to resolve the acting party.
type JWTClaims struct {
	UserID   string     `json:"user_id"`
	Email    string     `json:"email"`
	Username string     `json:"username"`
	Role     UserRole   `json:"role"`
	Status   UserStatus `json:"status"`

	jwt.RegisteredClaims
}

// ActorRole maps the account role onto the lifecycle actor role.
func (c *JWTClaims) ActorRole() ActorRole {
	if c.Role == UserRoleTechnician {
		return ActorTechnician
	}
	return ActorCustomer
}

// LoginResponse is returned on a successful login.
type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
