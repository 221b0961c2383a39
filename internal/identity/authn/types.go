package authn

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the JWT claims carried by a bearer token.
type Claims struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}
