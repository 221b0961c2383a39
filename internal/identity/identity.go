// Package identity exposes the authentication gate that authorizes every
// rules API operation.
package identity

import (
	"github.com/stratusbase/stratus/internal/identity/authn"
	"github.com/stratusbase/stratus/internal/identity/config"
	"github.com/stratusbase/stratus/internal/storage/types"
)

// Aliases so consumers depend on the identity package, not its internals.
type (
	Gate         = authn.Gate
	Claims       = authn.Claims
	TokenService = authn.TokenService
	Config       = config.Config
)

var (
	ErrAuthorizationMissing = authn.ErrAuthorizationMissing
	ErrInvalidToken         = authn.ErrInvalidToken
	ErrUnauthorizedUser     = authn.ErrUnauthorizedUser
)

// NewGate builds the authentication gate.
func NewGate(cfg Config, principals types.PrincipalStore) (Gate, error) {
	return authn.NewGate(cfg, principals)
}

// NewTokenService builds the token verifier behind the gate.
func NewTokenService(cfg Config) (*TokenService, error) {
	return authn.NewTokenService(cfg)
}
