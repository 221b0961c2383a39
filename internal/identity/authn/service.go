package authn

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stratusbase/stratus/internal/identity/config"
	"github.com/stratusbase/stratus/internal/storage/types"
	"github.com/stratusbase/stratus/pkg/model"
)

var (
	// ErrAuthorizationMissing is returned when no credential is presented.
	ErrAuthorizationMissing = errors.New("authorization missing")
	// ErrInvalidToken is returned for a malformed scheme or a malformed,
	// unknown or expired token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnauthorizedUser is returned when the token is well formed but the
	// resolved principal is unknown or disabled.
	ErrUnauthorizedUser = errors.New("unauthorized user")
)

// Gate authenticates a request's bearer credential and resolves the
// principal behind it. It performs no business-logic side effects and is
// invoked before every operation. The three failure kinds stay distinct
// all the way to the response.
type Gate interface {
	Authenticate(ctx context.Context, authorizationHeader string) (*types.Principal, error)
}

type gate struct {
	tokens     *TokenService
	principals types.PrincipalStore
}

// NewGate builds the authentication gate from the deployment key and the
// principal store.
func NewGate(cfg config.Config, principals types.PrincipalStore) (Gate, error) {
	tokens, err := NewTokenService(cfg)
	if err != nil {
		return nil, err
	}
	return NewGateWithTokens(tokens, principals), nil
}

// NewGateWithTokens wires a gate around an existing token service.
func NewGateWithTokens(tokens *TokenService, principals types.PrincipalStore) Gate {
	return &gate{tokens: tokens, principals: principals}
}

func (g *gate) Authenticate(ctx context.Context, authorizationHeader string) (*types.Principal, error) {
	if authorizationHeader == "" {
		return nil, ErrAuthorizationMissing
	}

	parts := strings.Split(authorizationHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, ErrInvalidToken
	}

	claims, err := g.tokens.ValidateToken(parts[1])
	if err != nil {
		return nil, ErrInvalidToken
	}

	principal, err := g.principals.Get(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrUnauthorizedUser
		}
		return nil, fmt.Errorf("failed to resolve principal: %w", err)
	}
	if principal.Disabled {
		return nil, ErrUnauthorizedUser
	}

	return principal, nil
}
