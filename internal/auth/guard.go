// Package auth authenticates requests carrying an access token.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/matt-dz/streamhub/internal/jwt"
	"github.com/matt-dz/streamhub/internal/user"
)

var (
	ErrUnauthenticated    = errors.New("no access token presented")
	ErrInvalidAccessToken = errors.New("invalid access token")
)

type Guard struct {
	users  user.Store
	tokens *jwt.Service
}

func NewGuard(users user.Store, tokens *jwt.Service) *Guard {
	return &Guard{users: users, tokens: tokens}
}

// Authenticate resolves rawToken to the user it was issued for. The returned
// user never carries a password hash or refresh token.
//
// A missing token yields ErrUnauthenticated. A token that fails verification
// or names an unknown user yields ErrInvalidAccessToken. Any other error comes
// from the user store.
func (g *Guard) Authenticate(ctx context.Context, rawToken string) (*user.User, error) {
	if rawToken == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := g.tokens.VerifyAccess(rawToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAccessToken, err)
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAccessToken, err)
	}

	u, err := g.users.GetProfile(ctx, id)
	if errors.Is(err, user.ErrNotFound) {
		return nil, fmt.Errorf("%w: user no longer exists", ErrInvalidAccessToken)
	} else if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return u, nil
}
