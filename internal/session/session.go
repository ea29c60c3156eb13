// Package session issues, rotates and revokes access/refresh token pairs.
//
// Each user has at most one current refresh token. Rotation replaces it with
// a compare-and-swap on the presented value, so a superseded token (or one
// racing a concurrent rotation) is rejected with ErrRefreshMismatch.
package session

//go:generate mockgen -source=session.go -destination=mock_refresh_store.go -package=session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/matt-dz/streamhub/internal/jwt"
	"github.com/matt-dz/streamhub/internal/user"
)

var ErrRefreshMismatch = errors.New("refresh token does not match the current session")

// RefreshStore persists the current refresh token of each user.
type RefreshStore interface {
	// SetRefreshToken unconditionally replaces the current token.
	SetRefreshToken(ctx context.Context, userID uuid.UUID, token string) error
	// SwapRefreshToken replaces the current token with next only if it
	// equals prev, atomically. It reports whether the swap happened.
	SwapRefreshToken(ctx context.Context, userID uuid.UUID, prev, next string) (bool, error)
	// ClearRefreshToken removes the current token, if any.
	ClearRefreshToken(ctx context.Context, userID uuid.UUID) error
}

// Pair is what a client receives on login and refresh.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type Coordinator struct {
	users   user.Store
	refresh RefreshStore
	tokens  *jwt.Service
}

func NewCoordinator(users user.Store, refresh RefreshStore, tokens *jwt.Service) *Coordinator {
	return &Coordinator{
		users:   users,
		refresh: refresh,
		tokens:  tokens,
	}
}

func (c *Coordinator) issuePair(u *user.User) (Pair, error) {
	access, err := c.tokens.IssueAccessToken(u)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := c.tokens.IssueRefreshToken(u)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// IssueSession mints a pair for u and makes its refresh token the current
// one, superseding any previous session.
func (c *Coordinator) IssueSession(ctx context.Context, u *user.User) (Pair, error) {
	pair, err := c.issuePair(u)
	if err != nil {
		return Pair{}, err
	}
	if err := c.refresh.SetRefreshToken(ctx, u.ID, pair.RefreshToken); err != nil {
		return Pair{}, fmt.Errorf("storing refresh token: %w", err)
	}
	return pair, nil
}

// Rotate exchanges a valid, current refresh token for a new pair. It
// returns the user the pair was issued for.
func (c *Coordinator) Rotate(ctx context.Context, presented string) (Pair, *user.User, error) {
	claims, err := c.tokens.VerifyRefresh(presented)
	if err != nil {
		return Pair{}, nil, err
	}
	id, err := claims.UserID()
	if err != nil {
		return Pair{}, nil, err
	}

	u, err := c.users.GetByID(ctx, id)
	if err != nil {
		return Pair{}, nil, err
	}

	pair, err := c.issuePair(u)
	if err != nil {
		return Pair{}, nil, err
	}

	swapped, err := c.refresh.SwapRefreshToken(ctx, u.ID, presented, pair.RefreshToken)
	if err != nil {
		return Pair{}, nil, fmt.Errorf("rotating refresh token: %w", err)
	}
	if !swapped {
		return Pair{}, nil, ErrRefreshMismatch
	}
	return pair, u, nil
}

// Revoke ends the session of userID. Every refresh token issued so far stops
// working.
func (c *Coordinator) Revoke(ctx context.Context, userID uuid.UUID) error {
	if err := c.refresh.ClearRefreshToken(ctx, userID); err != nil {
		return fmt.Errorf("clearing refresh token: %w", err)
	}
	return nil
}
