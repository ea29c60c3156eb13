package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/matt-dz/streamhub/internal/password"
)

// Credentials verifies and changes passwords and registers new users.
type Credentials struct {
	store  Store
	hasher password.Hasher
	policy password.Policy
}

func NewCredentials(store Store, hasher password.Hasher, policy password.Policy) *Credentials {
	return &Credentials{
		store:  store,
		hasher: hasher,
		policy: policy,
	}
}

// VerifyCredentials looks identifier up as a username or email and checks
// plaintext against the stored hash.
func (c *Credentials) VerifyCredentials(ctx context.Context, identifier, plaintext string) (*User, error) {
	u, err := c.store.GetByIdentifier(ctx, strings.ToLower(strings.TrimSpace(identifier)))
	if err != nil {
		return nil, err
	}
	if !c.hasher.Compare(plaintext, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

type RegisterParams struct {
	Username string
	Email    string
	FullName string
	Password string
}

// Register creates a user. The password is checked against the policy and
// hashed here, before anything reaches the store.
func (c *Credentials) Register(ctx context.Context, params RegisterParams) (*User, error) {
	if err := c.policy.Validate(params.Password); err != nil {
		return nil, err
	}

	hash, err := c.hasher.Hash(params.Password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username:     NormalizeUsername(params.Username),
		Email:        NormalizeEmail(params.Email),
		FullName:     strings.TrimSpace(params.FullName),
		PasswordHash: hash,
	}
	if err := c.store.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return u, nil
}

// ChangePassword replaces the password of user id after checking oldPassword.
func (c *Credentials) ChangePassword(ctx context.Context, id uuid.UUID, oldPassword, newPassword string) error {
	u, err := c.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !c.hasher.Compare(oldPassword, u.PasswordHash) {
		return ErrInvalidPassword
	}
	if err := c.policy.Validate(newPassword); err != nil {
		return err
	}

	hash, err := c.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := c.store.UpdatePasswordHash(ctx, id, hash); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}
