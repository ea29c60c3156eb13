package user

//go:generate mockgen -source=store.go -destination=mock_store.go -package=user

import (
	"context"

	"github.com/google/uuid"
)

// Store persists identity records. Implementations must return ErrNotFound
// for missing rows and ErrConflict for duplicate usernames or emails, and
// must store values exactly as given: hashing and normalization are the
// caller's job.
type Store interface {
	// Create inserts u and fills in ID, CreatedAt and UpdatedAt.
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	// GetProfile loads a user without the password hash and refresh token.
	GetProfile(ctx context.Context, id uuid.UUID) (*User, error)
	// GetByIdentifier matches identifier against username or email.
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}
