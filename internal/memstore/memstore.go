// Package memstore keeps users and refresh tokens in process memory. It
// satisfies the same contracts as the PostgreSQL store and is meant for
// tests and local development.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matt-dz/streamhub/internal/user"
)

type Store struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User
	now   func() time.Time
}

func New() *Store {
	return &Store{
		users: make(map[uuid.UUID]*user.User),
		now:   time.Now,
	}
}

func clone(u *user.User) *user.User {
	c := *u
	if u.RefreshToken != nil {
		token := *u.RefreshToken
		c.RefreshToken = &token
	}
	return &c
}

func (s *Store) Create(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return user.ErrConflict
		}
	}

	now := s.now().UTC()
	u.ID = uuid.New()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = clone(u)
	return nil
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return clone(u), nil
}

func (s *Store) GetProfile(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = ""
	u.RefreshToken = nil
	return u, nil
}

func (s *Store) GetByIdentifier(_ context.Context, identifier string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == identifier || u.Email == identifier {
			return clone(u), nil
		}
	}
	return nil, user.ErrNotFound
}

func (s *Store) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = s.now().UTC()
	return nil
}

func (s *Store) SetRefreshToken(_ context.Context, userID uuid.UUID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	u.RefreshToken = &token
	u.UpdatedAt = s.now().UTC()
	return nil
}

func (s *Store) SwapRefreshToken(_ context.Context, userID uuid.UUID, prev, next string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok || u.RefreshToken == nil || *u.RefreshToken != prev {
		return false, nil
	}
	u.RefreshToken = &next
	u.UpdatedAt = s.now().UTC()
	return true, nil
}

func (s *Store) ClearRefreshToken(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	u.RefreshToken = nil
	u.UpdatedAt = s.now().UTC()
	return nil
}
