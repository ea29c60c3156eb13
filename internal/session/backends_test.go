package session

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/matt-dz/streamhub/internal/memstore"
	"github.com/matt-dz/streamhub/internal/redisstore"
	"github.com/matt-dz/streamhub/internal/user"
)

func TestLifecycleAcrossRefreshStores(t *testing.T) {
	backends := []struct {
		name    string
		refresh func(t *testing.T, users *memstore.Store) RefreshStore
	}{
		{
			name:    "memory",
			refresh: func(_ *testing.T, users *memstore.Store) RefreshStore { return users },
		},
		{
			name: "redis",
			refresh: func(t *testing.T, _ *memstore.Store) RefreshStore {
				mr := miniredis.RunT(t)
				client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				t.Cleanup(func() { _ = client.Close() })
				return redisstore.New(client, "test", newTokens(t).RefreshExpiry())
			},
		},
	}

	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			users := memstore.New()
			alice := &user.User{Username: "alice", Email: "alice@example.com", FullName: "Alice", PasswordHash: "hash"}
			if err := users.Create(ctx, alice); err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			c := NewCoordinator(users, b.refresh(t, users), newTokens(t))

			first, err := c.IssueSession(ctx, alice)
			if err != nil {
				t.Fatalf("IssueSession() error = %v", err)
			}
			second, _, err := c.Rotate(ctx, first.RefreshToken)
			if err != nil {
				t.Fatalf("Rotate() error = %v", err)
			}
			if _, _, err := c.Rotate(ctx, first.RefreshToken); !errors.Is(err, ErrRefreshMismatch) {
				t.Fatalf("replay: expected ErrRefreshMismatch, got %v", err)
			}

			if err := c.Revoke(ctx, alice.ID); err != nil {
				t.Fatalf("Revoke() error = %v", err)
			}
			if _, _, err := c.Rotate(ctx, second.RefreshToken); !errors.Is(err, ErrRefreshMismatch) {
				t.Fatalf("after revoke: expected ErrRefreshMismatch, got %v", err)
			}
		})
	}
}
