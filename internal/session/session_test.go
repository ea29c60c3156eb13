package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/mock/gomock"

	"github.com/matt-dz/streamhub/internal/jwt"
	"github.com/matt-dz/streamhub/internal/memstore"
	"github.com/matt-dz/streamhub/internal/user"
)

func newTokens(t *testing.T) *jwt.Service {
	t.Helper()
	tokens, err := jwt.NewService(jwt.Config{
		AccessSecret:  []byte("access-secret-32-bytes-long-1234567"),
		RefreshSecret: []byte("refresh-secret-32-bytes-long-123456"),
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("jwt.NewService() error = %v", err)
	}
	return tokens
}

func newCoordinator(t *testing.T) (*Coordinator, *memstore.Store, *jwt.Service, *user.User) {
	t.Helper()
	store := memstore.New()
	tokens := newTokens(t)
	alice := &user.User{Username: "alice", Email: "alice@example.com", FullName: "Alice", PasswordHash: "hash"}
	if err := store.Create(context.Background(), alice); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return NewCoordinator(store, store, tokens), store, tokens, alice
}

func currentToken(t *testing.T, store *memstore.Store, id uuid.UUID) string {
	t.Helper()
	u, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if u.RefreshToken == nil {
		return ""
	}
	return *u.RefreshToken
}

func TestIssueSession(t *testing.T) {
	c, store, tokens, alice := newCoordinator(t)

	pair, err := c.IssueSession(context.Background(), alice)
	if err != nil {
		t.Fatalf("IssueSession() error = %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" || pair.AccessToken == pair.RefreshToken {
		t.Fatalf("expected distinct non-empty tokens, got %+v", pair)
	}
	if got := currentToken(t, store, alice.ID); got != pair.RefreshToken {
		t.Errorf("stored refresh token %q, want %q", got, pair.RefreshToken)
	}
	if _, err := tokens.VerifyAccess(pair.AccessToken); err != nil {
		t.Errorf("access token does not verify: %v", err)
	}
}

func TestRotateOnceThenMismatch(t *testing.T) {
	c, store, _, alice := newCoordinator(t)
	ctx := context.Background()

	first, err := c.IssueSession(ctx, alice)
	if err != nil {
		t.Fatalf("IssueSession() error = %v", err)
	}

	second, u, err := c.Rotate(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("Rotate() error = %v", err)
	}
	if u.ID != alice.ID {
		t.Errorf("rotated for %s, want %s", u.ID, alice.ID)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("rotation must issue a new refresh token")
	}
	if got := currentToken(t, store, alice.ID); got != second.RefreshToken {
		t.Errorf("stored refresh token %q, want %q", got, second.RefreshToken)
	}

	if _, _, err := c.Rotate(ctx, first.RefreshToken); !errors.Is(err, ErrRefreshMismatch) {
		t.Fatalf("reusing a superseded token: expected ErrRefreshMismatch, got %v", err)
	}

	// The legitimate holder of the newest token is unaffected.
	if _, _, err := c.Rotate(ctx, second.RefreshToken); err != nil {
		t.Fatalf("Rotate() with current token error = %v", err)
	}
}

func TestNewLoginSupersedesPreviousSession(t *testing.T) {
	c, _, _, alice := newCoordinator(t)
	ctx := context.Background()

	first, err := c.IssueSession(ctx, alice)
	if err != nil {
		t.Fatalf("IssueSession() error = %v", err)
	}
	if _, err := c.IssueSession(ctx, alice); err != nil {
		t.Fatalf("IssueSession() error = %v", err)
	}
	if _, _, err := c.Rotate(ctx, first.RefreshToken); !errors.Is(err, ErrRefreshMismatch) {
		t.Fatalf("expected ErrRefreshMismatch, got %v", err)
	}
}

func TestRevoke(t *testing.T) {
	c, store, _, alice := newCoordinator(t)
	ctx := context.Background()

	first, err := c.IssueSession(ctx, alice)
	if err != nil {
		t.Fatalf("IssueSession() error = %v", err)
	}
	second, _, err := c.Rotate(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("Rotate() error = %v", err)
	}

	if err := c.Revoke(ctx, alice.ID); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if got := currentToken(t, store, alice.ID); got != "" {
		t.Errorf("expected no stored token, got %q", got)
	}

	for _, tok := range []string{first.RefreshToken, second.RefreshToken} {
		if _, _, err := c.Rotate(ctx, tok); !errors.Is(err, ErrRefreshMismatch) {
			t.Errorf("expected ErrRefreshMismatch after revoke, got %v", err)
		}
	}
}

func TestRotateRejectsInvalidTokens(t *testing.T) {
	c, _, tokens, alice := newCoordinator(t)
	ctx := context.Background()

	pair, err := c.IssueSession(ctx, alice)
	if err != nil {
		t.Fatalf("IssueSession() error = %v", err)
	}

	ghost := &user.User{ID: uuid.New()}
	ghostToken, err := tokens.IssueRefreshToken(ghost)
	if err != nil {
		t.Fatalf("IssueRefreshToken() error = %v", err)
	}

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "access token presented", token: pair.AccessToken, wantErr: jwt.ErrInvalidSignature},
		{name: "garbage", token: "garbage", wantErr: jwt.ErrMalformed},
		{name: "unknown user", token: ghostToken, wantErr: user.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := c.Rotate(ctx, tt.token); !errors.Is(err, tt.wantErr) {
				t.Fatalf("Rotate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRotateExpiredToken(t *testing.T) {
	c, _, tokens, alice := newCoordinator(t)
	ctx := context.Background()

	pair, err := c.IssueSession(ctx, alice)
	if err != nil {
		t.Fatalf("IssueSession() error = %v", err)
	}

	tokens.Now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	if _, _, err := c.Rotate(ctx, pair.RefreshToken); !errors.Is(err, jwt.ErrExpired) {
		t.Fatalf("expected jwt.ErrExpired, got %v", err)
	}
}

func TestConcurrentRotateHasOneWinner(t *testing.T) {
	c, store, tokens, alice := newCoordinator(t)
	ctx := context.Background()

	pair, err := c.IssueSession(ctx, alice)
	if err != nil {
		t.Fatalf("IssueSession() error = %v", err)
	}

	const attempts = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		winners  []Pair
		failures int
	)
	start := make(chan struct{})
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			next, _, err := c.Rotate(ctx, pair.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, next)
			case errors.Is(err, ErrRefreshMismatch):
				failures++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if len(winners) != 1 {
		t.Fatalf("expected exactly one successful rotation, got %d", len(winners))
	}
	if failures != attempts-1 {
		t.Errorf("expected %d mismatches, got %d", attempts-1, failures)
	}
	if got := currentToken(t, store, alice.ID); got != winners[0].RefreshToken {
		t.Errorf("stored token is not the winner's token")
	}
	if _, err := tokens.VerifyRefresh(winners[0].RefreshToken); err != nil {
		t.Errorf("winner's refresh token does not verify: %v", err)
	}
}

func TestStoreFailuresAreNotMismatches(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	users := user.NewMockStore(ctrl)
	refresh := NewMockRefreshStore(ctrl)
	tokens := newTokens(t)
	c := NewCoordinator(users, refresh, tokens)
	ctx := context.Background()

	alice := &user.User{ID: uuid.New(), Username: "alice"}
	storeErr := errors.New("connection reset")

	t.Run("issue", func(t *testing.T) {
		refresh.EXPECT().SetRefreshToken(gomock.Any(), alice.ID, gomock.Any()).Return(storeErr)
		if _, err := c.IssueSession(ctx, alice); !errors.Is(err, storeErr) {
			t.Fatalf("expected store error, got %v", err)
		}
	})

	t.Run("rotate", func(t *testing.T) {
		presented, err := tokens.IssueRefreshToken(alice)
		if err != nil {
			t.Fatalf("IssueRefreshToken() error = %v", err)
		}
		users.EXPECT().GetByID(gomock.Any(), alice.ID).Return(alice, nil)
		refresh.EXPECT().SwapRefreshToken(gomock.Any(), alice.ID, presented, gomock.Any()).Return(false, storeErr)

		_, _, err = c.Rotate(ctx, presented)
		if !errors.Is(err, storeErr) || errors.Is(err, ErrRefreshMismatch) {
			t.Fatalf("expected store error, got %v", err)
		}
	})

	t.Run("revoke", func(t *testing.T) {
		refresh.EXPECT().ClearRefreshToken(gomock.Any(), alice.ID).Return(storeErr)
		if err := c.Revoke(ctx, alice.ID); !errors.Is(err, storeErr) {
			t.Fatalf("expected store error, got %v", err)
		}
	})
}
