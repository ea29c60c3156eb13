package env

import (
	"context"
	"testing"
	"time"

	"github.com/matt-dz/streamhub/internal/config"
	"github.com/matt-dz/streamhub/internal/jwt"
	"github.com/matt-dz/streamhub/internal/memstore"
	"github.com/matt-dz/streamhub/internal/password"
)

func TestFromCtx(t *testing.T) {
	if e := FromCtx(context.Background()); e == nil || e.Logger == nil {
		t.Fatal("expected a null env with a logger")
	}

	e := Null()
	if got := FromCtx(WithCtx(context.Background(), e)); got != e {
		t.Fatal("expected the stored env")
	}
	if got := FromCtx(WithCtx(context.Background(), nil)); got == nil {
		t.Fatal("expected a null env for a nil value")
	}
}

func TestNew(t *testing.T) {
	tokens, err := jwt.NewService(jwt.Config{
		AccessSecret:  []byte("access-secret-32-bytes-long-1234567"),
		RefreshSecret: []byte("refresh-secret-32-bytes-long-123456"),
		AccessExpiry:  time.Minute,
		RefreshExpiry: time.Hour,
	})
	if err != nil {
		t.Fatalf("jwt.NewService() error = %v", err)
	}
	store := memstore.New()

	e := New(Options{
		Config: config.Config{Password: config.Password{
			Hasher:     password.AlgorithmBcrypt,
			BcryptCost: 4,
			MinLength:  8,
		}},
		Users:   store,
		Refresh: store,
		Tokens:  tokens,
	})
	if e.Logger == nil {
		t.Error("expected a default logger")
	}
	if e.Credentials == nil || e.Sessions == nil || e.Guard == nil {
		t.Fatalf("expected auth components to be wired: %+v", e)
	}
	if e.Tokens != tokens || e.Users != store {
		t.Error("expected the given tokens and users")
	}
}
