// Package env provides a structure for managing application-wide dependencies.
package env

import (
	"context"
	"log/slog"

	"github.com/matt-dz/streamhub/internal/auth"
	"github.com/matt-dz/streamhub/internal/config"
	"github.com/matt-dz/streamhub/internal/jwt"
	"github.com/matt-dz/streamhub/internal/log"
	"github.com/matt-dz/streamhub/internal/session"
	"github.com/matt-dz/streamhub/internal/user"
)

type Env struct {
	Logger      *slog.Logger
	Config      config.Config
	Users       user.Store
	Credentials *user.Credentials
	Tokens      *jwt.Service
	Sessions    *session.Coordinator
	Guard       *auth.Guard

	// HealthChecks are run by the healthcheck endpoint, keyed by dependency.
	HealthChecks map[string]HealthCheck
}

type HealthCheck func(context.Context) error

type Options struct {
	Logger  *slog.Logger
	Config  config.Config
	Users   user.Store
	Refresh session.RefreshStore
	Tokens  *jwt.Service

	HealthChecks map[string]HealthCheck
}

// New wires the auth components on top of the given stores.
func New(opts Options) *Env {
	lg := opts.Logger
	if lg == nil {
		lg = log.NullLogger()
	}

	return &Env{
		Logger: lg,
		Config: opts.Config,
		Users:  opts.Users,
		Credentials: user.NewCredentials(
			opts.Users,
			opts.Config.Password.NewHasher(),
			opts.Config.Password.Policy(),
		),
		Tokens:       opts.Tokens,
		Sessions:     session.NewCoordinator(opts.Users, opts.Refresh, opts.Tokens),
		Guard:        auth.NewGuard(opts.Users, opts.Tokens),
		HealthChecks: opts.HealthChecks,
	}
}

func Null() *Env {
	return &Env{
		Logger: log.NullLogger(),
	}
}

type envKeyType struct{}

var envKey envKeyType

func WithCtx(ctx context.Context, env *Env) context.Context {
	return context.WithValue(ctx, envKey, env)
}

// FromCtx returns the Env stored in ctx, or a null Env if there is none.
func FromCtx(ctx context.Context) *Env {
	if e, ok := ctx.Value(envKey).(*Env); ok && e != nil {
		return e
	}
	return Null()
}
