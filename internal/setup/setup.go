// Package setup is responsible for setting up components.
package setup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/matt-dz/streamhub/internal/config"
	"github.com/matt-dz/streamhub/internal/database"
	"github.com/matt-dz/streamhub/internal/env"
	"github.com/matt-dz/streamhub/internal/jwt"
	"github.com/matt-dz/streamhub/internal/memstore"
	"github.com/matt-dz/streamhub/internal/redisstore"
	"github.com/matt-dz/streamhub/internal/session"
	"github.com/matt-dz/streamhub/internal/user"
)

// openDatabase connects to PostgreSQL and applies migrations.
var openDatabase = func(ctx context.Context, conf config.Database) (*sql.DB, error) {
	db, err := database.Open(ctx, database.ConnString(conf.Host, conf.Port, conf.User, conf.Password, conf.Database))
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Redis connects to the configured Redis server.
func Redis(ctx context.Context, conf config.Redis) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %w", redisstore.ErrRedisUnavailable, err)
	}
	return client, nil
}

// Tokens builds the token service from loaded secrets.
func Tokens(conf config.Tokens) (*jwt.Service, error) {
	if conf.AccessSecret.Value == nil || conf.RefreshSecret.Value == nil {
		return nil, errors.New("token secrets have not been loaded")
	}
	return jwt.NewService(jwt.Config{
		AccessSecret:  []byte(*conf.AccessSecret.Value),
		RefreshSecret: []byte(*conf.RefreshSecret.Value),
		AccessExpiry:  conf.AccessExpiry,
		RefreshExpiry: conf.RefreshExpiry,
		KeyVersion:    conf.KeyVersion,
	})
}

// Stores are the persistence backends selected by the session store setting.
type Stores struct {
	Users        user.Store
	Refresh      session.RefreshStore
	HealthChecks map[string]env.HealthCheck

	closers []func() error
}

// Close releases every connection the stores hold.
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// NewStores opens the backends conf asks for. Users live in PostgreSQL unless
// the memory store is selected; refresh tokens live with the users except
// for the redis store.
func NewStores(ctx context.Context, conf config.Config) (*Stores, error) {
	stores := &Stores{HealthChecks: map[string]env.HealthCheck{}}

	if conf.SessionStore == config.SessionStoreMemory {
		mem := memstore.New()
		stores.Users = mem
		stores.Refresh = mem
		return stores, nil
	}

	db, err := openDatabase(ctx, conf.Database)
	if err != nil {
		return nil, fmt.Errorf("setting up database: %w", err)
	}
	stores.closers = append(stores.closers, db.Close)
	stores.HealthChecks["postgres"] = db.PingContext

	pg := database.NewStore(db)
	stores.Users = pg
	stores.Refresh = pg

	if conf.SessionStore == config.SessionStoreRedis {
		client, err := Redis(ctx, conf.Redis)
		if err != nil {
			_ = stores.Close()
			return nil, fmt.Errorf("setting up redis: %w", err)
		}
		stores.closers = append(stores.closers, client.Close)

		rs := redisstore.New(client, conf.Redis.Prefix, conf.Tokens.RefreshExpiry)
		stores.Refresh = rs
		stores.HealthChecks["redis"] = rs.Ping
	}

	return stores, nil
}

// Env wires the application environment on top of stores.
func Env(conf config.Config, logger *slog.Logger, stores *Stores) (*env.Env, error) {
	tokens, err := Tokens(conf.Tokens)
	if err != nil {
		return nil, fmt.Errorf("setting up tokens: %w", err)
	}
	return env.New(env.Options{
		Logger:       logger,
		Config:       conf,
		Users:        stores.Users,
		Refresh:      stores.Refresh,
		Tokens:       tokens,
		HealthChecks: stores.HealthChecks,
	}), nil
}
