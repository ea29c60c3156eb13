// Package api sets up and starts the API server with routing and middleware.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	apiError "github.com/matt-dz/streamhub/internal/api/error"
	"github.com/matt-dz/streamhub/internal/api/middleware"
	"github.com/matt-dz/streamhub/internal/api/routes/ping"
	"github.com/matt-dz/streamhub/internal/api/routes/users"
	"github.com/matt-dz/streamhub/internal/env"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func addRoutes(router *chi.Mux, limiter *middleware.RateLimiter) {
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = apiError.EncodeError(w, apiError.NotFound, "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = apiError.EncodeError(w, apiError.MethodNotAllowed, "method not allowed")
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthcheck", ping.HandleHealthcheck)

		r.Route("/users", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(limiter.Handler)

				r.Post("/register", users.HandleRegister)
				r.Post("/login", users.HandleLogin)
				r.Post("/refresh-token", users.HandleRefreshSession)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.Authenticate)

				r.Post("/logout", users.HandleLogout)
				r.Get("/current-user", users.HandleCurrentUser)
				r.Post("/change-password", users.HandleChangePassword)
			})
		})
	})
}

// NewRouter builds the HTTP handler serving env.
func NewRouter(env *env.Env) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.AddRequestID)
	router.Use(middleware.LogRequest(env.Logger))
	router.Use(middleware.InjectEnv(env))
	router.Use(middleware.AddCors)

	addRoutes(router, middleware.NewRateLimiter(env.Config.HTTP.RateLimit))
	return router
}

// Start godoc
//
//	@title						StreamHub API
//	@version					1.0
//	@description				Authentication and session API for StreamHub.
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//
//	@BasePath					/api/v1
//
// Start serves the API until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, env *env.Env) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", env.Config.HTTP.Port),
		Handler:           NewRouter(env),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		env.Logger.Info("Listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		env.Logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
