// Package middleware contains middleware functions for the API
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/httplog/v3"

	apiError "github.com/matt-dz/streamhub/internal/api/error"
	"github.com/matt-dz/streamhub/internal/api/requestid"
	"github.com/matt-dz/streamhub/internal/api/token"
	"github.com/matt-dz/streamhub/internal/config"
	"github.com/matt-dz/streamhub/internal/env"
	"github.com/matt-dz/streamhub/internal/log"
	"github.com/matt-dz/streamhub/internal/user"
)

// InjectEnv injects an environment struct into the request context.
func InjectEnv(environment *env.Env) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(env.WithCtx(r.Context(), environment)))
		})
	}
}

func LogRequest(logger *slog.Logger) func(http.Handler) http.Handler {
	return httplog.RequestLogger(logger, &httplog.Options{
		Level: slog.LevelInfo,
		LogExtraAttrs: func(r *http.Request, reqBody string, respStatus int) []slog.Attr {
			if id := requestid.ExtractRequestID(r.Context()); id != "" {
				return []slog.Attr{slog.String("request_id", id)}
			}
			return []slog.Attr{slog.String("request_id", "N/A")}
		},
	})
}

// AddRequestID tags the request with a new id, both in its context and in
// the X-Request-Id response header.
func AddRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := requestid.New()
		w.Header().Set(requestid.Header, requestID)
		r = r.WithContext(log.AppendCtx(r.Context(), slog.String("request_id", requestID)))
		r = r.WithContext(requestid.InjectRequestID(r.Context(), requestID))
		next.ServeHTTP(w, r)
	})
}

// AddCors adds the necessary CORS headers to the response.
func AddCors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e := env.FromCtx(r.Context())
		origin := r.Header.Get("Origin")
		configured := e.Config.HTTP.CORSOrigin
		isProd := e.Config.Env == config.EnvProd

		var allowedOrigin string
		switch {
		case configured != "":
			allowedOrigin = configured
		case !isProd && origin != "":
			// In dev mode, allow all origins
			allowedOrigin = origin
		}

		if allowedOrigin == "" && origin != "" {
			e.Logger.WarnContext(r.Context(),
				"CORS_ORIGIN not set; Access-Control-Allow-Origin will be empty")
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Max-Age", "86400")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Add("Vary", "Origin")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Authenticate rejects requests without a valid access token and attaches
// the authenticated user to the request context.
func Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		env := env.FromCtx(ctx)

		env.Logger.DebugContext(ctx, "Authenticating request")
		u, err := env.Guard.Authenticate(ctx, token.ExtractAccessToken(r))
		if err != nil {
			code, message := apiError.FromError(err)
			if code == apiError.InternalServerError {
				env.Logger.ErrorContext(ctx, "Failed to authenticate request", slog.Any("error", err))
			} else {
				env.Logger.InfoContext(ctx, "Rejected request", slog.String("code", code.String()), slog.Any("error", err))
			}
			_ = apiError.EncodeError(w, code, message)
			return
		}

		ctx = log.AppendCtx(ctx, slog.String("user_id", u.ID.String()))
		ctx = user.WithCtx(ctx, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
