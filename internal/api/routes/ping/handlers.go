// Package ping contains the healthcheck handler.
package ping

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	apiError "github.com/matt-dz/streamhub/internal/api/error"
	"github.com/matt-dz/streamhub/internal/env"
)

const checkTimeout = 2 * time.Second

// HandleHealthcheck godoc
//
//	@Summary	Report whether the server and its stores are reachable.
//	@Tags		Health
//
//	@Produce	json
//	@Success	200	{object}	apiError.Response
//	@Failure	503	{object}	apiError.Error	"Service Unavailable"
//	@Router		/api/v1/healthcheck [GET]
func HandleHealthcheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	env := env.FromCtx(ctx)

	names := make([]string, 0, len(env.HealthChecks))
	for name := range env.HealthChecks {
		names = append(names, name)
	}
	sort.Strings(names)

	var failed []string
	for _, name := range names {
		env.Logger.DebugContext(ctx, "Running health check", slog.String("check", name))
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := env.HealthChecks[name](checkCtx)
		cancel()
		if err != nil {
			env.Logger.ErrorContext(ctx, "Health check failed", slog.String("check", name), slog.Any("error", err))
			failed = append(failed, name+": unreachable")
		}
	}

	if len(failed) > 0 {
		_ = apiError.EncodeError(w, apiError.ServiceUnavailable, "service unavailable", failed...)
		return
	}
	if err := apiError.EncodeSuccess(w, http.StatusOK, nil, "ok"); err != nil {
		env.Logger.ErrorContext(ctx, "Failed to write response", slog.Any("error", err))
	}
}
