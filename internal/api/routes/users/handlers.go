// Package users contains handlers for the user resource.
package users

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apiError "github.com/matt-dz/streamhub/internal/api/error"
	"github.com/matt-dz/streamhub/internal/api/token"
	"github.com/matt-dz/streamhub/internal/env"
	mJson "github.com/matt-dz/streamhub/internal/json"
	"github.com/matt-dz/streamhub/internal/user"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors turns validator errors into "field: rule" strings.
func fieldErrors(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			details = append(details, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			details = append(details, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return details
}

// decodeRequest reads and validates the body into dst. On failure it writes
// a 400 response and returns false.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	ctx := r.Context()
	env := env.FromCtx(ctx)

	env.Logger.DebugContext(ctx, "Reading request body")
	defer func() { _ = r.Body.Close() }()
	if err := mJson.DecodeBody(r.Body, dst); err != nil {
		env.Logger.InfoContext(ctx, "Failed to decode request body", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.BadRequest, "invalid request body")
		return false
	}

	env.Logger.DebugContext(ctx, "Validating request body")
	if err := validate.Struct(dst); err != nil {
		env.Logger.InfoContext(ctx, "Failed to validate request body", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.BadRequest, "invalid request body", fieldErrors(err)...)
		return false
	}
	return true
}

// writeError logs err and writes the matching failure envelope.
func writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	env := env.FromCtx(ctx)

	code, message := apiError.FromError(err)
	if code == apiError.InternalServerError {
		env.Logger.ErrorContext(ctx, msg, slog.Any("error", err))
	} else {
		env.Logger.InfoContext(ctx, msg, slog.String("code", code.String()), slog.Any("error", err))
	}
	_ = apiError.EncodeError(w, code, message)
}

func writeSuccess(w http.ResponseWriter, r *http.Request, status int, data any, message string) {
	ctx := r.Context()
	env := env.FromCtx(ctx)

	env.Logger.DebugContext(ctx, "Writing response")
	if err := apiError.EncodeSuccess(w, status, data, message); err != nil {
		env.Logger.ErrorContext(ctx, "Failed to write response", slog.Any("error", err))
	}
}

func setSessionCookies(w http.ResponseWriter, e *env.Env, access, refresh string) {
	secure := e.Config.HTTP.CookieSecure
	http.SetCookie(w, token.NewAccessTokenCookie(access, e.Tokens.AccessExpiry(), secure))
	http.SetCookie(w, token.NewRefreshTokenCookie(refresh, e.Tokens.RefreshExpiry(), secure))
}

// HandleRegister godoc
//
//	@Summary	Register a user.
//	@Tags		User
//
//	@Accept		json
//	@Produce	json
//	@Param		request	body		RegisterRequest	true	"Register Request"
//
//	@Success	201		{object}	apiError.Response{data=user.Profile}
//	@Failure	400		{object}	apiError.Error	"Bad Request"
//	@Failure	409		{object}	apiError.Error	"Conflict"
//	@Failure	422		{object}	apiError.Error	"Unprocessable Entity"
//	@Router		/api/v1/users/register [POST]
func HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	env := env.FromCtx(ctx)

	var request RegisterRequest
	if !decodeRequest(w, r, &request) {
		return
	}

	env.Logger.DebugContext(ctx, "Registering user")
	u, err := env.Credentials.Register(ctx, user.RegisterParams{
		Username: request.Username,
		Email:    request.Email,
		FullName: request.FullName,
		Password: request.Password,
	})
	if err != nil {
		writeError(w, r, "Failed to register user", err)
		return
	}
	env.Logger.InfoContext(ctx, "Registered user", slog.String("user_id", u.ID.String()))

	writeSuccess(w, r, http.StatusCreated, u.Profile(), "user registered successfully")
}

// HandleLogin godoc
//
//	@Summary	Log in with a username or email.
//	@Tags		User
//
//	@Accept		json
//	@Produce	json
//	@Param		request	body		LoginRequest	true	"Login Request"
//
//	@Success	200		{object}	apiError.Response{data=LoginResponse}
//	@Failure	400		{object}	apiError.Error	"Bad Request"
//	@Failure	401		{object}	apiError.Error	"Unauthorized"
//	@Failure	404		{object}	apiError.Error	"Not Found"
//	@Router		/api/v1/users/login [POST]
func HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	env := env.FromCtx(ctx)

	var request LoginRequest
	if !decodeRequest(w, r, &request) {
		return
	}

	env.Logger.DebugContext(ctx, "Verifying credentials")
	u, err := env.Credentials.VerifyCredentials(ctx, request.identifier(), request.Password)
	if err != nil {
		writeError(w, r, "Failed to verify credentials", err)
		return
	}

	env.Logger.DebugContext(ctx, "Issuing session")
	pair, err := env.Sessions.IssueSession(ctx, u)
	if err != nil {
		writeError(w, r, "Failed to issue session", err)
		return
	}
	env.Logger.InfoContext(ctx, "User logged in", slog.String("user_id", u.ID.String()))

	setSessionCookies(w, env, pair.AccessToken, pair.RefreshToken)
	writeSuccess(w, r, http.StatusOK, LoginResponse{
		User:         u.Profile(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "user logged in successfully")
}

// refreshTokenFromRequest reads the refresh token from its cookie, falling
// back to the refreshToken field of a JSON body.
func refreshTokenFromRequest(r *http.Request) (string, error) {
	if raw := token.RefreshTokenFromCookie(r); raw != "" {
		return raw, nil
	}

	defer func() { _ = r.Body.Close() }()
	var request RefreshSessionRequest
	if err := mJson.DecodeBody(r.Body, &request); err != nil {
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		return "", err
	}
	return request.RefreshToken, nil
}

// HandleRefreshSession godoc
//
//	@Summary	Rotate the refresh token and issue a new access token.
//	@Tags		User
//
//	@Produce	json
//	@Param		Cookie	header		string					false	"refreshToken=..."
//	@Param		request	body		RefreshSessionRequest	false	"Refresh Session Request"
//
//	@Success	200		{object}	apiError.Response{data=session.Pair}
//	@Failure	401		{object}	apiError.Error	"Unauthorized"
//	@Router		/api/v1/users/refresh-token [POST]
func HandleRefreshSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	env := env.FromCtx(ctx)

	env.Logger.DebugContext(ctx, "Extracting refresh token")
	presented, err := refreshTokenFromRequest(r)
	if err != nil {
		env.Logger.InfoContext(ctx, "Failed to decode request body", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.BadRequest, "invalid request body")
		return
	}
	if presented == "" {
		env.Logger.InfoContext(ctx, "Refresh token not found")
		_ = apiError.EncodeError(w, apiError.Unauthenticated, "unauthorized request")
		return
	}

	env.Logger.DebugContext(ctx, "Rotating refresh token")
	pair, u, err := env.Sessions.Rotate(ctx, presented)
	if errors.Is(err, user.ErrNotFound) {
		env.Logger.InfoContext(ctx, "Refresh token names an unknown user", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.InvalidRefreshToken, "invalid refresh token")
		return
	} else if err != nil {
		writeError(w, r, "Failed to rotate refresh token", err)
		return
	}
	env.Logger.InfoContext(ctx, "Rotated session", slog.String("user_id", u.ID.String()))

	setSessionCookies(w, env, pair.AccessToken, pair.RefreshToken)
	writeSuccess(w, r, http.StatusOK, pair, "access token refreshed")
}

// currentUser returns the user attached by the Authenticate middleware.
func currentUser(w http.ResponseWriter, r *http.Request) (*user.User, bool) {
	u, ok := user.FromCtx(r.Context())
	if !ok {
		env.FromCtx(r.Context()).Logger.ErrorContext(r.Context(), "No authenticated user in context")
		_ = apiError.EncodeError(w, apiError.Unauthenticated, "unauthorized request")
	}
	return u, ok
}

// HandleLogout godoc
//
//	@Summary	Log out and revoke the current session.
//	@Tags		User
//
//	@Produce	json
//	@Param		Cookie	header		string	true	"accessToken=..."
//
//	@Success	200		{object}	apiError.Response
//	@Failure	401		{object}	apiError.Error	"Unauthorized"
//	@Router		/api/v1/users/logout [POST]
func HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	env := env.FromCtx(ctx)

	u, ok := currentUser(w, r)
	if !ok {
		return
	}

	env.Logger.DebugContext(ctx, "Revoking session")
	if err := env.Sessions.Revoke(ctx, u.ID); err != nil {
		writeError(w, r, "Failed to revoke session", err)
		return
	}
	env.Logger.InfoContext(ctx, "User logged out")

	token.ClearCookies(w, env.Config.HTTP.CookieSecure)
	writeSuccess(w, r, http.StatusOK, nil, "user logged out")
}

// HandleCurrentUser godoc
//
//	@Summary	Get the authenticated user.
//	@Tags		User
//
//	@Produce	json
//	@Param		Cookie	header		string	true	"accessToken=..."
//
//	@Success	200		{object}	apiError.Response{data=user.Profile}
//	@Failure	401		{object}	apiError.Error	"Unauthorized"
//	@Router		/api/v1/users/current-user [GET]
func HandleCurrentUser(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeSuccess(w, r, http.StatusOK, u.Profile(), "current user fetched successfully")
}

// HandleChangePassword godoc
//
//	@Summary	Change the password of the authenticated user.
//	@Tags		User
//
//	@Accept		json
//	@Produce	json
//	@Param		request	body		ChangePasswordRequest	true	"Change Password Request"
//
//	@Success	200		{object}	apiError.Response
//	@Failure	400		{object}	apiError.Error	"Bad Request"
//	@Failure	401		{object}	apiError.Error	"Unauthorized"
//	@Failure	422		{object}	apiError.Error	"Unprocessable Entity"
//	@Router		/api/v1/users/change-password [POST]
func HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	env := env.FromCtx(ctx)

	u, ok := currentUser(w, r)
	if !ok {
		return
	}

	var request ChangePasswordRequest
	if !decodeRequest(w, r, &request) {
		return
	}

	env.Logger.DebugContext(ctx, "Changing password")
	if err := env.Credentials.ChangePassword(ctx, u.ID, request.OldPassword, request.NewPassword); err != nil {
		writeError(w, r, "Failed to change password", err)
		return
	}
	env.Logger.InfoContext(ctx, "Password changed")

	writeSuccess(w, r, http.StatusOK, nil, "password changed successfully")
}
