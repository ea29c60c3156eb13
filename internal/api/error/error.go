// Package error contains the JSON envelopes written by the API.
package error

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/matt-dz/streamhub/internal/auth"
	"github.com/matt-dz/streamhub/internal/jwt"
	"github.com/matt-dz/streamhub/internal/password"
	"github.com/matt-dz/streamhub/internal/session"
	"github.com/matt-dz/streamhub/internal/user"
)

const internalErrorMessage = "internal server error"

// Error is the failure envelope.
type Error struct {
	StatusCode int       `json:"statusCode"`
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Success    bool      `json:"success"`
	Errors     []string  `json:"errors"`
}

func (e *Error) Error() string {
	return e.Message
}

func New(code ErrorCode, message string, details ...string) *Error {
	status := code.StatusCode()
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if details == nil {
		details = []string{}
	}
	return &Error{
		StatusCode: status,
		Code:       code,
		Message:    message,
		Success:    false,
		Errors:     details,
	}
}

// Response is the success envelope.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, body any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}

// EncodeError writes a failure envelope for code. details are optional
// field-level messages.
func EncodeError(w http.ResponseWriter, code ErrorCode, message string, details ...string) error {
	e := New(code, message, details...)
	return writeJSON(w, e.StatusCode, e)
}

func EncodeInternalError(w http.ResponseWriter) error {
	return EncodeError(w, InternalServerError, internalErrorMessage)
}

// EncodeSuccess writes a success envelope. A nil data is written as {}.
func EncodeSuccess(w http.ResponseWriter, status int, data any, message string) error {
	if data == nil {
		data = struct{}{}
	}
	return writeJSON(w, status, Response{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

// FromError maps a domain error to its code and a message safe to show the
// client. Unknown errors become InternalServerError.
func FromError(err error) (ErrorCode, string) {
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code, apiErr.Message
	case errors.Is(err, auth.ErrUnauthenticated):
		return Unauthenticated, "unauthorized request"
	case errors.Is(err, auth.ErrInvalidAccessToken):
		return InvalidAccessToken, "invalid access token"
	case errors.Is(err, session.ErrRefreshMismatch):
		return RefreshTokenMismatch, "refresh token is expired or used"
	case errors.Is(err, jwt.ErrExpired):
		return TokenExpired, "token expired"
	case errors.Is(err, jwt.ErrInvalidSignature), errors.Is(err, jwt.ErrMalformed):
		return InvalidRefreshToken, "invalid refresh token"
	case errors.Is(err, user.ErrInvalidCredentials):
		return InvalidCredentials, "invalid user credentials"
	case errors.Is(err, user.ErrInvalidPassword):
		return InvalidPassword, "invalid old password"
	case errors.Is(err, user.ErrConflict):
		return UserConflict, "user with email or username already exists"
	case errors.Is(err, user.ErrNotFound):
		return UserNotFound, "user does not exist"
	case password.IsPolicyViolation(err):
		return WeakPassword, err.Error()
	default:
		return InternalServerError, internalErrorMessage
	}
}

// EncodeFromError writes the failure envelope FromError chooses for err.
func EncodeFromError(w http.ResponseWriter, err error) error {
	code, message := FromError(err)
	return EncodeError(w, code, message)
}
