package error

import "net/http"

type ErrorCode string

const (
	UnknownError         ErrorCode = "unknown_error"
	InternalServerError  ErrorCode = "internal_server_error"
	BadRequest           ErrorCode = "bad_request"
	InvalidCredentials   ErrorCode = "invalid_credentials"
	Unauthenticated      ErrorCode = "unauthenticated"
	InvalidAccessToken   ErrorCode = "invalid_access_token"
	InvalidRefreshToken  ErrorCode = "invalid_refresh_token"
	RefreshTokenMismatch ErrorCode = "refresh_token_mismatch"
	TokenExpired         ErrorCode = "token_expired"
	UserConflict         ErrorCode = "user_conflict"
	UserNotFound         ErrorCode = "user_not_found"
	WeakPassword         ErrorCode = "weak_password"
	InvalidPassword      ErrorCode = "invalid_password"
	TooManyRequests      ErrorCode = "too_many_requests"
	ServiceUnavailable   ErrorCode = "service_unavailable"
	NotFound             ErrorCode = "not_found"
	MethodNotAllowed     ErrorCode = "method_not_allowed"
)

var errorCodeToStatusCode = map[ErrorCode]int{
	UnknownError:         0, // No error code - unknown
	InternalServerError:  http.StatusInternalServerError,
	BadRequest:           http.StatusBadRequest,
	InvalidCredentials:   http.StatusUnauthorized,
	Unauthenticated:      http.StatusUnauthorized,
	InvalidAccessToken:   http.StatusUnauthorized,
	InvalidRefreshToken:  http.StatusUnauthorized,
	RefreshTokenMismatch: http.StatusUnauthorized,
	TokenExpired:         http.StatusUnauthorized,
	UserConflict:         http.StatusConflict,
	UserNotFound:         http.StatusNotFound,
	WeakPassword:         http.StatusUnprocessableEntity,
	InvalidPassword:      http.StatusBadRequest,
	TooManyRequests:      http.StatusTooManyRequests,
	ServiceUnavailable:   http.StatusServiceUnavailable,
	NotFound:             http.StatusNotFound,
	MethodNotAllowed:     http.StatusMethodNotAllowed,
}

func (ec ErrorCode) StatusCode() int {
	return errorCodeToStatusCode[ec]
}

func (ec ErrorCode) String() string {
	return string(ec)
}
